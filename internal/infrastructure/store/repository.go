package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// ErrNotFound 資料不存在
var ErrNotFound = errors.New("recipe not found")

// Filter 食譜查詢條件
type Filter struct {
	// IngredientTerms 任一詞出現在食材原文即符合（不分大小寫）
	IngredientTerms []string
	// Text 標題包含的文字
	Text  string
	Limit int
}

// Repository 食譜資料庫存取
type Repository struct {
	db *gorm.DB
}

// Open 依設定開啟 SQLite 或 PostgreSQL，並執行 migration
func Open(cfg config.StoreConfig) (*gorm.DB, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 記憶體資料庫每個連線各自獨立，只能使用單一連線
	if cfg.Driver != "postgres" && (cfg.DSN == "" || cfg.DSN == ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&RecipeModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	common.LogInfo("食譜資料庫已連線",
		zap.String("driver", cfg.Driver),
	)

	return db, nil
}

// NewRepository 建立食譜資料庫存取
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Query 依條件查詢，依建立時間排序
func (r *Repository) Query(ctx context.Context, filter Filter) ([]recipe.Recipe, error) {
	q := r.db.WithContext(ctx).Model(&RecipeModel{})

	if terms := likeTerms(filter.IngredientTerms); len(terms) > 0 {
		cond := r.db.Where("ingredient_text LIKE ?", "%"+terms[0]+"%")
		for _, t := range terms[1:] {
			cond = cond.Or("ingredient_text LIKE ?", "%"+t+"%")
		}
		q = q.Where(cond)
	}
	if text := likeTerm(filter.Text); text != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+text+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []RecipeModel
	if err := q.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}

	out := make([]recipe.Recipe, 0, len(models))
	for i := range models {
		out = append(out, models[i].toRecipe())
	}
	return out, nil
}

// FindByKey 以資料庫鍵查詢
func (r *Repository) FindByKey(ctx context.Context, key string) (*recipe.Recipe, error) {
	var m RecipeModel
	if err := r.db.WithContext(ctx).Where("id = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	rec := m.toRecipe()
	return &rec, nil
}

// FindBySource 以來源層級與來源 id 查詢
func (r *Repository) FindBySource(ctx context.Context, tier recipe.Tier, sourceID string) (*recipe.Recipe, error) {
	var m RecipeModel
	err := r.db.WithContext(ctx).
		Where("imported_from = ? AND source_id = ?", string(tier), sourceID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recipe by source: %w", err)
	}
	rec := m.toRecipe()
	return &rec, nil
}

// InsertIfAbsent 來源已存在時不做任何事；回傳資料庫鍵與是否新增
func (r *Repository) InsertIfAbsent(ctx context.Context, rec *recipe.Recipe) (string, bool, error) {
	m := toModel(rec)
	if m.ID == "" {
		m.ID = common.GenerateUUID()
	}
	if m.SourceID == "" {
		m.SourceID = m.ID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "imported_from"}, {Name: "source_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return "", false, fmt.Errorf("failed to insert recipe: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return m.ID, true, nil
	}

	existing, err := r.FindBySource(ctx, recipe.Tier(m.ImportedFrom), m.SourceID)
	if err != nil {
		return "", false, err
	}
	return existing.StoreKey, false, nil
}

// Upsert 新增或覆寫同來源的食譜（管理用途），回傳資料庫鍵
func (r *Repository) Upsert(ctx context.Context, rec *recipe.Recipe) (string, error) {
	m := toModel(rec)
	if m.ID == "" {
		m.ID = common.GenerateUUID()
	}
	if m.SourceID == "" {
		m.SourceID = m.ID
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "imported_from"}, {Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "image_url", "ready_minutes", "servings", "price_per_serving_cents",
				"cuisines", "diets", "dish_types", "ingredients", "ingredient_text",
				"instructions", "summary", "nutrition", "updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return "", fmt.Errorf("failed to upsert recipe: %w", err)
	}

	existing, err := r.FindBySource(ctx, recipe.Tier(m.ImportedFrom), m.SourceID)
	if err != nil {
		return "", err
	}
	return existing.StoreKey, nil
}

// Delete 以資料庫鍵刪除
func (r *Repository) Delete(ctx context.Context, key string) error {
	res := r.db.WithContext(ctx).Where("id = ?", key).Delete(&RecipeModel{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete recipe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count 食譜總數
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&RecipeModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// Ping 檢查資料庫連線
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉資料庫連線
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func likeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = likeTerm(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// likeTerm 轉小寫並移除 LIKE 萬用字元
func likeTerm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
