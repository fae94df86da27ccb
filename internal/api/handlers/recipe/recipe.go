package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/cache"
	"recipe-aggregator/internal/core/planner"
	"recipe-aggregator/internal/core/provider"
	recipeCore "recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/search"
	"recipe-aggregator/internal/core/shopping"
	"recipe-aggregator/internal/infrastructure/selection"
	"recipe-aggregator/internal/pkg/common"
)

// NoMatchesMessage 查無結果時的提示
const NoMatchesMessage = "no matches, adjust filters"

// Searcher 分層搜尋服務
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	NoteProviderError(tier recipeCore.Tier, err error)
	PaidDegraded() bool
}

// Persister 讀取時回填
type Persister interface {
	EnsurePersisted(r recipeCore.Recipe)
}

// MealPlanner 菜單產生器
type MealPlanner interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Plan, error)
}

// Dependencies 處理程序所需的服務
type Dependencies struct {
	Searcher   Searcher
	Providers  *provider.Registry
	Cache      *cache.Manager
	Persister  Persister
	Aggregator *shopping.Aggregator
	Planner    MealPlanner
	Catalog    *recipeCore.Catalog
	Selections selection.Store
	Debug      bool
}

// Handler 食譜處理程序
type Handler struct {
	searcher   Searcher
	providers  *provider.Registry
	cache      *cache.Manager
	persister  Persister
	aggregator *shopping.Aggregator
	planner    MealPlanner
	catalog    *recipeCore.Catalog
	selections selection.Store
	debug      bool
}

// NewHandler 創建新的食譜處理程序
func NewHandler(deps Dependencies) *Handler {
	if deps.Catalog == nil {
		deps.Catalog = recipeCore.DefaultCatalog()
	}
	if deps.Aggregator == nil {
		deps.Aggregator = shopping.NewAggregator(deps.Catalog, nil)
	}
	if deps.Providers == nil {
		deps.Providers = provider.NewRegistry()
	}
	return &Handler{
		searcher:   deps.Searcher,
		providers:  deps.Providers,
		cache:      deps.Cache,
		persister:  deps.Persister,
		aggregator: deps.Aggregator,
		planner:    deps.Planner,
		catalog:    deps.Catalog,
		selections: deps.Selections,
		debug:      deps.Debug,
	}
}

// SearchRequest 搜尋請求；selection_key 可取代 selected_ingredients
type SearchRequest struct {
	search.Request
	SelectionKey string `json:"selection_key,omitempty"`
}

// SearchResponse 搜尋回應
type SearchResponse struct {
	Results    []search.Hit            `json:"results"`
	TierCounts map[recipeCore.Tier]int `json:"tier_counts"`
	TierErrors []search.TierError      `json:"tier_errors,omitempty"`
	Degraded   bool                    `json:"degraded"`
	Message    string                  `json:"message,omitempty"`
}

// HandleSearch 分層搜尋食譜
func (h *Handler) HandleSearch(c *gin.Context) {
	var req SearchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if len(req.SelectedIngredients) == 0 && strings.TrimSpace(req.SelectionKey) != "" {
		if h.selections == nil {
			h.respondError(c, "食材選擇儲存未啟用", common.ErrServiceUnavailable)
			return
		}
		sel, err := selection.LoadIngredients(c.Request.Context(), h.selections, req.SelectionKey)
		if err != nil {
			h.respondError(c, "讀取食材選擇失敗", err)
			return
		}
		req.SelectedIngredients = sel.IDs
	}

	res, err := h.searcher.Search(c.Request.Context(), req.Request)
	if err != nil {
		h.respondError(c, "食譜搜尋失敗", err)
		return
	}

	resp := SearchResponse{
		Results:    res.Results,
		TierCounts: res.TierCounts,
		TierErrors: res.TierErrors,
		Degraded:   res.Degraded,
	}
	if resp.Results == nil {
		resp.Results = []search.Hit{}
	}
	if len(resp.Results) == 0 {
		resp.Message = NoMatchesMessage
	}

	common.LogInfo("食譜搜尋完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("results", len(resp.Results)),
		zap.Int("tier_errors", len(resp.TierErrors)),
	)
	c.JSON(http.StatusOK, resp)
}

// DetailResponse 食譜詳情回應
type DetailResponse struct {
	Recipe recipeCore.Recipe `json:"recipe"`
	Cached bool              `json:"cached"`
}

// HandleDetail 取得食譜詳情（快取 → 來源），外部食譜在背景回填
func (h *Handler) HandleDetail(c *gin.Context) {
	tier, err := recipeCore.ParseTier(c.Param("tier"))
	if err != nil {
		h.respondError(c, "來源層級無效", err)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.respondError(c, "食譜 id 無效", common.NewValidationError("recipe id is required"))
		return
	}
	ctx := c.Request.Context()

	if h.cache != nil && tier != recipeCore.TierInternal {
		if cached, err := h.cache.Get(ctx, tier, id); err == nil {
			h.persist(*cached)
			c.JSON(http.StatusOK, DetailResponse{Recipe: *cached, Cached: true})
			return
		}
	}

	p, ok := h.providers.Get(tier)
	if !ok {
		h.respondError(c, "來源層級未啟用", common.ErrNotFound.Wrap(errors.New("tier "+string(tier)+" is not enabled")))
		return
	}
	if tier == recipeCore.TierPaid && h.searcher != nil && h.searcher.PaidDegraded() {
		h.respondError(c, "付費來源暫停中", common.ErrServiceUnavailable.Wrap(errors.New("paid tier quota exhausted")))
		return
	}

	r, err := p.FetchDetail(ctx, id)
	if err != nil {
		if h.searcher != nil {
			h.searcher.NoteProviderError(tier, err)
		}
		h.respondError(c, "取得食譜詳情失敗", err)
		return
	}

	if tier != recipeCore.TierInternal {
		if h.cache != nil {
			_ = h.cache.Set(ctx, r)
		}
		h.persist(*r)
	}
	c.JSON(http.StatusOK, DetailResponse{Recipe: *r})
}

func (h *Handler) persist(r recipeCore.Recipe) {
	if h.persister != nil {
		h.persister.EnsurePersisted(r)
	}
}
