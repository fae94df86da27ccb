package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFiltersSensitiveFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogWarn("provider call",
		zap.String("tier", "paid"),
		zap.String("api_key", "secret"),
		zap.String("redis_password", "hunter2"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "paid", fields["tier"])
	assert.NotContains(t, fields, "api_key")
	assert.NotContains(t, fields, "redis_password")
}

func TestConciseModeDropsInfo(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	LogMode = "concise"
	t.Cleanup(func() {
		SetLogger(nil)
		LogMode = ""
	})

	LogInfo("食譜搜尋完成")
	LogInfo("請求完成")
	LogError("failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "請求完成", entries[0].Message)
	assert.Equal(t, "failed", entries[1].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("unknown"))
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		SetLogger(nil)
		LogMode = ""
		_ = os.Chdir(wd)
	})

	require.NoError(t, InitLogger("debug"))
	LogWarn("來源層級搜尋失敗", zap.String("tier", "free"), zap.String("api_key", "secret"))
	Sync()

	data, err := os.ReadFile(filepath.Join("logs", "app.log"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"來源層級搜尋失敗"`)
	assert.Contains(t, out, `"service":"recipe-aggregator"`)
	assert.Contains(t, out, `"tier":"free"`)
	assert.NotContains(t, out, "secret")
}
