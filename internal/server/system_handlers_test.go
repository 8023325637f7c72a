package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/voltsurf/internal/config"
	"github.com/aristath/voltsurf/internal/database"
)

func testDatabases(t *testing.T) (*database.DB, *database.DB) {
	t.Helper()

	dir := t.TempDir()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(dir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { historyDB.Close() })

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dir, "calculations.db"),
		Profile: database.ProfileCache,
		Name:    "calculations",
	})
	require.NoError(t, err)
	t.Cleanup(func() { cacheDB.Close() })

	return historyDB, cacheDB
}

func TestHandleHealth(t *testing.T) {
	historyDB, cacheDB := testDatabases(t)
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), historyDB, cacheDB)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string            `json:"status"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Databases["history"])
	assert.Equal(t, "ok", body.Databases["calculations"])
}

func TestHandleSystemStatus(t *testing.T) {
	historyDB, cacheDB := testDatabases(t)

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "blob"), make([]byte, 1024*1024), 0644))

	h := NewSystemHandlers(zerolog.Nop(), dataDir, historyDB, cacheDB)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/status", nil)
	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CPUPercent float64 `json:"cpu_percent"`
		RAMPercent float64 `json:"ram_percent"`
		DataSizeMB float64 `json:"data_size_mb"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.GreaterOrEqual(t, body.RAMPercent, 0.0)
	assert.InDelta(t, 1.0, body.DataSizeMB, 0.1)
}

func TestServerRoutesRegistered(t *testing.T) {
	historyDB, cacheDB := testDatabases(t)

	srv, err := New(Config{
		Cfg: &config.Config{
			DataDir:      t.TempDir(),
			LogLevel:     "error",
			Port:         0,
			DevMode:      true,
			RiskFreeRate: 0.05,
		},
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Log:       zerolog.Nop(),
	})
	require.NoError(t, err)

	// Spot-check a GET route from each registered module
	for _, path := range []string{
		"/health",
		"/api/v1/optimize/objectives",
		"/api/v1/strategy/presets",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
