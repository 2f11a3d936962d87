package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewgate-backend/internal/data/repos/testutil"
)

func TestNewWiresSQLiteStack(t *testing.T) {
	path := writeConfig(t, `
server:
  mode: test
log:
  mode: test
database:
  driver: sqlite
  sqlite_path: `+filepath.Join(t.TempDir(), "app.db")+`
auth:
  jwt_secret: "`+testSecret+`"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := New(ctx, testutil.Logger(t), cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Nil(t, a.Clients.Redis)
	assert.NotNil(t, a.Clients.CounterStore)
	assert.NotNil(t, a.Services.Review)
	assert.NotNil(t, a.Services.Assist)

	do := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/healthcheck").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/review/queue").Code)

	metrics := do(http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "rg_api_requests_total")
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), testutil.Logger(t), nil)
	require.Error(t, err)
}
