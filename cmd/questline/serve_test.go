package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/metalagman/questline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestServeModule_WiresHandler(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "questline.db")

	var srv *http.Server
	app := fxtest.New(t, serveModule(cfg), fx.Populate(&srv))
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, srv)
	assert.Equal(t, cfg.Server.Addr, srv.Addr)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
