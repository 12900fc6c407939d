package app_test

import (
	"context"
	"net/http"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/app"
	"github.com/noah-isme/pos-terminal/internal/config"
	"github.com/noah-isme/pos-terminal/internal/invoice"
	"github.com/noah-isme/pos-terminal/internal/session"
	"github.com/noah-isme/pos-terminal/internal/storeapi/storeapitest"
)

func loginRoutes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"POST /user/login": func(w http.ResponseWriter, _ *http.Request) {
			storeapitest.OK(w, map[string]any{"token": "opaque", "id": 1, "name": "asha", "role": "admin"})
		},
	}
}

func TestNewWithoutRedis(t *testing.T) {
	srv := storeapitest.New(t, loginRoutes())
	cfg, err := config.LoadForTests(map[string]string{
		"STORE_API_URL": srv.URL + "/api",
		"REDIS_URL":     "",
		"PRINT_MODE":    "none",
	})
	require.NoError(t, err)

	deps, err := app.New(context.Background(), cfg, zerolog.Nop(), false)
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	require.Nil(t, deps.Redis)
	require.Nil(t, deps.TaskClient)
	require.NotNil(t, deps.LoginLimiter)
	require.Equal(t, "none", deps.Printer.Kind())

	s, err := deps.Sessions.Login(context.Background(), session.Credentials{Name: "asha", Password: "pw"})
	require.NoError(t, err)
	deps.Terminals.Get(s.ID, s.Token)
	require.Equal(t, 1, deps.Terminals.Len())

	require.NoError(t, deps.Sessions.Logout(context.Background(), s.ID))
	require.Zero(t, deps.Terminals.Len(), "logout drops the terminal")
}

func TestNewWithRedisSharesSessions(t *testing.T) {
	srv := storeapitest.New(t, loginRoutes())
	mr := miniredis.RunT(t)
	cfg, err := config.LoadForTests(map[string]string{
		"STORE_API_URL": srv.URL + "/api",
		"REDIS_URL":     "redis://" + mr.Addr() + "/0",
		"PRINT_MODE":    "queue",
	})
	require.NoError(t, err)

	deps, err := app.New(context.Background(), cfg, zerolog.Nop(), false)
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	require.NotNil(t, deps.Redis)
	require.NotNil(t, deps.TaskClient)
	require.Equal(t, "queue", deps.Printer.Kind())

	s, err := deps.Sessions.Login(context.Background(), session.Credentials{Name: "asha", Password: "pw"})
	require.NoError(t, err)
	require.True(t, mr.Exists("pos:session:"+s.ID))
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"STORE_API_URL": "http://127.0.0.1:1/api",
		"REDIS_URL":     "redis://127.0.0.1:1/0",
		"PRINT_MODE":    "none",
	})
	require.NoError(t, err)
	_, err = app.New(context.Background(), cfg, zerolog.Nop(), false)
	require.ErrorContains(t, err, "ping redis")
}

func TestNewPrinter(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PRINT_MODE":      "none",
		"PRINT_COMMAND":   "lp -d counter",
		"PRINT_SPOOL_DIR": t.TempDir(),
	})
	require.NoError(t, err)

	p, err := app.NewPrinter(config.PrintModeCommand, cfg, nil)
	require.NoError(t, err)
	cmd, ok := p.(invoice.CommandPrinter)
	require.True(t, ok)
	require.Equal(t, "lp", cmd.Command)
	require.Equal(t, []string{"-d", "counter"}, cmd.Args)

	p, err = app.NewPrinter(config.PrintModeSpool, cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "spool", p.Kind())

	_, err = app.NewPrinter(config.PrintModeQueue, cfg, nil)
	require.Error(t, err)
	_, err = app.NewPrinter("fax", cfg, nil)
	require.Error(t, err)
}
