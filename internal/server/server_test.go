package server_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anved/listkeeper/internal/cache/memory"
	"github.com/anved/listkeeper/internal/config"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/server"
	storememory "github.com/anved/listkeeper/internal/store/memory"
)

func newServerWithTLSMode(t *testing.T, mode string) *server.Server {
	t.Helper()

	cfg := config.DevConfig()
	cfg.TLS.Mode = mode
	c := memory.New(time.Minute, 0)
	t.Cleanup(func() { c.Close() })

	srv, err := server.New(server.Deps{
		Config:   cfg,
		Driver:   storememory.New(),
		Cache:    c,
		Sessions: identity.NewMemorySessionRepo(),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func TestStart_UnknownTLSMode(t *testing.T) {
	srv := newServerWithTLSMode(t, "bogus")

	err := srv.Start()
	if err == nil {
		t.Fatal("expected error for unknown tls mode")
	}
	if !strings.Contains(err.Error(), "tls.mode") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStart_ACMEWithoutDomainFailsFast(t *testing.T) {
	srv := newServerWithTLSMode(t, "acme")

	// No domain configured: initialization must fail before any listener
	// or network traffic.
	err := srv.Start()
	if err == nil {
		t.Fatal("expected error for missing ACME domain")
	}
	if !strings.Contains(err.Error(), "ACME") {
		t.Errorf("unexpected error: %v", err)
	}
}
