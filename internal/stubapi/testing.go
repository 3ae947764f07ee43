package stubapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/config"
)

// StartTest runs a stub server for the duration of the test.
func StartTest(tb testing.TB) (*Server, *httptest.Server) {
	tb.Helper()
	srv, err := New(config.StubConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		CodeTTL:   time.Hour,
	}, zerolog.Nop(), nil)
	if err != nil {
		tb.Fatalf("stubapi.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	tb.Cleanup(ts.Close)
	return srv, ts
}
