package auth_test

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/paylite-technologies/payng/internal/auth"
	_ "github.com/paylite-technologies/payng/testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMux(handler *auth.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}
