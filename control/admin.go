// control/admin.go
// Author: momentics <momentics@gmail.com>
//
// Admin HTTP endpoint: Prometheus scrape, debug probes, health.

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewAdminRouter mounts /healthz, /metrics and /debug/probes.
func NewAdminRouter(m *Metrics, probes *DebugProbes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{}))
	r.Get("/debug/probes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(probes.DumpState()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return r
}

// AdminServer serves the admin router on its own goroutine.
type AdminServer struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
	done   chan struct{}
}

// StartAdmin listens on addr and serves h in the background.
func StartAdmin(addr string, h http.Handler, logger *zap.Logger) (*AdminServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("admin listen %s: %w", addr, err)
	}
	a := &AdminServer{
		srv:    &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server stopped", zap.Error(err))
		}
	}()
	logger.Info("admin endpoint listening", zap.Stringer("addr", ln.Addr()))
	return a, nil
}

// Addr returns the bound admin address.
func (a *AdminServer) Addr() net.Addr {
	return a.ln.Addr()
}

// Shutdown stops the admin server and waits for its goroutine.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	err := a.srv.Shutdown(ctx)
	<-a.done
	return err
}
