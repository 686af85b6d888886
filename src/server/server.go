package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"tradebot/src/strategy"
)

// Status is the JSON body served on /status.
type Status struct {
	Symbol     string `json:"symbol"`
	State      string `json:"state"`
	LastSignal string `json:"last_signal"`
}

func newRouter(symbol string, machine *strategy.Machine) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		status := Status{
			Symbol:     symbol,
			State:      string(machine.State()),
			LastSignal: string(machine.LastSignal()),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.WithError(err).Error("/status encode error")
		}
	})

	return r
}

// StartServer serves health, metrics and bot status in the background and
// returns the server so the caller can shut it down.
func StartServer(port, symbol string, machine *strategy.Machine) *http.Server {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: newRouter(symbol, machine),
	}

	go func() {
		logger.Infof("Status server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Status server crashed")
		}
	}()

	return srv
}

// Shutdown stops the status server gracefully.
func Shutdown(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Status server shutdown error")
	}
}
