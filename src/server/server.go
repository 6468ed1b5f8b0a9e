package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/controller"
	"agentexecutor/src/model"
)

// PositionReader is the read slice of the position repository used by the
// ops endpoints.
type PositionReader interface {
	FindOpen(ctx context.Context) ([]model.Position, error)
	FindByID(ctx context.Context, id uint) (*model.Position, error)
}

// ManualCloser closes a position on operator request.
// *controller.TradeCoordinator satisfies it.
type ManualCloser interface {
	Close(ctx context.Context, position *model.Position, reason string, triggerPrice decimal.Decimal) (*controller.CloseResult, error)
}

// NewRouter builds the ops API routes.
func NewRouter(positions PositionReader, closer ManualCloser) http.Handler {
	// Router with middleware
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Get("/positions/open", func(w http.ResponseWriter, r *http.Request) {
		open, err := positions.FindOpen(r.Context())
		if err != nil {
			http.Error(w, "failed to fetch open positions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, open)
	})

	r.Get("/positions/{id}", func(w http.ResponseWriter, r *http.Request) {
		position, ok := loadPosition(w, r, positions)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, position)
	})

	// Manual close for operators. Reuses the exact close flow the monitor
	// runs, so idempotency and billing behave identically.
	r.Post("/positions/{id}/close", func(w http.ResponseWriter, r *http.Request) {
		position, ok := loadPosition(w, r, positions)
		if !ok {
			return
		}

		result, err := closer.Close(r.Context(), position, model.CloseReasonManual, decimal.Zero)
		if err != nil {
			logger.WithError(err).WithField("position_id", position.ID).Error("manual close failed")
			http.Error(w, "close failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

// StartServer serves the ops API until the context is cancelled.
func StartServer(ctx context.Context, port string, positions PositionReader, closer ManualCloser) {
	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(positions, closer),
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

func loadPosition(w http.ResponseWriter, r *http.Request, positions PositionReader) (*model.Position, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return nil, false
	}

	position, err := positions.FindByID(r.Context(), uint(id))
	if err != nil {
		http.Error(w, "failed to fetch position", http.StatusInternalServerError)
		return nil, false
	}
	if position == nil {
		http.Error(w, "position not found", http.StatusNotFound)
		return nil, false
	}
	return position, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
