package worker

import (
	"context"
	"encoding/json"

	"github.com/JonCoulter/whenly/core/config"
	"github.com/JonCoulter/whenly/core/logger"

	"github.com/hibiken/asynq"
)

// TallyRefresher recomputes an event's cached aggregate summary.
type TallyRefresher interface {
	RefreshTally(ctx context.Context, eventID string) error
}

// Server runs the background task handlers alongside the HTTP server.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(cfg config.RedisConfig, refresher TallyRefresher) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 5,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTallyRefresh, func(ctx context.Context, t *asynq.Task) error {
		var payload tallyRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		if err := refresher.RefreshTally(ctx, payload.EventID); err != nil {
			logger.Error("Worker:TallyRefresh", "event_id", payload.EventID, "error", err)
			return err
		}
		logger.Info("Worker:TallyRefresh:Done", "event_id", payload.EventID)
		return nil
	})

	return &Server{srv: srv, mux: mux}
}

// Start runs the worker loop in its own goroutines.
func (s *Server) Start() error {
	return s.srv.Start(s.mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
