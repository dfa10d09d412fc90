package worker

import (
	"context"

	"github.com/JonCoulter/whenly/core/config"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) EnqueueTallyRefresh(ctx context.Context, eventID string) error {
	task, err := NewTallyRefreshTask(eventID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	return err
}

func (c *Client) Close() error {
	return c.client.Close()
}
