// Package resultlog publishes a summary of each tap run to Redis so
// an orchestrator can poll or subscribe for completion without
// parsing the message stream.
package resultlog

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/queuebridge/tap-mssql/pkg/config"
)

// RunResult is the published document.
//
// Redis keys:
//
//	SET  tap:run:<name>:state  <JSON>  EX <ttl>  — for GET polling
//	PUB  tap:run:<name>                          — for event-driven routing
type RunResult struct {
	TapName         string    `json:"tap_name"`
	ResultName      string    `json:"result_name"`
	Status          string    `json:"status"` // "success" | "failed"
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationMs      int64     `json:"duration_ms"`
	StreamsSynced   int       `json:"streams_synced"`
	RecordsExported int64     `json:"records_exported"`
	Error           *string   `json:"error,omitempty"`
}

// Publisher writes run results to Redis.
type Publisher struct {
	client *redis.Client
	cfg    *config.ResultLogConfig
}

// NewPublisher creates a publisher from the result_log configuration.
func NewPublisher(cfg *config.ResultLogConfig) *Publisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Publisher{client: client, cfg: cfg}
}

// Publish records the outcome of a run, success or failure.
// execErr == nil means the run succeeded.
func (p *Publisher) Publish(ctx context.Context, startedAt, finishedAt time.Time, streams int, records int64, execErr error) error {
	result := RunResult{
		TapName:         "tap-mssql",
		ResultName:      p.cfg.Name,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		DurationMs:      finishedAt.Sub(startedAt).Milliseconds(),
		StreamsSynced:   streams,
		RecordsExported: records,
	}

	if execErr != nil {
		result.Status = "failed"
		errStr := execErr.Error()
		result.Error = &errStr
	} else {
		result.Status = "success"
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	stateKey := fmt.Sprintf("tap:run:%s:state", p.cfg.Name)
	eventChannel := fmt.Sprintf("tap:run:%s", p.cfg.Name)
	ttl := time.Duration(p.cfg.TTL) * time.Second

	if err := p.client.Set(ctx, stateKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, eventChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
