package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventSink accepts proctoring events for durable persistence.
type EventSink interface {
	Enqueue(ctx context.Context, e model.ProctoringEvent) error
}

// RedisEventSink queues events on a Redis list for batch persistence by the
// proctoring worker. When the queue push fails the event is written straight
// to Postgres instead, trading throughput for durability.
type RedisEventSink struct {
	rdb    *redis.Client
	events *repository.ProctoringRepository
	log    zerolog.Logger
}

// NewRedisEventSink creates a new RedisEventSink.
func NewRedisEventSink(rdb *redis.Client, events *repository.ProctoringRepository, log zerolog.Logger) *RedisEventSink {
	return &RedisEventSink{
		rdb:    rdb,
		events: events,
		log:    log.With().Str("component", "event_sink").Logger(),
	}
}

// Enqueue pushes one event onto the persistence queue.
func (s *RedisEventSink) Enqueue(ctx context.Context, e model.ProctoringEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistEventsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", e.SessionID.String()).Msg("Queue push failed, writing event directly")
		return s.events.Insert(ctx, e)
	}
	return nil
}
