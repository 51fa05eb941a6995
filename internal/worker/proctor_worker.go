package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ProctorWorker drains the proctoring event queue into Postgres in batches.
// The queue is a buffer, not a source of truth: events that cannot be written
// are requeued so the durable log eventually catches up.
type ProctorWorker struct {
	events *repository.ProctoringRepository
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewProctorWorker creates a new ProctorWorker.
func NewProctorWorker(events *repository.ProctoringRepository, rdb *redis.Client, log zerolog.Logger) *ProctorWorker {
	return &ProctorWorker{
		events: events,
		rdb:    rdb,
		log:    log.With().Str("component", "proctor_worker").Logger(),
	}
}

// Start runs the drain loop until ctx is cancelled.
func (w *ProctorWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProctorWorker started")

	buffer := make([]model.ProctoringEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event model.ProctoringEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON can never succeed on retry. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}
		if !event.Type.Valid() {
			w.log.Error().Str("type", string(event.Type)).Msg("Discarding event with unknown type")
			continue
		}

		buffer = append(buffer, event)
	}
}

// flushSafe attempts bulk insert, then row-by-row fallback, then requeue.
func (w *ProctorWorker) flushSafe(ctx context.Context, batch []model.ProctoringEvent) {
	if err := w.events.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ProctorWorker) fallbackInsert(ctx context.Context, batch []model.ProctoringEvent) {
	requeueList := make([]model.ProctoringEvent, 0)

	for _, e := range batch {
		if err := w.events.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Str("session_id", e.SessionID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctorWorker) requeue(ctx context.Context, items []model.ProctoringEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue events to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed events back to Redis")
	// Sleep a bit to avoid thrashing if the DB is down hard
	time.Sleep(2 * time.Second)
}

func (w *ProctorWorker) shutdown(buffer []model.ProctoringEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
