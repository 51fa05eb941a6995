package service

import (
	"context"
	"time"

	"github.com/examind/examind-backend/internal/config"
	"github.com/examind/examind-backend/internal/integrity"
	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// counterTTL bounds how long per-session counters live in Redis. Sessions are
// hours long at most; the durable event log covers anything older.
const counterTTL = 24 * time.Hour

// penalizable lists the event types that feed the integrity score. Reconnects
// are logged but never counted.
var penalizable = []model.EventType{
	model.EventFocusLost,
	model.EventTabSwitch,
	model.EventWebcamFlag,
}

// EventCounter keeps live per-session proctoring counts in Redis so hard-cap
// checks stay off the database hot path. Redis is a cache here, not the
// source of truth: when it is unavailable or evicted the counts are rebuilt
// from the durable event log.
type EventCounter struct {
	rdb    *redis.Client
	events *repository.ProctoringRepository
	log    zerolog.Logger
}

// NewEventCounter creates a new EventCounter.
func NewEventCounter(rdb *redis.Client, events *repository.ProctoringRepository, log zerolog.Logger) *EventCounter {
	return &EventCounter{
		rdb:    rdb,
		events: events,
		log:    log.With().Str("component", "event_counter").Logger(),
	}
}

// Incr bumps the counter for one event type and returns the session's current
// counts. Non-penalizable types are not counted; the call still returns the
// current totals.
func (c *EventCounter) Incr(ctx context.Context, sessionID uuid.UUID, t model.EventType) (integrity.Counts, error) {
	isPenalizable := false
	for _, p := range penalizable {
		if t == p {
			isPenalizable = true
			break
		}
	}

	if isPenalizable {
		key := config.CacheKey.SessionEventCountKey(sessionID.String(), string(t))
		pipe := c.rdb.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, counterTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Counter increment failed, falling back to durable log")
			return c.events.CountsBySession(ctx, sessionID)
		}
	}

	return c.Counts(ctx, sessionID)
}

// Counts returns the session's per-type event totals. Reads Redis first and
// falls back to the durable log when the counters are missing or Redis errors.
func (c *EventCounter) Counts(ctx context.Context, sessionID uuid.UUID) (integrity.Counts, error) {
	keys := make([]string, len(penalizable))
	for i, t := range penalizable {
		keys[i] = config.CacheKey.SessionEventCountKey(sessionID.String(), string(t))
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Counter read failed, falling back to durable log")
		return c.events.CountsBySession(ctx, sessionID)
	}

	// All keys absent is ambiguous: either a clean session or an evicted
	// counter set. The durable log answers both correctly.
	allNil := true
	var counts integrity.Counts
	for i, v := range vals {
		if v == nil {
			continue
		}
		allNil = false
		n := parseCounter(v)
		switch penalizable[i] {
		case model.EventFocusLost:
			counts.FocusLost = n
		case model.EventTabSwitch:
			counts.TabSwitch = n
		case model.EventWebcamFlag:
			counts.WebcamFlag = n
		}
	}
	if allNil {
		return c.events.CountsBySession(ctx, sessionID)
	}
	return counts, nil
}

func parseCounter(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
