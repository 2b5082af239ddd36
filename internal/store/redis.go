// Package store provides Answer Store implementations: the durable
// write-through replica a session engine checkpoints into.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/config"
	"github.com/opexam/opexam-backend/internal/model"
)

// RedisStore keeps each session's answers in a Redis hash and queues every
// write for durable persistence by the autosave worker. It is a recovery
// replica, never the authoritative read path of a running session.
type RedisStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisStore creates a Redis-backed answer store.
func NewRedisStore(rdb *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: log.With().Str("component", "answer_store").Logger(),
	}
}

// Put upserts one answer in the session's hash and enqueues it for the
// autosave worker.
func (s *RedisStore) Put(ctx context.Context, sessionID uuid.UUID, a model.Answer) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	if err := s.rdb.HSet(ctx, key, a.QuestionID.String(), raw).Err(); err != nil {
		return fmt.Errorf("replica write: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"session_id":  sessionID.String(),
		"question_id": a.QuestionID.String(),
		"value":       a.Value,
		"flagged":     a.Flagged,
		"answered_at": a.AnsweredAt.Format(time.RFC3339Nano),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		// The hash write already succeeded; recovery still works. Queue loss
		// only delays the Postgres copy.
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Answer queue push failed")
	}
	return nil
}

// GetAll loads every answer checkpointed for a session.
func (s *RedisStore) GetAll(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]model.Answer, error) {
	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("replica read: %w", err)
	}

	answers := make(map[uuid.UUID]model.Answer, len(raw))
	for field, val := range raw {
		qid, err := uuid.Parse(field)
		if err != nil {
			s.log.Warn().Str("field", field).Msg("Skipping malformed replica field")
			continue
		}
		var a model.Answer
		if err := json.Unmarshal([]byte(val), &a); err != nil {
			s.log.Warn().Err(err).Str("question_id", field).Msg("Skipping malformed replica answer")
			continue
		}
		answers[qid] = a
	}
	return answers, nil
}

// Clear drops a session's replica after its result has been persisted.
func (s *RedisStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	return s.rdb.Del(ctx, key).Err()
}
