package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/config"
	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/scoring"
	"github.com/opexam/opexam-backend/internal/session"
	"github.com/opexam/opexam-backend/internal/timer"
)

// Session lookup errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session deadline has passed")
	ErrDurationTooLong = errors.New("requested duration exceeds the allowed maximum")
)

// ResultSink extends the engine's score sink with session-keyed retrieval,
// which keeps finish idempotent after the live engine has been retired.
type ResultSink interface {
	session.ScoreSink
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.ScoreBreakdown, error)
}

// SessionService owns the live session engines of this process. It wires
// each engine to the answer store and score sink, records session metadata
// in Redis for crash recovery, and finalizes sessions orphaned by a restart.
type SessionService struct {
	banks *BankService
	store session.AnswerStore
	sink  ResultSink
	rdb   *redis.Client
	cfg   *config.Config
	log   zerolog.Logger

	mu      sync.RWMutex
	engines map[uuid.UUID]*session.Engine
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	banks *BankService,
	store session.AnswerStore,
	sink ResultSink,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		banks:   banks,
		store:   store,
		sink:    sink,
		rdb:     rdb,
		cfg:     cfg,
		log:     log.With().Str("component", "session_service").Logger(),
		engines: make(map[uuid.UUID]*session.Engine),
	}
}

// Start creates and starts a new session against a question bank.
func (s *SessionService) Start(ctx context.Context, bankID uuid.UUID, durationMinutes int) (*session.Engine, error) {
	if durationMinutes <= 0 {
		return nil, session.ErrInvalidConfiguration
	}
	if durationMinutes > s.cfg.MaxSessionMinutes {
		return nil, ErrDurationTooLong
	}

	questions, err := s.banks.Fetch(ctx, bankID)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	id := uuid.New()
	eng := session.New(id, s.store, s.sink, timer.New(s.cfg.TickInterval), s.log)

	if err := s.recordMeta(ctx, id, bankID, time.Now().Add(duration)); err != nil {
		// Recovery metadata is best-effort: a session without it cannot be
		// swept after a crash but runs fine otherwise.
		s.log.Warn().Err(err).Str("session_id", id.String()).Msg("Session metadata write failed")
	}

	if err := eng.Start(ctx, questions, duration); err != nil {
		s.dropMeta(ctx, id)
		return nil, err
	}

	s.mu.Lock()
	s.engines[id] = eng
	s.mu.Unlock()

	return eng, nil
}

// Get returns the live engine for a session id.
func (s *SessionService) Get(sessionID uuid.UUID) (*session.Engine, error) {
	s.mu.RLock()
	eng, ok := s.engines[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return eng, nil
}

// Resume rebuilds a session whose engine was lost to a process restart,
// reloading its answers from the store and restarting the countdown from the
// original deadline.
func (s *SessionService) Resume(ctx context.Context, sessionID uuid.UUID) (*session.Engine, error) {
	if eng, err := s.Get(sessionID); err == nil {
		return eng, nil
	}

	meta, err := s.loadMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if meta.cancelled {
		return nil, ErrSessionNotFound
	}

	remaining := time.Until(meta.deadline)
	if remaining <= 0 {
		return nil, ErrSessionExpired
	}

	questions, err := s.banks.Fetch(ctx, meta.bankID)
	if err != nil {
		return nil, err
	}

	recovered, err := s.store.GetAll(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load recovered answers: %w", err)
	}

	eng := session.New(sessionID, s.store, s.sink, timer.New(s.cfg.TickInterval), s.log,
		session.WithRecoveredAnswers(recovered))
	if err := eng.Start(ctx, questions, remaining); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[sessionID] = eng
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("recovered_answers", len(recovered)).
		Msg("Session resumed")
	return eng, nil
}

// Finish submits a session and tears it down after a successful result write.
func (s *SessionService) Finish(ctx context.Context, sessionID uuid.UUID) (*model.ScoreBreakdown, error) {
	eng, err := s.Get(sessionID)
	if err != nil {
		// The engine is retired once its result is persisted; repeated
		// finishes answer from the persisted breakdown instead.
		if b, rerr := s.sink.GetBySessionID(ctx, sessionID); rerr == nil {
			return b, nil
		}
		return nil, err
	}

	b, err := eng.Finish(ctx)
	if err != nil {
		// Keep the engine registered if the result write failed so the
		// caller can retry finish; the breakdown itself is already final.
		return b, err
	}

	s.deregister(ctx, sessionID, true)
	return b, nil
}

// Cancel abandons a session without scoring. The answer replica stays until
// the deadline passes so the session can still be resumed.
func (s *SessionService) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	eng, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	eng.Cancel()

	if err := s.rdb.HSet(ctx, config.CacheKey.SessionMetaKey(sessionID.String()), "cancelled", 1).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Cancel flag write failed")
	}

	s.mu.Lock()
	delete(s.engines, sessionID)
	s.mu.Unlock()
	return nil
}

// SweepOrphans finalizes every tracked session whose deadline has passed and
// that no live engine owns: crashed-and-gone sessions are scored from their
// replica, cancelled ones are just cleaned up.
func (s *SessionService) SweepOrphans(ctx context.Context) (int, error) {
	ids, err := s.rdb.SMembers(ctx, config.CacheKey.ActiveSessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("list active sessions: %w", err)
	}

	swept := 0
	for _, raw := range ids {
		sessionID, err := uuid.Parse(raw)
		if err != nil {
			s.rdb.SRem(ctx, config.CacheKey.ActiveSessionsKey(), raw)
			continue
		}
		if eng, err := s.Get(sessionID); err == nil {
			// Running engines handle their own expiry. Finished ones whose
			// client never collected the result are retired here, retrying
			// the result write if it failed at expiry.
			if eng.Snapshot().State == model.SessionFinished {
				if _, ferr := eng.Finish(ctx); ferr == nil {
					s.deregister(ctx, sessionID, true)
					swept++
				}
			}
			continue
		}

		meta, err := s.loadMeta(ctx, sessionID)
		if err != nil {
			s.rdb.SRem(ctx, config.CacheKey.ActiveSessionsKey(), raw)
			continue
		}
		if time.Until(meta.deadline) > 0 {
			continue
		}

		if err := s.finalizeOrphan(ctx, sessionID, meta); err != nil {
			s.log.Error().Err(err).Str("session_id", raw).Msg("Orphan finalization failed")
			continue
		}
		swept++
	}
	return swept, nil
}

// finalizeOrphan scores an expired session from its recovery replica. For
// cancelled sessions the replica is discarded without scoring.
func (s *SessionService) finalizeOrphan(ctx context.Context, sessionID uuid.UUID, meta *sessionMeta) error {
	if !meta.cancelled {
		questions, err := s.banks.Fetch(ctx, meta.bankID)
		if err != nil {
			return fmt.Errorf("fetch bank: %w", err)
		}
		answers, err := s.store.GetAll(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("load replica: %w", err)
		}

		b := scoring.Score(questions, answers)
		if _, err := s.sink.Save(ctx, sessionID, b); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		s.log.Info().
			Str("session_id", sessionID.String()).
			Float64("percentage", b.Percentage).
			Msg("Orphaned session finalized")
	}

	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Replica cleanup failed")
	}
	s.dropMeta(ctx, sessionID)
	return nil
}

func (s *SessionService) deregister(ctx context.Context, sessionID uuid.UUID, dropMeta bool) {
	s.mu.Lock()
	delete(s.engines, sessionID)
	s.mu.Unlock()
	if dropMeta {
		s.dropMeta(ctx, sessionID)
	}
}

// ─── Session metadata (Redis) ───────────────────────────────────────

type sessionMeta struct {
	bankID    uuid.UUID
	deadline  time.Time
	cancelled bool
}

func (s *SessionService) recordMeta(ctx context.Context, sessionID, bankID uuid.UUID, deadline time.Time) error {
	key := config.CacheKey.SessionMetaKey(sessionID.String())
	if err := s.rdb.HSet(ctx, key,
		"bank_id", bankID.String(),
		"deadline", deadline.Unix(),
	).Err(); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, config.CacheKey.ActiveSessionsKey(), sessionID.String()).Err()
}

func (s *SessionService) loadMeta(ctx context.Context, sessionID uuid.UUID) (*sessionMeta, error) {
	key := config.CacheKey.SessionMetaKey(sessionID.String())
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load session meta: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrSessionNotFound
	}

	bankID, err := uuid.Parse(raw["bank_id"])
	if err != nil {
		return nil, fmt.Errorf("invalid bank id in session meta: %w", err)
	}
	deadlineUnix, err := strconv.ParseInt(raw["deadline"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline in session meta: %w", err)
	}

	return &sessionMeta{
		bankID:    bankID,
		deadline:  time.Unix(deadlineUnix, 0),
		cancelled: raw["cancelled"] == "1",
	}, nil
}

func (s *SessionService) dropMeta(ctx context.Context, sessionID uuid.UUID) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.SessionMetaKey(sessionID.String()))
	pipe.SRem(ctx, config.CacheKey.ActiveSessionsKey(), sessionID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Session metadata cleanup failed")
	}
}
