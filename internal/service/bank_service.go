package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/config"
	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/repository"
)

// ErrNoQuestionsAvailable is returned when a session is started against a
// bank that has no questions.
var ErrNoQuestionsAvailable = errors.New("question bank has no questions")

// BankService is the question bank provider. Question payloads are cached in
// Redis so session starts bypass PostgreSQL on the hot path; the cache is
// invalidated whenever a bank's questions are replaced.
type BankService struct {
	bankRepo     *repository.BankRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewBankService creates a new BankService.
func NewBankService(
	bankRepo *repository.BankRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *BankService {
	return &BankService{
		bankRepo:     bankRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "bank_service").Logger(),
	}
}

// CreateBank inserts a new, empty question bank.
func (s *BankService) CreateBank(ctx context.Context, bank *model.QuestionBank) error {
	return s.bankRepo.Create(ctx, bank)
}

// GetBank retrieves a bank by id.
func (s *BankService) GetBank(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	return s.bankRepo.GetByID(ctx, id)
}

// ListBanks retrieves all banks.
func (s *BankService) ListBanks(ctx context.Context) ([]model.QuestionBank, error) {
	return s.bankRepo.List(ctx)
}

// ReplaceQuestions swaps a bank's entire question list. Type tags are
// resolved here, once, so nothing downstream ever sees a raw string tag.
func (s *BankService) ReplaceQuestions(ctx context.Context, bankID uuid.UUID, reqs []model.AddQuestionRequest) ([]model.Question, error) {
	if _, err := s.bankRepo.GetByID(ctx, bankID); err != nil {
		return nil, fmt.Errorf("get bank: %w", err)
	}

	questions := make([]model.Question, 0, len(reqs))
	for i, req := range reqs {
		qType, err := model.ParseQuestionType(req.Type)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if qType.HasOptions() && len(req.Options) == 0 {
			return nil, fmt.Errorf("question %d: type %s requires options", i, qType)
		}
		if qType.AutoScored() && req.CorrectAnswer == "" {
			return nil, fmt.Errorf("question %d: type %s requires a correct answer", i, qType)
		}
		points := req.Points
		if points <= 0 {
			points = 1
		}
		orderNum := req.OrderNum
		if orderNum == 0 {
			orderNum = i
		}
		questions = append(questions, model.Question{
			BankID:        bankID,
			Text:          req.Text,
			Type:          qType,
			Options:       req.Options,
			CorrectAnswer: req.CorrectAnswer,
			Points:        points,
			OrderNum:      orderNum,
		})
	}

	if err := s.questionRepo.ReplaceForBank(ctx, bankID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	// Drop the stale payload; the next Fetch repopulates it.
	if err := s.rdb.Del(ctx, config.CacheKey.BankPayloadKey(bankID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("bank_id", bankID.String()).Msg("Bank cache invalidation failed")
	}

	return questions, nil
}

// Fetch returns a bank's ordered question list, serving from the Redis
// payload cache and falling back to PostgreSQL on a miss.
func (s *BankService) Fetch(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.BankPayloadKey(bankID.String())

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var questions []model.Question
		if err := json.Unmarshal([]byte(cached), &questions); err == nil && len(questions) > 0 {
			return questions, nil
		}
		// Corrupt or empty payload: fall through to the database.
		s.log.Warn().Str("bank_id", bankID.String()).Msg("Discarding unusable bank payload cache")
	} else if !errors.Is(err, redis.Nil) {
		// A Redis outage must not block session starts.
		s.log.Warn().Err(err).Msg("Bank payload cache read failed")
	}

	questions, err := s.questionRepo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	if raw, err := json.Marshal(questions); err == nil {
		if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Bank payload cache write failed")
		}
	}

	return questions, nil
}

// PrewarmAllCaches loads every bank's payload into Redis on startup so the
// first session start never races a lazy cache fill.
func (s *BankService) PrewarmAllCaches(ctx context.Context) error {
	banks, err := s.bankRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list banks: %w", err)
	}

	warmed := 0
	for _, b := range banks {
		if b.QuestionCount == 0 {
			continue
		}
		if _, err := s.Fetch(ctx, b.ID); err != nil {
			s.log.Warn().Err(err).Str("bank_id", b.ID.String()).Msg("Prewarm failed for bank")
			continue
		}
		warmed++
	}

	s.log.Info().Int("banks", warmed).Msg("Bank payload caches warmed")
	return nil
}
