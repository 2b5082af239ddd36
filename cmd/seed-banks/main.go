package main

import (
	"context"
	"fmt"
	"time"

	"github.com/opexam/opexam-backend/internal/config"
	"github.com/opexam/opexam-backend/internal/database"
	"github.com/opexam/opexam-backend/internal/logger"
	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/repository"
	"github.com/opexam/opexam-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	bankRepo := repository.NewBankRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	bankService := service.NewBankService(bankRepo, questionRepo, rdb, log)

	fmt.Println("=== Seeding Demo Question Banks ===")

	bank := &model.QuestionBank{
		Name:        "General Knowledge Demo",
		Description: "Mixed-type demo bank used for smoke testing sessions.",
	}
	if err := bankService.CreateBank(ctx, bank); err != nil {
		log.Fatal().Err(err).Msg("Failed to create bank")
	}
	fmt.Printf("Created bank %s (%s)\n", bank.Name, bank.ID)

	questions := []model.AddQuestionRequest{
		{
			Text: "Which planet is known as the Red Planet?",
			Type: "MULTIPLE_CHOICE",
			Options: []model.Option{
				{ID: "A", Text: "Venus"},
				{ID: "B", Text: "Mars"},
				{ID: "C", Text: "Jupiter"},
				{ID: "D", Text: "Mercury"},
			},
			CorrectAnswer: "B",
			Points:        2,
		},
		{
			Text:          "The Pacific is the largest ocean on Earth.",
			Type:          "TRUE_FALSE",
			Options:       []model.Option{{ID: "true", Text: "True"}, {ID: "false", Text: "False"}},
			CorrectAnswer: "true",
			Points:        1,
		},
		{
			Text:          "What is the chemical symbol for gold?",
			Type:          "SHORT_ANSWER",
			CorrectAnswer: "Au",
			Points:        2,
		},
		{
			Text:          "Water boils at ___ degrees Celsius at sea level.",
			Type:          "FILL_BLANK",
			CorrectAnswer: "100",
			Points:        1,
		},
		{
			Text:   "Explain the difference between weather and climate.",
			Type:   "DESCRIPTIVE",
			Points: 5,
		},
	}

	inserted, err := bankService.ReplaceQuestions(ctx, bank.ID, questions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed questions")
	}

	fmt.Printf("\nSeed completed! Added %d questions to bank %s.\n", len(inserted), bank.ID)
}
