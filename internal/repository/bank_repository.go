package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opexam/opexam-backend/internal/model"
)

// BankRepository handles question bank data access.
type BankRepository struct {
	pool *pgxpool.Pool
}

// NewBankRepository creates a new BankRepository.
func NewBankRepository(pool *pgxpool.Pool) *BankRepository {
	return &BankRepository{pool: pool}
}

// Create inserts a new question bank.
func (r *BankRepository) Create(ctx context.Context, b *model.QuestionBank) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_banks (name, description)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		b.Name, b.Description,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID retrieves a bank with its question count.
func (r *BankRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	b := &model.QuestionBank{}
	err := r.pool.QueryRow(ctx,
		`SELECT b.id, b.name, b.description, b.created_at, b.updated_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id)
		 FROM question_banks b
		 WHERE b.id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt, &b.QuestionCount)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// List retrieves all banks ordered by name.
func (r *BankRepository) List(ctx context.Context) ([]model.QuestionBank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.name, b.description, b.created_at, b.updated_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id)
		 FROM question_banks b
		 ORDER BY b.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banks []model.QuestionBank
	for rows.Next() {
		var b model.QuestionBank
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt, &b.QuestionCount); err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}
