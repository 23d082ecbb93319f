package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SequenceService assigns gapless document numbers of the form
// CODE-YYYY-NNNNN, per company, per code, per year. Numbers are drawn
// inside the caller's transaction so an aborted operation never burns one.
type SequenceService interface {
	NextNumberTx(ctx context.Context, tx pgx.Tx, companyID int, code string, year int) (string, error)
}

type sequenceService struct{}

// NewSequenceService constructs the PostgreSQL-backed sequence service.
func NewSequenceService() SequenceService {
	return &sequenceService{}
}

func (s *sequenceService) NextNumberTx(ctx context.Context, tx pgx.Tx, companyID int, code string, year int) (string, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO sequences (company_id, code, year, next_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (company_id, code, year) DO NOTHING`,
		companyID, code, year,
	); err != nil {
		return "", fmt.Errorf("ensure sequence %s/%d: %w", code, year, err)
	}

	var value int
	if err := tx.QueryRow(ctx, `
		SELECT next_value FROM sequences
		WHERE company_id = $1 AND code = $2 AND year = $3
		FOR UPDATE`,
		companyID, code, year,
	).Scan(&value); err != nil {
		return "", fmt.Errorf("lock sequence %s/%d: %w", code, year, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sequences SET next_value = next_value + 1
		WHERE company_id = $1 AND code = $2 AND year = $3`,
		companyID, code, year,
	); err != nil {
		return "", fmt.Errorf("advance sequence %s/%d: %w", code, year, err)
	}

	return fmt.Sprintf("%s-%d-%05d", code, year, value), nil
}
