package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eun-legal/backend/internal/storage/models"
)

const codeTable = "lf_code_law"

const codeTableBody = `
	id VARCHAR(32) PRIMARY KEY,
	title TEXT NOT NULL,
	title_full TEXT NOT NULL DEFAULT '',
	state VARCHAR(32) NOT NULL DEFAULT '',
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL`

// CodeRepository persists codes and statutes, the parent rows of articles.
type CodeRepository struct {
	db *Client
}

func NewCodeRepository(db *Client) *CodeRepository {
	return &CodeRepository{db: db}
}

func (r *CodeRepository) Init(ctx context.Context) error {
	return r.db.CreateTable(ctx, codeTable, codeTableBody)
}

func (r *CodeRepository) Create(ctx context.Context, c *models.CodeOrLaw) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO lf_code_law (id, title, title_full, state, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Title, c.TitleFull, c.State, c.StartDate, c.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert code %s: %w", c.ID, err)
	}
	return nil
}

func (r *CodeRepository) Read(ctx context.Context, id string) (*models.CodeOrLaw, error) {
	var c models.CodeOrLaw
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, title, title_full, state, start_date, end_date
		 FROM lf_code_law WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.TitleFull, &c.State, &c.StartDate, &c.EndDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read code %s: %w", id, err)
	}
	return &c, nil
}

func (r *CodeRepository) ReadAll(ctx context.Context) ([]models.CodeOrLaw, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, title, title_full, state, start_date, end_date
		 FROM lf_code_law ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	defer rows.Close()
	return scanCodes(rows)
}

// ReadAllLaws returns only the statute rows, recognized by their normalized
// title prefix.
func (r *CodeRepository) ReadAllLaws(ctx context.Context) ([]models.CodeOrLaw, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, title, title_full, state, start_date, end_date
		 FROM lf_code_law WHERE title LIKE 'LOI n° %' ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list laws: %w", err)
	}
	defer rows.Close()
	return scanCodes(rows)
}

func (r *CodeRepository) Update(ctx context.Context, c *models.CodeOrLaw) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE lf_code_law SET title = $2, title_full = $3, state = $4,
		 start_date = $5, end_date = $6 WHERE id = $1`,
		c.ID, c.Title, c.TitleFull, c.State, c.StartDate, c.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update code %s: %w", c.ID, err)
	}
	return nil
}

func (r *CodeRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.pool.Exec(ctx, `DELETE FROM lf_code_law WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete code %s: %w", id, err)
	}
	return nil
}

func (r *CodeRepository) Drop(ctx context.Context) error {
	return r.db.DropTable(ctx, codeTable)
}

func scanCodes(rows pgx.Rows) ([]models.CodeOrLaw, error) {
	var out []models.CodeOrLaw
	for rows.Next() {
		var c models.CodeOrLaw
		if err := rows.Scan(&c.ID, &c.Title, &c.TitleFull, &c.State, &c.StartDate, &c.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan code row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
