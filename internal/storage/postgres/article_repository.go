package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/eun-legal/backend/internal/storage/models"
)

const articleTable = "lf_article"

const articleTableBody = `
	id VARCHAR(32) PRIMARY KEY,
	code_id VARCHAR(32) NOT NULL REFERENCES lf_code_law(id) ON DELETE CASCADE,
	number VARCHAR(64) NOT NULL,
	text TEXT NOT NULL,
	state VARCHAR(32) NOT NULL DEFAULT '',
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL`

// ArticleRepository persists individual articles. Rows cascade away with
// their parent code.
type ArticleRepository struct {
	db *Client
}

func NewArticleRepository(db *Client) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) Init(ctx context.Context) error {
	return r.db.CreateTable(ctx, articleTable, articleTableBody)
}

func (r *ArticleRepository) Create(ctx context.Context, a *models.Article) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO lf_article (id, code_id, number, text, state, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.CodeID, a.Number, a.Text, a.State, a.StartDate, a.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article %s: %w", a.ID, err)
	}
	return nil
}

func (r *ArticleRepository) Read(ctx context.Context, id string) (*models.Article, error) {
	var a models.Article
	err := r.db.pool.QueryRow(ctx,
		`SELECT id, code_id, number, text, state, start_date, end_date
		 FROM lf_article WHERE id = $1`, id,
	).Scan(&a.ID, &a.CodeID, &a.Number, &a.Text, &a.State, &a.StartDate, &a.EndDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read article %s: %w", id, err)
	}
	return &a, nil
}

// ReadByCode returns all articles attached to the given code or law.
func (r *ArticleRepository) ReadByCode(ctx context.Context, codeID string) ([]models.Article, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, code_id, number, text, state, start_date, end_date
		 FROM lf_article WHERE code_id = $1`, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles for %s: %w", codeID, err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.CodeID, &a.Number, &a.Text, &a.State, &a.StartDate, &a.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ArticleRepository) Update(ctx context.Context, a *models.Article) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE lf_article SET code_id = $2, number = $3, text = $4, state = $5,
		 start_date = $6, end_date = $7 WHERE id = $1`,
		a.ID, a.CodeID, a.Number, a.Text, a.State, a.StartDate, a.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update article %s: %w", a.ID, err)
	}
	return nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.pool.Exec(ctx, `DELETE FROM lf_article WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article %s: %w", id, err)
	}
	return nil
}

func (r *ArticleRepository) Drop(ctx context.Context) error {
	return r.db.DropTable(ctx, articleTable)
}
