package postgres

import (
	"context"
	"fmt"

	"github.com/eun-legal/backend/internal/storage/models"
)

const decisionCacheTableBody = `
	id VARCHAR(64) PRIMARY KEY,
	decision_date VARCHAR(10) NOT NULL`

// DecisionCacheRepository stores the ids collected by the export crawl for
// one jurisdiction, to be consumed later by the decision import.
type DecisionCacheRepository struct {
	db    *Client
	table string
}

func NewDecisionCacheRepository(db *Client, jurisdiction string) (*DecisionCacheRepository, error) {
	table := fmt.Sprintf("jl_decision_cache_%s", jurisdiction)
	if _, err := quoteIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid jurisdiction %q", jurisdiction)
	}
	return &DecisionCacheRepository{db: db, table: table}, nil
}

func (r *DecisionCacheRepository) Init(ctx context.Context) error {
	return r.db.CreateTable(ctx, r.table, decisionCacheTableBody)
}

// Create inserts an entry, ignoring duplicates: export pages overlap when
// the crawl resumes and replays are expected.
func (r *DecisionCacheRepository) Create(ctx context.Context, e *models.DecisionCacheEntry) error {
	_, err := r.db.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, decision_date) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`, r.table),
		e.ID, e.DecisionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry %s: %w", e.ID, err)
	}
	return nil
}

// ReadPage returns entries ordered by id, for stable paging across calls.
func (r *DecisionCacheRepository) ReadPage(ctx context.Context, offset, limit int) ([]models.DecisionCacheEntry, error) {
	rows, err := r.db.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, decision_date FROM %s ORDER BY id OFFSET $1 LIMIT $2`, r.table),
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache page: %w", err)
	}
	defer rows.Close()

	var out []models.DecisionCacheEntry
	for rows.Next() {
		var e models.DecisionCacheEntry
		if err := rows.Scan(&e.ID, &e.DecisionDate); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *DecisionCacheRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

func (r *DecisionCacheRepository) Drop(ctx context.Context) error {
	return r.db.DropTable(ctx, r.table)
}
