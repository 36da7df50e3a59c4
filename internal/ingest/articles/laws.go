package articles

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/ingest"
	"github.com/eun-legal/backend/internal/ingest/progress"
	"github.com/eun-legal/backend/internal/metrics"
	"github.com/eun-legal/backend/internal/sourceapi/legifrance"
	"github.com/eun-legal/backend/pkg/abort"
	"github.com/eun-legal/backend/pkg/logger"
	"github.com/eun-legal/backend/pkg/retry"
)

// boilerplate matches the notice LegiFrance substitutes for articles whose
// only content is a list of modifications to other texts. Those carry no
// law text of their own and are skipped.
var boilerplate = regexp.MustCompile(`(?i)\b(?:a|ont)?\s*(modifié|abrogé|créé|modifié ou créé|modifié ou abrogé) les dispositions suivantes\b`)

// lawTitleDate locates the signature date inside a statute title. The part
// after the date is a free-form description that bloats titles past any
// useful length.
var lawTitleDate = regexp.MustCompile(`\bdu (\d{1,2}|1er)(?:er)? (janvier|février|mars|avril|mai|juin|juillet|août|septembre|octobre|novembre|décembre) (\d{4})`)

var frenchMonths = map[string]int{
	"janvier": 1, "février": 2, "mars": 3, "avril": 4,
	"mai": 5, "juin": 6, "juillet": 7, "août": 8,
	"septembre": 9, "octobre": 10, "novembre": 11, "décembre": 12,
}

// ImportLaws imports every statute currently in force. Unlike the code
// import, one broken statute does not fail the run: it is logged and the
// crawl moves on.
func (p *Pipeline) ImportLaws(ctx context.Context, tok abort.Token, target ingest.Target) error {
	metrics.ImportRuns.WithLabelValues("legifrance").Inc()
	defer metrics.ImportRuns.WithLabelValues("legifrance").Dec()

	list, err := retry.DoWithResult(ctx, p.retryCfg, func() (*legifrance.TextListPage, error) {
		return p.api.ListLaws(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to list laws: %w", err)
	}

	logger.Info("Importing laws", zap.Int("count", len(list.Results)))

	for _, summary := range list.Results {
		if tok.Aborted() {
			return ingest.ErrAborted
		}

		if err := p.importLaw(ctx, tok, summary, target); err != nil {
			if errors.Is(err, ingest.ErrAborted) {
				return err
			}
			metrics.ImportErrors.WithLabelValues("legifrance", "law").Inc()
			logger.Error("Skipping law",
				zap.String("law", summary.ID),
				zap.String("title", summary.Title),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (p *Pipeline) importLaw(ctx context.Context, tok abort.Token, summary legifrance.TextSummary, target ingest.Target) error {
	runID := uuid.NewString()

	title, date := shortenLawTitle(summary.Title)
	if date == "" {
		date = "2999-01-01"
	}

	root, err := retry.DoWithResult(ctx, p.retryCfg, func() (*legifrance.TextRoot, error) {
		return p.api.ConsultText(ctx, summary.ID, date)
	})
	if err != nil {
		return fmt.Errorf("failed to consult law: %w", err)
	}

	row := codeRow(root, &summary)
	row.Title = title

	stubs := filterBoilerplate(collectStubs(root))
	return p.importText(ctx, tok, runID, row, stubs, target)
}

// ImportFromStore re-embeds every stored article into the vector store
// without calling the source API, for rebuilding a collection after an
// embedding model change.
func (p *Pipeline) ImportFromStore(ctx context.Context, tok abort.Token) error {
	runID := uuid.NewString()
	metrics.ImportRuns.WithLabelValues("legifrance").Inc()
	defer metrics.ImportRuns.WithLabelValues("legifrance").Dec()

	col, err := p.collection(ctx)
	if err != nil {
		return err
	}

	codes, err := p.codes.ReadAll(ctx)
	if err != nil {
		return err
	}

	for _, code := range codes {
		rows, err := p.articles.ReadByCode(ctx, code.ID)
		if err != nil {
			return err
		}

		for i := range rows {
			if tok.Aborted() {
				return ingest.ErrAborted
			}

			art := rows[i]
			if err := p.embedArticle(ctx, tok, col, &code, &art); err != nil {
				if errors.Is(err, ingest.ErrAborted) {
					return err
				}
				metrics.ImportErrors.WithLabelValues("legifrance", "reembed").Inc()
				logger.Error("Skipping stored article",
					zap.String("article", art.ID),
					zap.Error(err),
				)
				continue
			}

			p.publishProgress(runID, art.Number, i+1, len(rows), code.Title)
		}
	}

	return nil
}

func (p *Pipeline) publishProgress(runID, entity string, current, total int, message string) {
	p.broadcaster.Publish(progress.Event{
		RunID:   runID,
		Source:  "legifrance",
		Entity:  entity,
		Current: current,
		Total:   total,
		Message: message,
	})
}

func filterBoilerplate(stubs []legifrance.ArticleStub) []legifrance.ArticleStub {
	out := stubs[:0:0]
	for _, s := range stubs {
		if boilerplate.MatchString(s.Content) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// shortenLawTitle cuts a statute title right after its signature date and
// returns that date in ISO form, empty when no date is present.
func shortenLawTitle(title string) (string, string) {
	loc := lawTitleDate.FindStringSubmatchIndex(title)
	if loc == nil {
		return title, ""
	}

	m := lawTitleDate.FindStringSubmatch(title)
	day := m[1]
	if day == "1er" {
		day = "1"
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return title, ""
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return title, ""
	}

	short := strings.TrimSpace(title[:loc[1]])
	date := fmt.Sprintf("%04d-%02d-%02d", year, frenchMonths[m[2]], d)
	return short, date
}
