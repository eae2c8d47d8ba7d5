// Package pipeline drives folder scans: it lists book files, batches them,
// and runs each file through normalize → search → classify → detail →
// classify, recording exactly one sidecar outcome per file.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lmoreira/genretag/classifier"
	"github.com/lmoreira/genretag/config"
	"github.com/lmoreira/genretag/fetcher"
	"github.com/lmoreira/genretag/models"
	"github.com/lmoreira/genretag/normalizer"
	"github.com/lmoreira/genretag/parser"
	"github.com/lmoreira/genretag/store"
)

// Pipeline owns the collaborators for one or more folder scans.
type Pipeline struct {
	cfg        *config.Config
	fetch      *fetcher.Fetcher
	classify   classifier.Classifier
	normalize  *normalizer.Normalizer
	titleCache *lru.Cache[string, models.Outcome]
}

// New wires a pipeline from cfg. cleaner is the injected title-cleanup
// collaborator and may be nil.
func New(cfg *config.Config, cleaner normalizer.CleanFunc) (*Pipeline, error) {
	f, err := fetcher.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}
	return NewWithFetcher(cfg, f, cleaner)
}

// NewWithFetcher wires a pipeline around an existing fetcher. Used by the
// CLI to expose fetch metrics and by tests to install mock transports.
func NewWithFetcher(cfg *config.Config, f *fetcher.Fetcher, cleaner normalizer.CleanFunc) (*Pipeline, error) {
	cache, err := lru.New[string, models.Outcome](cfg.DedupeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build title cache: %w", err)
	}
	return &Pipeline{
		cfg:        cfg,
		fetch:      f,
		classify:   classifier.New(cfg.MinRatings),
		normalize:  normalizer.New(cleaner),
		titleCache: cache,
	}, nil
}

// Fetcher exposes the underlying fetcher.
func (p *Pipeline) Fetcher() *fetcher.Fetcher { return p.fetch }

// ProcessFolder scans one folder. Files that already have a sidecar are
// skipped, the rest run in fixed-size batches with a full barrier between
// batches. A single file's failure classifies that file as unknown and the
// scan continues; only cancellation stops the folder, and a cancelled item
// is never recorded.
func (p *Pipeline) ProcessFolder(ctx context.Context, dir string) (*models.ScanReport, error) {
	st := store.New(dir)

	files, err := st.ListBooks(p.cfg.Extension)
	if err != nil {
		return nil, err
	}

	report := &models.ScanReport{
		StartTime:  time.Now(),
		TotalFiles: len(files),
	}

	pending := files[:0:0]
	for _, file := range files {
		if st.Has(file) {
			report.Skipped++
			continue
		}
		pending = append(pending, file)
	}

	slog.Info("starting folder scan",
		slog.String("dir", dir),
		slog.Int("files", len(files)),
		slog.Int("pending", len(pending)),
		slog.Int("skipped", report.Skipped),
	)

	for start := 0; start < len(pending); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(pending))
		if err := p.processBatch(ctx, st, pending[start:end], report); err != nil {
			report.EndTime = time.Now()
			report.BlockEpisodes = p.fetch.BlockEpisodes()
			return report, err
		}
		slog.Info("batch complete",
			slog.Int("done", end),
			slog.Int("pending", len(pending)-end),
			slog.Int("genres", report.GenresFound),
			slog.Int("unpopular", report.Unpopular),
			slog.Int("unknown", report.Unknown),
		)
	}

	report.EndTime = time.Now()
	report.BlockEpisodes = p.fetch.BlockEpisodes()
	return report, nil
}

// processBatch runs one group of files to terminal outcomes and waits for
// all of them before returning. Items finish in whatever order the network
// allows; the barrier is the only ordering guarantee.
func (p *Pipeline) processBatch(ctx context.Context, st *store.Store, batch []string, report *models.ScanReport) error {
	items := make([]models.WorkItem, len(batch))
	for i, file := range batch {
		items[i] = models.WorkItem{
			Filename: file,
			Title:    p.normalize.Normalize(ctx, file),
		}
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error {
			outcome, cached := p.titleCache.Get(item.Title)
			if !cached {
				var err error
				outcome, err = p.processItem(gctx, item)
				if err != nil {
					// Only cancellation propagates; everything else
					// became an unknown outcome inside processItem.
					return err
				}
				p.titleCache.Add(item.Title, outcome)
			}

			// A cancelled item must never be recorded; it reprocesses on
			// the next run instead.
			if gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()
			if err := st.Write(item.Filename, outcome); err != nil {
				slog.Error("sidecar write failed", slog.String("file", item.Filename), slog.Any("error", err))
				report.FailedFiles = append(report.FailedFiles, item.Filename)
				return nil
			}
			p.count(report, outcome, cached)
			return nil
		})
	}
	return g.Wait()
}

// processItem runs one work item to a terminal outcome. Fetch and parse
// errors classify the item as unknown; the only error returned is the
// context's.
func (p *Pipeline) processItem(ctx context.Context, item models.WorkItem) (models.Outcome, error) {
	searchHTML, err := p.fetch.Fetch(ctx, p.cfg.SearchURL(item.Title), fetcher.PageSearch)
	if err != nil {
		if ctx.Err() != nil {
			return models.Outcome{}, ctx.Err()
		}
		p.logItemFailure(item, "search fetch", err)
		return models.Unknown(), nil
	}

	res, err := parser.ParseSearchPage(searchHTML, p.cfg.BaseURL)
	if err != nil {
		if err != parser.ErrNoMatch {
			p.logItemFailure(item, "search parse", err)
		} else {
			slog.Debug("no search results", slog.String("title", item.Title))
		}
		return models.Unknown(), nil
	}

	// Threshold and no-match are decided before any detail-page work so
	// already-decided books cost exactly one request.
	outcome, done := p.classify.AfterSearch(res)
	if done {
		return outcome, nil
	}

	detailHTML, err := p.fetch.Fetch(ctx, res.BookURL, fetcher.PageDetail)
	if err != nil {
		if ctx.Err() != nil {
			return models.Outcome{}, ctx.Err()
		}
		p.logItemFailure(item, "detail fetch", err)
		return models.Unknown(), nil
	}

	rec, err := parser.ParseDetailPage(detailHTML, res.BookURL)
	if err != nil {
		p.logItemFailure(item, "detail parse", err)
		return models.Unknown(), nil
	}

	return p.classify.AfterDetail(rec), nil
}

func (p *Pipeline) logItemFailure(item models.WorkItem, stage string, err error) {
	level := slog.LevelWarn
	if fetcher.IsBlocked(err) {
		// A block-shaped failure means the resulting unknown may be a
		// throttle artifact rather than a missing book.
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "item degraded to unknown",
		slog.String("file", item.Filename),
		slog.String("stage", stage),
		slog.Any("error", err),
	)
}

func (p *Pipeline) count(report *models.ScanReport, outcome models.Outcome, cached bool) {
	if cached {
		report.CacheHits++
	}
	switch outcome.Kind {
	case models.OutcomeGenres:
		report.GenresFound++
		p.fetch.Metrics.IncOutcome("genres")
	case models.OutcomeUnpopular:
		report.Unpopular++
		p.fetch.Metrics.IncOutcome("unpopular")
	default:
		report.Unknown++
		p.fetch.Metrics.IncOutcome("unknown")
	}
}
