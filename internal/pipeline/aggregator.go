package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/extract"
	"newsflash-bot/internal/fetcher"
	"newsflash-bot/internal/news"
	"newsflash-bot/internal/normalize"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/registry"
)

type stage string

const (
	stageFetch     stage = "fetch"
	stageExtract   stage = "extract"
	stageNormalize stage = "normalize"
)

// Aggregator runs every source of a category through fetch, extract and
// normalize, isolating failures per source.
type Aggregator struct {
	registry   *registry.Registry
	fetchers   map[registry.Strategy]fetcher.Fetcher
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	logger     *observability.Logger
	metrics    *observability.Metrics

	concurrency     int
	sourceTimeout   time.Duration
	categoryTimeout time.Duration
}

func New(
	cfg *config.Config,
	reg *registry.Registry,
	fetchers map[registry.Strategy]fetcher.Fetcher,
	ext *extract.Extractor,
	norm *normalize.Normalizer,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Aggregator {
	return &Aggregator{
		registry:        reg,
		fetchers:        fetchers,
		extractor:       ext,
		normalizer:      norm,
		logger:          logger,
		metrics:         metrics,
		concurrency:     cfg.Aggregator.Concurrency,
		sourceTimeout:   cfg.GetSourceTimeout(),
		categoryTimeout: cfg.GetCategoryTimeout(),
	}
}

// FetchCategory returns one entry per registered source of category. The
// error is non-nil only when the category itself is unknown.
func (a *Aggregator) FetchCategory(ctx context.Context, category news.Category) (news.CategoryResult, error) {
	if _, err := news.ParseCategory(string(category)); err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.IncrementCategoryRequests(string(category))
	}

	logger := a.logger.With("request_id", uuid.NewString(), "category", string(category))
	descs := a.registry.Lookup(category)

	if a.categoryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.categoryTimeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("Fetching category", "sources", len(descs))

	results := make([]news.SourceResult, len(descs))
	g := new(errgroup.Group)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, d := range descs {
		i, d := i, d
		g.Go(func() error {
			results[i] = a.runSource(ctx, d, logger)
			return nil
		})
	}
	_ = g.Wait()

	out := make(news.CategoryResult, len(descs))
	failed := 0
	for i, d := range descs {
		out[d.ID] = results[i]
		if results[i].Error != "" {
			failed++
		}
	}

	logger.Info("Category completed",
		"sources", len(descs),
		"with_errors", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// FetchSource runs a single source on demand.
func (a *Aggregator) FetchSource(ctx context.Context, id string) (news.SourceResult, error) {
	d, err := a.registry.LookupOne(id)
	if err != nil {
		return news.SourceResult{}, err
	}
	if a.categoryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.categoryTimeout)
		defer cancel()
	}
	logger := a.logger.With("request_id", uuid.NewString())
	return a.runSource(ctx, d, logger), nil
}

func (a *Aggregator) runSource(ctx context.Context, d registry.Descriptor, logger *observability.Logger) (res news.SourceResult) {
	logger = logger.With("source", d.ID, "strategy", string(d.Strategy))
	start := time.Now()
	current := stageFetch

	defer func() {
		if r := recover(); r != nil {
			res = news.SourceResult{Items: []news.Item{}, Error: fmt.Sprintf("%s: panic: %v", current, r)}
		}
		elapsed := time.Since(start)
		if res.Error != "" && len(res.Items) == 0 {
			logger.Warn("Source failed", "error", res.Error, "duration_ms", elapsed.Milliseconds())
			if a.metrics != nil {
				a.metrics.RecordFailure(d.ID, res.Error, elapsed)
			}
			return
		}
		logger.Info("Source done", "items", len(res.Items), "warning", res.Error, "duration_ms", elapsed.Milliseconds())
		if a.metrics != nil {
			a.metrics.RecordSuccess(d.ID, len(res.Items), elapsed)
		}
	}()

	f, ok := a.fetchers[d.Strategy]
	if !ok || f == nil {
		return failed(stageFetch, fmt.Errorf("no fetcher for strategy %q", d.Strategy))
	}

	timeout := a.sourceTimeout
	if dt := d.Timeout(); dt > timeout {
		timeout = dt
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var lastErr string
	for i, u := range d.URLs() {
		if i > 0 {
			if ctx.Err() != nil {
				break
			}
			logger.Info("Trying alternate URL", "url", u, "previous_error", lastErr)
		}

		current = stageFetch
		logger.Debug("Fetching", "url", u)
		resp, err := f.Fetch(ctx, fetcher.RequestFor(d, u))
		if err != nil {
			lastErr = render(stageFetch, err)
			continue
		}

		current = stageExtract
		cands, err := a.extractor.Extract(resp.Body, d.Rule)
		var partial *extract.PartialError
		if err != nil && !errors.As(err, &partial) {
			lastErr = render(stageExtract, err)
			continue
		}

		current = stageNormalize
		res = news.SourceResult{Items: a.normalizer.NormalizeAll(cands, d)}
		if partial != nil {
			res.Error = render(stageExtract, partial)
		}
		return res
	}

	return news.SourceResult{Items: []news.Item{}, Error: lastErr}
}

func failed(s stage, err error) news.SourceResult {
	return news.SourceResult{Items: []news.Item{}, Error: render(s, err)}
}

func render(s stage, err error) string {
	return fmt.Sprintf("%s: %v", s, err)
}
