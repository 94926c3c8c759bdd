package scheduler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/backend"
	"github.com/rohmanhakim/booth-archiver/internal/booth"
	"github.com/rohmanhakim/booth-archiver/internal/cache"
	"github.com/rohmanhakim/booth-archiver/internal/config"
	"github.com/rohmanhakim/booth-archiver/internal/fetcher"
	"github.com/rohmanhakim/booth-archiver/internal/frontier"
	"github.com/rohmanhakim/booth-archiver/internal/logging"
	"github.com/rohmanhakim/booth-archiver/internal/mdconvert"
	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/internal/translate"
	"github.com/rohmanhakim/booth-archiver/internal/workbook"
	"github.com/rohmanhakim/booth-archiver/pkg/limiter"
	"github.com/rohmanhakim/booth-archiver/pkg/retry"
	"github.com/rohmanhakim/booth-archiver/pkg/timeutil"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

/*
Scheduler is the sole control-plane authority of an archive run.

  - It owns both cache handles. Every worker gets its own clone and
    releases it; at the end of the run the scheduler's handle must be the
    only one left.
  - Only the scheduler admits item ids, through the frontier, so every
    item is fetched once and rows keep first-seen wishlist order.
  - Pipeline stages classify and record their failures. The scheduler
    decides what to do about them: a failed first wishlist page aborts the
    run, a failed item is dropped, a failed translation keeps the original.
  - Caches are dumped whatever the outcome, so a failed run still keeps
    what it fetched and translated.

Metadata emission is observational only and never influences the run.
*/
type Scheduler struct {
	cfg        config.Config
	recorder   *metadata.Recorder
	logger     logrus.FieldLogger
	httpClient *http.Client
	// backend overrides the configured translation backend when set
	backend translate.Backend
}

func NewScheduler(cfg config.Config, logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		cfg:        cfg,
		recorder:   metadata.NewRecorder(logger),
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

// NewSchedulerWithDeps creates a Scheduler with injected dependencies for testing.
// A nil backend builds the configured one.
func NewSchedulerWithDeps(
	cfg config.Config,
	recorder *metadata.Recorder,
	logger logrus.FieldLogger,
	httpClient *http.Client,
	translationBackend translate.Backend,
) *Scheduler {
	s := NewScheduler(cfg, logger)
	if recorder != nil {
		s.recorder = recorder
	}
	if httpClient != nil {
		s.httpClient = httpClient
	}
	s.backend = translationBackend
	return s
}

func (s *Scheduler) Recorder() *metadata.Recorder {
	return s.recorder
}

// run holds the per-run resources ExecuteArchive hands to its stages.
type run struct {
	fetchHandle       *cache.Handle
	translationHandle *cache.Handle
	watchers          []*cache.Watcher
	cachedFetcher     *fetcher.CachedFetcher
	client            *booth.Client
	converter         *mdconvert.Converter
	translationLog    *translate.ContextLog
	backend           translate.Backend
}

// ExecuteArchive archives the configured wishlist into the workbook.
func (s *Scheduler) ExecuteArchive(ctx context.Context) (ArchiveExecution, error) {
	startTime := time.Now()
	execution := ArchiveExecution{WorkbookPath: s.cfg.OutputPath()}

	r, err := s.prepare(ctx)
	if err != nil {
		return execution, err
	}

	runErr := s.archive(ctx, r, &execution)
	finishErr := s.finish(ctx, r, &execution)

	execution.Duration = time.Since(startTime)
	execution.Errors = s.recorder.Errors()
	s.recorder.RecordFinalArchiveStats(metadata.ArchiveStats{
		TotalItems:        execution.Items,
		TotalRows:         len(execution.Rows),
		TotalErrors:       len(execution.Errors),
		FetchHits:         execution.FetchStats.Hits,
		FetchMisses:       execution.FetchStats.Misses,
		TranslationHits:   execution.TranslationStats.Hits,
		TranslationMisses: execution.TranslationStats.Misses,
		Duration:          execution.Duration,
	})

	if runErr != nil {
		return execution, runErr
	}
	return execution, finishErr
}

func (s *Scheduler) prepare(ctx context.Context) (*run, error) {
	cookie, err := s.cfg.SessionCookie()
	if err != nil {
		s.recordConfigError(err)
		return nil, err
	}

	cacheOpts := []cache.Option{
		cache.WithFlushEvery(s.cfg.FlushEvery()),
		cache.WithHashAlgo(s.cfg.HashAlgo()),
		cache.WithLogger(s.logger),
		cache.WithMetadataSink(s.recorder),
	}
	fetchCache, loadErr := cache.NewWithPath(s.cfg.FetchCachePath(), cacheOpts...)
	if loadErr != nil {
		return nil, loadErr
	}
	translationCache, loadErr := cache.NewWithPath(s.cfg.TranslationCachePath(), cacheOpts...)
	if loadErr != nil {
		return nil, loadErr
	}

	r := &run{
		fetchHandle:       cache.NewHandle(fetchCache),
		translationHandle: cache.NewHandle(translationCache),
		converter:         mdconvert.NewConverter(s.recorder),
		translationLog:    translate.NewContextLog(),
	}

	rateLimiter := limiter.NewConcurrentRateLimiter(
		s.cfg.BaseDelay(),
		s.cfg.Jitter(),
		s.cfg.RandomSeed(),
		s.backoffParam(),
	)

	if s.cfg.Translate() {
		r.backend = s.backend
		if r.backend == nil {
			r.backend, err = backend.New(ctx, s.backendSettings(rateLimiter), s.logger)
			if err != nil {
				s.recordConfigError(err)
				return nil, err
			}
		}
	}

	if s.cfg.WatchCache() {
		for _, h := range []*cache.Handle{r.fetchHandle, r.translationHandle} {
			w, watchErr := cache.Watch(ctx, h, s.logger)
			if watchErr != nil {
				// the run works without live reload
				s.logger.WithError(watchErr).WithField("cache_path", h.Path()).Warn("cache watcher not started")
				continue
			}
			r.watchers = append(r.watchers, w)
		}
	}

	source, ok := booth.ParseWishlistSource(s.cfg.WishlistSource())
	if !ok {
		source = booth.SourceJSON
	}
	httpFetcher := fetcher.NewHttpFetcher(
		s.recorder,
		s.httpClient,
		rateLimiter,
		fetcher.NewSession(cookie, s.cfg.Adult(), s.cfg.UserAgent()),
	)
	r.cachedFetcher = fetcher.NewCachedFetcher(httpFetcher, r.fetchHandle, s.retryParam(), s.recorder, s.logger)
	r.client = booth.NewClient(
		r.cachedFetcher,
		booth.NewURLs(s.cfg.StorefrontURL(), s.cfg.AccountsURL(), s.cfg.StorefrontLang(), s.cfg.WishlistID()),
		source,
		s.cfg.Concurrency(),
		s.recorder,
		s.logger,
	)
	return r, nil
}

func (s *Scheduler) archive(ctx context.Context, r *run, execution *ArchiveExecution) error {
	// 1. Collect item ids
	pages, err := r.client.WishlistPages(ctx)
	if err != nil {
		return err
	}
	admissions := s.admit(pages)
	execution.Items = len(admissions)
	s.logger.WithFields(logrus.Fields{
		"pages": len(pages),
		"items": len(admissions),
	}).Info("wishlist collected")

	// 2. Fetch and convert items
	rows := s.fetchItems(ctx, r, admissions)

	// 3. Translate
	if r.backend != nil {
		s.translateRows(ctx, r, rows)
	}
	execution.Rows = rows

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	// 4. Write the workbook
	writer := workbook.NewWriter(s.recorder, s.cfg.HashAlgo())
	digest, writeErr := writer.Write(s.cfg.OutputPath(), rows)
	if writeErr != nil {
		return writeErr
	}
	execution.WorkbookHash = digest
	return nil
}

// admit runs every wishlist id through the frontier and returns them in
// first-seen order.
func (s *Scheduler) admit(pages []booth.WishlistPage) []frontier.Admission {
	queue := frontier.NewFrontier()
	for _, page := range pages {
		for _, id := range page.ItemIDs {
			queue.Submit(id, page.Page)
		}
	}
	if dup := queue.Duplicates(); dup > 0 {
		s.logger.WithField("duplicates", dup).Debug("duplicate wishlist entries dropped")
	}
	return queue.Drain()
}

func (s *Scheduler) fetchItems(ctx context.Context, r *run, admissions []frontier.Admission) []workbook.Row {
	results := make([]itemResult, len(admissions))

	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency())
	for i, admission := range admissions {
		worker := r.cachedFetcher.Fork()
		p.Go(func() {
			defer worker.Close()
			if ctx.Err() != nil {
				return
			}
			row, ok := s.fetchItem(ctx, r, worker, admission)
			// each goroutine owns its own index
			results[i] = itemResult{row: row, ok: ok}
		})
	}
	p.Wait()

	rows := make([]workbook.Row, 0, len(results))
	for _, result := range results {
		if result.ok {
			rows = append(rows, result.row)
		}
	}
	return rows
}

func (s *Scheduler) fetchItem(
	ctx context.Context,
	r *run,
	worker *fetcher.CachedFetcher,
	admission frontier.Admission,
) (workbook.Row, bool) {
	logger := s.logger.WithFields(logging.ItemFields(admission.ItemID, admission.Page))

	item, err := r.client.Item(ctx, worker, admission.ItemID)
	if err != nil {
		logger.WithError(err).Warn("skipping item")
		return workbook.Row{}, false
	}

	markdown, convErr := r.converter.ToMarkdown(admission.ItemID, item.Description)
	if convErr != nil {
		markdown = item.Description
	}
	row := workbook.NewRow(item, markdown)

	if len(row.ImageURLs) == 0 {
		images, imgErr := r.client.ItemPageImages(ctx, worker, admission.ItemID)
		if imgErr != nil {
			logger.WithError(imgErr).Debug("no gallery images on item page")
		} else {
			row.ImageURLs = images
		}
	}
	return row, true
}

// finish releases workers' resources, persists both caches and checks the
// end-of-run invariants. It runs whether or not archive succeeded.
func (s *Scheduler) finish(ctx context.Context, r *run, execution *ArchiveExecution) error {
	// watchers hold handle clones and must stop before the sole-handle check
	for _, w := range r.watchers {
		if err := w.Close(); err != nil {
			s.logger.WithError(err).Warn("closing cache watcher")
		}
	}
	r.cachedFetcher.Close()

	var errs []error
	for _, h := range []*cache.Handle{r.fetchHandle, r.translationHandle} {
		// a cancelled run still persists what it has
		if err := h.Dump(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, err)
		}
		report := h.Audit(ctx)
		if auditErr := report.Err(); auditErr != nil {
			s.recordInvariantViolation("Scheduler.finish", auditErr, h.Path())
			errs = append(errs, auditErr)
		}
		if soleErr := h.AssertSole(); soleErr != nil {
			errs = append(errs, soleErr)
		}
		s.logger.WithFields(logrus.Fields{
			"cache_path":   h.Path(),
			"stored":       report.StoredKeys,
			"learned":      report.Learned,
			"untouched":    len(report.Untouched),
			"distinct_get": report.DistinctLookups,
		}).Info("cache audited")
	}

	execution.FetchStats = r.fetchHandle.Stats(ctx)
	execution.TranslationStats = r.translationHandle.Stats(ctx)
	execution.Splits = r.translationLog.Entries()

	return errors.Join(errs...)
}

func (s *Scheduler) backoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(
		s.cfg.BackoffInitialDuration(),
		s.cfg.BackoffMultiplier(),
		s.cfg.BackoffMaxDuration(),
	)
}

func (s *Scheduler) retryParam() retry.RetryParam {
	return retry.NewRetryParam(
		s.cfg.BaseDelay(),
		s.cfg.Jitter(),
		s.cfg.RandomSeed(),
		s.cfg.MaxAttempt(),
		s.backoffParam(),
	)
}

func (s *Scheduler) backendSettings(rateLimiter limiter.RateLimiter) backend.Settings {
	settings := backend.Settings{
		Kind:           s.cfg.Backend(),
		GoogleEndpoint: s.cfg.GoogleEndpoint(),
		UserAgent:      s.cfg.UserAgent(),
		Limiter:        rateLimiter,
		HTTPClient:     s.httpClient,
		Retry:          s.retryParam(),
		Breaker: backend.BreakerSettings{
			MaxFailures: s.cfg.BreakerMaxFailures(),
			OpenTimeout: s.cfg.BreakerTimeout(),
		},
	}
	switch s.cfg.Backend() {
	case config.BackendOpenAI:
		settings.APIKey = s.cfg.OpenAIAPIKey()
		settings.BaseURL = s.cfg.OpenAIBaseURL()
		settings.Model = s.cfg.OpenAIModel()
	case config.BackendGemini:
		settings.APIKey = s.cfg.GeminiAPIKey()
		settings.BaseURL = s.cfg.GeminiBaseURL()
		settings.Model = s.cfg.GeminiModel()
	}
	return settings
}

func (s *Scheduler) recordConfigError(err error) {
	s.recorder.RecordError(
		time.Now(),
		"config",
		"Scheduler.prepare",
		metadata.CauseContentInvalid,
		err.Error(),
		nil,
	)
}

func (s *Scheduler) recordInvariantViolation(action string, err error, cachePath string) {
	s.recorder.RecordError(
		time.Now(),
		"scheduler",
		action,
		metadata.CauseInvariantViolation,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCachePath, cachePath),
		},
	)
}
