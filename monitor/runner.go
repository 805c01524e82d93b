package monitor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type RunnerConfig struct {
	Interval        time.Duration
	FailureCooldown time.Duration
	FetchTimeout    time.Duration
	NotifyTimeout   time.Duration
	// NotifyEvery spaces consecutive notifications. Zero sends back to back.
	NotifyEvery     time.Duration
	ExcludeResults  bool
	AnnounceStartup bool
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.FailureCooldown <= 0 {
		c.FailureCooldown = 60 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 45 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	return c
}

// CycleResult summarizes one scan cycle. Err is nil on success and a
// *CycleError otherwise.
type CycleResult struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Fetched      int           `json:"fetched"`
	Notified     int           `json:"notified"`
	NotifyFailed int           `json:"notify_failed"`
	Filtered     int           `json:"filtered"`
	ArchiveOnly  int           `json:"archive_only"`
	Discarded    int           `json:"discarded"`
	Degraded     int           `json:"degraded"`
	Err          error         `json:"-"`
	Category     ErrorCategory `json:"category,omitempty"`
}

func (r CycleResult) Failed() bool { return r.Err != nil }

// Runner drives the scan loop: fetch, classify, deliver, commit.
type Runner struct {
	cfg      RunnerConfig
	fetcher  Fetcher
	notifier Notifier
	engine   *Engine
	limiter  *rate.Limiter
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	last   CycleResult
	cycles int
}

func NewRunner(cfg RunnerConfig, engine *Engine, fetcher Fetcher, notifier Notifier, logger zerolog.Logger) (*Runner, error) {
	if engine == nil || fetcher == nil || notifier == nil {
		return nil, ErrNotConfigured
	}
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.NotifyEvery > 0 {
		limit = rate.Every(cfg.NotifyEvery)
	}
	return &Runner{
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		engine:   engine,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With().Str("component", "runner").Logger(),
		now:      time.Now,
	}, nil
}

// LastResult returns the most recent cycle result and whether any cycle has
// run yet.
func (r *Runner) LastResult() (CycleResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.cycles > 0
}

// Cycles is the number of cycles run so far.
func (r *Runner) Cycles() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cycles
}

// RunCycle runs one fetch-classify-deliver-commit pass. It never panics and
// never returns an error; failures are categorized in the result and
// journaled.
func (r *Runner) RunCycle(ctx context.Context) (res CycleResult) {
	res = CycleResult{ID: uuid.NewString(), StartedAt: r.now()}
	log := r.logger.With().Str("cycle", res.ID).Logger()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			res.Err = &CycleError{Category: CategoryUnexpected, Err: err}
			r.engine.Report(ErrorEvent{
				Category: CategoryUnexpected,
				Message:  err.Error(),
				Detail:   truncate(string(debug.Stack()), 2000),
				CycleID:  res.ID,
			})
		}
		r.engine.FlushJournal(ctx)
		res.FinishedAt = r.now()
		if res.Err != nil {
			res.Category = CategoryOf(res.Err)
		}
		r.mu.Lock()
		r.last = res
		r.cycles++
		r.mu.Unlock()

		ev := log.Info()
		if res.Err != nil {
			ev = log.Error().Err(res.Err).Str("category", string(res.Category))
		}
		ev.Int("fetched", res.Fetched).
			Int("notified", res.Notified).
			Int("notify_failed", res.NotifyFailed).
			Int("filtered", res.Filtered).
			Int("archive_only", res.ArchiveOnly).
			Int("discarded", res.Discarded).
			Dur("took", res.FinishedAt.Sub(res.StartedAt)).
			Msg("cycle done")
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	items, err := r.fetcher.Fetch(fetchCtx)
	cancel()
	if err != nil {
		res.Err = &CycleError{Category: CategoryScrape, Err: err}
		r.engine.Report(ErrorEvent{Category: CategoryScrape, Message: err.Error(), CycleID: res.ID})
		return res
	}
	res.Fetched = len(items)

	batch := Batch{CycleID: res.ID, FetchedAt: res.StartedAt, Items: items}
	for _, d := range r.engine.Classify(batch) {
		if d.Record.TimestampDegraded {
			res.Degraded++
		}
		switch d.Class {
		case ClassDiscard:
			res.Discarded++
		case ClassArchiveOnly:
			res.ArchiveOnly++
			log.Debug().Str("timestamp", d.Record.RawTimestamp).Msg("skipping old: " + truncate(d.Record.RawText, 50))
		case ClassNotify:
			r.deliver(ctx, d.Record, &res, log)
		}
	}

	if err := r.engine.Commit(ctx, batch); err != nil {
		res.Err = err
	}
	return res
}

// deliver sends one record. A panic is contained here: the record is already
// fingerprinted, so the rest of the batch must still go out.
func (r *Runner) deliver(ctx context.Context, rec HeadlineRecord, res *CycleResult, log zerolog.Logger) {
	defer func() {
		if p := recover(); p != nil {
			res.NotifyFailed++
			r.engine.Report(ErrorEvent{
				Category: CategoryUnexpected,
				Message:  fmt.Sprintf("panic delivering headline: %v", p),
				Detail:   truncate(string(debug.Stack()), 2000),
				CycleID:  res.ID,
			})
		}
	}()
	if r.cfg.ExcludeResults && IsResultsHeadline(rec.RawText, rec.Category) {
		res.Filtered++
		log.Info().Msg("filtered result: " + truncate(rec.RawText, 70))
		return
	}
	if err := r.limiter.Wait(ctx); err != nil {
		r.notifyFailed(rec, res, err)
		return
	}
	nctx, cancel := context.WithTimeout(ctx, r.cfg.NotifyTimeout)
	defer cancel()
	if err := r.notifier.Notify(nctx, rec); err != nil {
		r.notifyFailed(rec, res, err)
		return
	}
	res.Notified++
	log.Info().Str("timestamp", rec.RawTimestamp).Msg("sent: " + truncate(rec.RawText, 70))
}

func (r *Runner) notifyFailed(rec HeadlineRecord, res *CycleResult, err error) {
	res.NotifyFailed++
	r.engine.Report(ErrorEvent{
		Category: CategoryNotify,
		Message:  err.Error(),
		Detail:   truncate(rec.RawText, 100),
		CycleID:  res.ID,
	})
}

// Run loops until ctx is cancelled. Cycles never overlap: the next one starts
// one interval after the previous one started, or right away if it overran,
// and no sooner than the failure cooldown after a failed cycle. A cycle in
// flight when ctx is cancelled is allowed to finish before state is flushed.
func (r *Runner) Run(ctx context.Context) error {
	r.reportStartup(ctx)
	work := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return r.shutdown()
		}
		res := r.RunCycle(work)

		wait := r.cfg.Interval - r.now().Sub(res.StartedAt)
		if res.Failed() && wait < r.cfg.FailureCooldown {
			wait = r.cfg.FailureCooldown
		}
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return r.shutdown()
		case <-timer.C:
		}
	}
}

func (r *Runner) shutdown() error {
	r.logger.Info().Msg("shutting down; flushing state")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.engine.Flush(ctx); err != nil {
		r.logger.Error().Err(err).Msg("state not fully flushed")
		return err
	}
	return nil
}

func (r *Runner) reportStartup(ctx context.Context) {
	at, ok := r.engine.StartupCheckpoint()
	text := "Monitor started. Only new headlines will be sent."
	if ok {
		r.logger.Warn().
			Time("last_check", at).
			Dur("downtime", r.now().Sub(at).Round(time.Second)).
			Msg("restart detected; only headlines newer than the last check will be sent")
		text = fmt.Sprintf("Monitor restarted after %s of downtime. Only new headlines will be sent.",
			r.now().Sub(at).Round(time.Second))
	} else {
		r.logger.Info().Msg("first run; every visible headline will be sent")
	}
	if !r.cfg.AnnounceStartup {
		return
	}
	a, ok := r.notifier.(Announcer)
	if !ok {
		return
	}
	actx, cancel := context.WithTimeout(ctx, r.cfg.NotifyTimeout)
	defer cancel()
	if err := a.Announce(actx, text); err != nil {
		r.engine.Report(ErrorEvent{Category: CategoryNotify, Message: err.Error(), Detail: "startup announcement"})
		r.engine.FlushJournal(ctx)
	}
}
