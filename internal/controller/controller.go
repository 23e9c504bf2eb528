package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/archive"
	"github.com/newsatlas/hubcrawler/internal/frontier"
	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/pattern"
	"github.com/newsatlas/hubcrawler/internal/planner"
	"github.com/newsatlas/hubcrawler/internal/telemetry"
	"github.com/newsatlas/hubcrawler/internal/validate"
)

// Config tunes a crawl run.
type Config struct {
	// Domain is the site under crawl.
	Domain string
	// Mode is the initial scoring mode.
	Mode hub.Mode
	// MaxInFlight bounds concurrent fetches (default 4).
	MaxInFlight int
	// PerHostInterval is the politeness gap between fetches to one host
	// (default 1s).
	PerHostInterval time.Duration
	// FetchTimeout bounds each dispatched fetch (default 15s).
	FetchTimeout time.Duration
	// IdleWait is how long the loop sleeps when everything is throttled
	// or paused (default 250ms).
	IdleWait time.Duration
	// MaxCycles bounds planning cycles; 0 means run until no work remains.
	MaxCycles int
	// FrontierCapacity bounds the queue (default 1000).
	FrontierCapacity int
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Fetcher   hub.Fetcher
	Store     hub.Store
	Gazetteer hub.Gazetteer
	Planner   *planner.Planner
	Validator *validate.Validator
	Learner   *pattern.Learner
	Cache     hub.PageCache
	// Archive, Estimator, Emitter, Clock, IDs, and Logger are optional.
	Archive   archive.Store
	Estimator *planner.CostEstimator
	Emitter   telemetry.Emitter
	Clock     hub.Clock
	IDs       hub.IDGenerator
	Logger    *zap.Logger
}

// Pinger is implemented by stores that can verify connectivity; the
// controller refuses to start when the ping fails.
type Pinger interface {
	Ping(ctx context.Context) error
}

// outcome carries one finished fetch from a worker to the single
// outcome-processing goroutine.
type outcome struct {
	item frontier.Item
	resp hub.FetchResponse
	err  error
}

// Controller runs the crawl lifecycle for one domain.
type Controller struct {
	cfg      Config
	deps     Deps
	machine  *machine
	frontier *frontier.Frontier
	throttle *Throttle
	logger   *zap.Logger

	mu           sync.Mutex
	mode         hub.Mode
	progress     hub.Progress
	inconclusive int
	// pending counts dispatched fetches whose outcome has not finished
	// processing; completion must wait for it so a verdict landing late
	// can still open follow-up gaps for the next cycle.
	pending int
	// attempted holds the canonical URL keys already queued or fetched
	// this run; a candidate dropped as Inconclusive is not retried again
	// until the next run re-proposes it.
	attempted map[string]struct{}

	runID     string
	runCancel context.CancelFunc
	resumeCh  chan struct{}
	abortOnce sync.Once
	aborted   chan struct{}
}

// New validates dependencies and builds a Controller in Initializing state.
func New(cfg Config, deps Deps) (*Controller, error) {
	switch {
	case cfg.Domain == "":
		return nil, fmt.Errorf("controller: domain is required")
	case deps.Fetcher == nil, deps.Store == nil, deps.Gazetteer == nil,
		deps.Planner == nil, deps.Validator == nil, deps.Learner == nil:
		return nil, fmt.Errorf("controller: missing required dependency")
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 4
	}
	if cfg.PerHostInterval <= 0 {
		cfg.PerHostInterval = time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = 250 * time.Millisecond
	}
	mode := cfg.Mode
	if mode == "" {
		mode = hub.ModeNormal
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:       cfg,
		deps:      deps,
		machine:   newMachine(),
		frontier:  frontier.New(cfg.FrontierCapacity),
		throttle:  NewThrottle(cfg.PerHostInterval),
		logger:    logger.With(zap.String("domain", cfg.Domain)),
		mode:      mode,
		attempted: make(map[string]struct{}),
		resumeCh:  make(chan struct{}, 1),
		aborted:   make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.machine.current() }

// Progress returns a copy of the run counters.
func (c *Controller) Progress() hub.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Mode returns the scoring mode in effect.
func (c *Controller) Mode() hub.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Pause stops new dispatch; in-flight fetches complete. No-op unless
// Running.
func (c *Controller) Pause() {
	if c.machine.to(StatePaused) {
		c.emitLifecycle(StatePaused)
		c.logger.Info("crawl paused")
	}
}

// Resume restarts dispatch after a pause. No-op unless Paused.
func (c *Controller) Resume() {
	if c.machine.to(StateRunning) {
		select {
		case c.resumeCh <- struct{}{}:
		default:
		}
		c.emitLifecycle(StateRunning)
		c.logger.Info("crawl resumed")
	}
}

// Abort cancels in-flight fetches best-effort and discards the frontier.
// Safe from any state; repeated calls are no-ops.
func (c *Controller) Abort() {
	c.abortOnce.Do(func() {
		if !c.machine.to(StateAborting) {
			return
		}
		c.emitLifecycle(StateAborting)
		close(c.aborted)
		c.mu.Lock()
		cancel := c.runCancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.logger.Info("crawl aborting")
	})
}

// SetMode changes the scoring mode for subsequent planning cycles.
func (c *Controller) SetMode(mode hub.Mode) {
	parsed, ok := hub.ParseMode(string(mode))
	if !ok {
		c.logger.Warn("ignoring unknown mode", zap.String("mode", string(mode)))
		return
	}
	c.mu.Lock()
	c.mode = parsed
	c.mu.Unlock()
	c.logger.Info("mode changed", zap.String("mode", string(parsed)))
}

// Run executes the crawl until completion, abort, or ctx cancellation. It
// returns the final progress; the error reports fatal startup failures or
// cancellation, never per-candidate outcomes.
func (c *Controller) Run(ctx context.Context) (hub.Progress, error) {
	if err := c.startup(ctx); err != nil {
		c.machine.to(StateStopped)
		return c.Progress(), err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.runCancel = cancel
	c.mu.Unlock()
	defer cancel()

	if !c.machine.to(StateRunning) {
		return c.Progress(), hub.ErrNotRunning
	}
	c.setPhase(hub.PhaseDiscovery)
	c.emitLifecycle(StateRunning)
	c.logger.Info("crawl running", zap.String("run_id", c.runID))

	outcomes := make(chan outcome)
	var workers sync.WaitGroup
	var processor sync.WaitGroup
	processor.Add(1)
	go func() {
		defer processor.Done()
		c.processOutcomes(outcomes)
	}()

	slots := make(chan struct{}, c.cfg.MaxInFlight)
	cycles := 0
	var runErr error

loop:
	for {
		select {
		case <-runCtx.Done():
			if !c.isAborted() {
				runErr = runCtx.Err()
			}
			break loop
		default:
		}

		if c.machine.current() == StatePaused {
			if !c.waitResume(runCtx) {
				break loop
			}
			continue
		}

		proposed := c.planCycle(runCtx)
		dispatched := c.dispatchReady(runCtx, slots, &workers, outcomes)

		if proposed == 0 && dispatched == 0 && c.frontier.Len() == 0 && len(slots) == 0 && c.pendingOutcomes() == 0 {
			break loop
		}
		cycles++
		if c.cfg.MaxCycles > 0 && cycles >= c.cfg.MaxCycles {
			break loop
		}
		if dispatched == 0 {
			c.idle(runCtx)
		}
	}

	c.shutdown(&workers, outcomes, &processor)
	return c.Progress(), runErr
}

// startup performs the fatal pre-run checks: storage reachability and a
// non-empty gazetteer. Nothing fatal may occur after these pass.
func (c *Controller) startup(ctx context.Context) error {
	if pinger, ok := c.deps.Store.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("storage unreachable at startup: %w", err)
		}
	}
	hints := []string{c.cfg.Domain}
	total := 0
	for _, kind := range []hub.EntityKind{hub.KindCountry, hub.KindRegion, hub.KindCity, hub.KindTopic} {
		total += len(c.deps.Gazetteer.ListEntities(kind, hints))
	}
	if total == 0 {
		return hub.ErrGazetteerEmpty
	}

	if c.deps.IDs != nil {
		id, err := c.deps.IDs.NewID()
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}
		c.runID = id
	} else {
		// Telemetry run IDs must be real UUIDs or the hub rejects the events.
		c.runID = uuid.NewString()
	}
	c.emitLifecycle(StateInitializing)
	return nil
}

// planCycle runs the planner and pushes the batch onto the frontier.
func (c *Controller) planCycle(ctx context.Context) int {
	confirmed, err := c.deps.Store.GetCoverageSnapshot(ctx, c.cfg.Domain)
	if err != nil {
		c.logger.Warn("coverage snapshot failed, planning without it", zap.Error(err))
		confirmed = map[string]struct{}{}
	}

	batch := c.deps.Planner.Plan(c.cfg.Domain, c.Mode(), confirmed, c.Progress())
	accepted := 0
	for _, ranked := range batch {
		if !c.markAttempted(ranked.Candidate.URL) {
			continue
		}
		ok, err := c.frontier.Push(ranked.Candidate, ranked.Score)
		if err != nil {
			if !errors.Is(err, hub.ErrFrontierFull) {
				c.logger.Debug("dropping unqueueable candidate",
					zap.String("url", ranked.Candidate.URL), zap.Error(err))
			}
			continue
		}
		if !ok {
			continue
		}
		accepted++
		c.emit(telemetry.Event{
			Type:           telemetry.TypeCandidateProposed,
			Domain:         c.cfg.Domain,
			URL:            ranked.Candidate.URL,
			EntityID:       ranked.Candidate.EntityID,
			SecondEntityID: ranked.Candidate.SecondEntityID,
			Kind:           ranked.Candidate.Kind,
			Strategy:       ranked.Candidate.Strategy,
			Score:          ranked.Score,
		})
	}
	return accepted
}

// dispatchReady drains the frontier into worker goroutines until the
// frontier empties, a host throttles, or dispatch is gated by state.
func (c *Controller) dispatchReady(ctx context.Context, slots chan struct{}, workers *sync.WaitGroup, outcomes chan<- outcome) int {
	dispatched := 0
	for {
		if !c.machine.is(StateRunning) || c.isAborted() {
			return dispatched
		}
		item, ok := c.frontier.Pop()
		if !ok {
			return dispatched
		}

		host, err := frontier.Host(item.Candidate.URL)
		if err != nil {
			c.logger.Debug("discarding candidate with bad host", zap.String("url", item.Candidate.URL))
			continue
		}
		if ok, _ := c.throttle.TryReserve(host); !ok {
			// Host is in its politeness window; put the candidate back
			// and let this cycle end rather than busy-spin.
			if _, err := c.frontier.Push(item.Candidate, item.Score); err != nil {
				c.logger.Debug("re-push after throttle failed", zap.String("url", item.Candidate.URL), zap.Error(err))
			}
			return dispatched
		}

		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return dispatched
		}
		// State may have changed while waiting for a slot.
		if !c.machine.is(StateRunning) || c.isAborted() {
			<-slots
			if !c.isAborted() {
				if _, err := c.frontier.Push(item.Candidate, item.Score); err != nil {
					c.logger.Debug("re-push after pause failed", zap.String("url", item.Candidate.URL), zap.Error(err))
				}
			}
			return dispatched
		}

		c.emit(telemetry.Event{
			Type:     telemetry.TypeCandidateDispatched,
			Domain:   c.cfg.Domain,
			URL:      item.Candidate.URL,
			EntityID: item.Candidate.EntityID,
			Kind:     item.Candidate.Kind,
			Score:    item.Score,
		})
		dispatched++
		c.mu.Lock()
		c.pending++
		c.mu.Unlock()

		workers.Add(1)
		go func(it frontier.Item) {
			defer workers.Done()
			defer func() { <-slots }()
			c.fetchOne(ctx, it, outcomes)
		}(item)
	}
}

// fetchOne performs the fetch and hands the result to the outcome path.
func (c *Controller) fetchOne(ctx context.Context, item frontier.Item, outcomes chan<- outcome) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	resp, err := c.deps.Fetcher.Fetch(fetchCtx, hub.FetchRequest{
		RunID:   c.runID,
		URL:     item.Candidate.URL,
		Timeout: c.cfg.FetchTimeout,
	})
	if err == nil && c.deps.Cache != nil {
		c.deps.Cache.Put(item.Candidate.URL, resp)
	}
	select {
	case outcomes <- outcome{item: item, resp: resp, err: err}:
	case <-c.aborted:
	}
}

// processOutcomes is the single mutation path for validation results,
// learned patterns, and coverage. It runs until the outcomes channel
// closes.
func (c *Controller) processOutcomes(outcomes <-chan outcome) {
	for out := range outcomes {
		if !c.isAborted() {
			c.handleOutcome(out)
		}
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
	}
}

func (c *Controller) handleOutcome(out outcome) {
	cand := out.item.Candidate
	if out.err != nil {
		c.mu.Lock()
		c.inconclusive++
		c.mu.Unlock()
		c.logger.Debug("fetch failed, candidate inconclusive for this run",
			zap.String("url", cand.URL), zap.Error(out.err))
		return
	}
	if c.deps.Estimator != nil && out.resp.Duration > 0 {
		c.deps.Estimator.RecordSample(c.cfg.Domain, out.resp.Duration)
	}

	entity, ok := c.deps.Gazetteer.Entity(cand.EntityID)
	if !ok {
		c.logger.Warn("candidate references unknown entity", zap.String("entity", cand.EntityID))
		return
	}
	var second *hub.Entity
	if cand.SecondEntityID != "" {
		if s, ok := c.deps.Gazetteer.Entity(cand.SecondEntityID); ok {
			second = &s
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout*2)
	defer cancel()

	res, err := c.deps.Validator.Validate(ctx, cand, entity, second)
	if err != nil {
		c.logger.Warn("validation failed", zap.String("url", cand.URL), zap.Error(err))
		return
	}

	record := hub.HubRecord{
		URL:            cand.URL,
		EntityID:       cand.EntityID,
		SecondEntityID: cand.SecondEntityID,
		Kind:           cand.Kind,
		Verdict:        res.Verdict,
		ArticleURLs:    res.ArticleURLs,
		VisitedAt:      c.now(),
		Evidence:       res.Evidence,
	}
	if res.Verdict == hub.VerdictConfirmed && c.deps.Archive != nil && len(out.resp.Body) > 0 {
		path := archive.ObjectPath(c.cfg.Domain, c.runID, cand.URL)
		uri, err := c.deps.Archive.Put(ctx, path, out.resp.ContentType, bytes.NewReader(out.resp.Body))
		if err != nil {
			c.logger.Warn("archiving evidence snapshot failed", zap.String("url", cand.URL), zap.Error(err))
		} else {
			record.EvidenceURI = uri
		}
	}
	if err := c.deps.Store.PutHubRecord(ctx, record); err != nil {
		c.logger.Warn("persisting hub record failed", zap.String("url", cand.URL), zap.Error(err))
	}

	c.applyVerdict(ctx, cand, res, out.resp.Duration)
}

func (c *Controller) applyVerdict(ctx context.Context, cand hub.Candidate, res validate.Result, dur time.Duration) {
	c.mu.Lock()
	c.progress.EntitiesValidated++
	switch res.Verdict {
	case hub.VerdictConfirmed:
		c.progress.EntitiesDiscovered++
		c.progress.ArticlesSurfaced += len(res.ArticleURLs)
		if c.progress.Phase == hub.PhaseDiscovery {
			c.progress.Phase = hub.PhaseValidation
		}
	case hub.VerdictInconclusive:
		c.inconclusive++
	}
	c.mu.Unlock()

	entity, _ := c.deps.Gazetteer.Entity(cand.EntityID)
	_, learned, err := c.deps.Learner.Observe(ctx, pattern.Observation{
		Domain:  c.cfg.Domain,
		Kind:    cand.Kind,
		URL:     cand.URL,
		Entity:  entity,
		Verdict: res.Verdict,
		Yield:   len(res.ArticleURLs),
	})
	if err != nil {
		c.logger.Debug("pattern observation failed", zap.String("url", cand.URL), zap.Error(err))
	}
	if learned {
		c.emit(telemetry.Event{
			Type:   telemetry.TypePatternLearned,
			Domain: c.cfg.Domain,
			URL:    cand.URL,
		})
	}

	switch res.Verdict {
	case hub.VerdictConfirmed:
		c.emit(telemetry.Event{
			Type:           telemetry.TypeHubConfirmed,
			Domain:         c.cfg.Domain,
			URL:            cand.URL,
			EntityID:       cand.EntityID,
			SecondEntityID: cand.SecondEntityID,
			Kind:           cand.Kind,
			Verdict:        res.Verdict,
			Dur:            dur,
			Note:           res.Evidence,
		})
		if cand.GapFill {
			c.emit(telemetry.Event{
				Type:           telemetry.TypeGapFilled,
				Domain:         c.cfg.Domain,
				EntityID:       cand.EntityID,
				SecondEntityID: cand.SecondEntityID,
				URL:            cand.URL,
			})
		}
	case hub.VerdictRejected:
		c.emit(telemetry.Event{
			Type:     telemetry.TypeHubRejected,
			Domain:   c.cfg.Domain,
			URL:      cand.URL,
			EntityID: cand.EntityID,
			Kind:     cand.Kind,
			Verdict:  res.Verdict,
			Dur:      dur,
			Note:     res.Evidence,
		})
	}
}

// shutdown finishes the run: drain or abort, then stop.
func (c *Controller) shutdown(workers *sync.WaitGroup, outcomes chan outcome, processor *sync.WaitGroup) {
	if c.isAborted() {
		discarded := c.frontier.Drain()
		c.logger.Info("frontier discarded on abort", zap.Int("candidates", len(discarded)))
	} else {
		c.machine.to(StateDraining)
		c.emitLifecycle(StateDraining)
	}

	workers.Wait()
	close(outcomes)
	processor.Wait()

	c.setPhase(hub.PhaseCompletion)
	c.machine.to(StateStopped)
	c.emitLifecycle(StateStopped)

	c.mu.Lock()
	gaps := c.inconclusive
	progress := c.progress
	c.mu.Unlock()
	switch {
	case c.isAborted():
		c.logger.Info("crawl aborted", zap.Int("validated", progress.EntitiesValidated))
	case gaps > 0:
		c.logger.Info("crawl completed with gaps",
			zap.Int("inconclusive", gaps),
			zap.Int("confirmed", progress.EntitiesDiscovered),
			zap.Int("rejections", c.deps.Learner.Rejections(c.cfg.Domain)),
		)
	default:
		c.logger.Info("crawl completed",
			zap.Int("confirmed", progress.EntitiesDiscovered),
			zap.Int("articles", progress.ArticlesSurfaced),
			zap.Int("rejections", c.deps.Learner.Rejections(c.cfg.Domain)),
		)
	}
}

// CompletedWithGaps reports whether transient failures left coverage gaps.
func (c *Controller) CompletedWithGaps() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inconclusive > 0
}

func (c *Controller) waitResume(ctx context.Context) bool {
	select {
	case <-c.resumeCh:
		return true
	case <-ctx.Done():
		return false
	case <-c.aborted:
		return false
	}
}

func (c *Controller) idle(ctx context.Context) {
	timer := time.NewTimer(c.cfg.IdleWait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (c *Controller) pendingOutcomes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) isAborted() bool {
	select {
	case <-c.aborted:
		return true
	default:
		return false
	}
}

func (c *Controller) setPhase(p hub.Phase) {
	c.mu.Lock()
	c.progress.Phase = p
	c.mu.Unlock()
}

func (c *Controller) emitLifecycle(s State) {
	c.emit(telemetry.Event{
		Type:  telemetry.TypeLifecycleChanged,
		Stage: string(s),
	})
}

func (c *Controller) emit(evt telemetry.Event) {
	if c.deps.Emitter == nil {
		return
	}
	evt.TS = c.now()
	if evt.RunID == uuid.Nil && c.runID != "" {
		if id, err := uuid.Parse(c.runID); err == nil {
			evt.RunID = id
		}
	}
	c.deps.Emitter.Emit(evt)
}

// markAttempted records the candidate URL for this run, reporting false
// when it was already queued or fetched. Unparseable URLs pass through;
// the frontier rejects them with a real error.
func (c *Controller) markAttempted(url string) bool {
	key, err := frontier.URLKey(url)
	if err != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.attempted[key]; seen {
		return false
	}
	c.attempted[key] = struct{}{}
	return true
}

func (c *Controller) now() time.Time {
	if c.deps.Clock != nil {
		return c.deps.Clock.Now()
	}
	return time.Now().UTC()
}
