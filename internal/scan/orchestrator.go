// internal/scan/orchestrator.go
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/valpere/CommentHarvester/internal/config"
	"github.com/valpere/CommentHarvester/internal/domdriver"
	"github.com/valpere/CommentHarvester/internal/intercept"
	"github.com/valpere/CommentHarvester/internal/payload"
	"github.com/valpere/CommentHarvester/internal/records"
	"github.com/valpere/CommentHarvester/internal/replay"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// Driver is the DOM interaction surface the orchestrator needs.
type Driver interface {
	CheckPostState(ctx context.Context) (domdriver.PostState, error)
	SwitchSortToRecent(ctx context.Context) (domdriver.SortOutcome, error)
	ClickLoadMore(ctx context.Context) (bool, error)
	ExpandReplies(ctx context.Context) (int, error)
	ExpandSeeMore(ctx context.Context) (int, error)
	ScrollComments(ctx context.Context) error
	CommentCount(ctx context.Context) (int, error)
	DeclaredTotal(ctx context.Context) (int, error)
	InstallMutationCounter(ctx context.Context) error
	DrainMutationCount(ctx context.Context) (int, error)
	CommentsRegionHTML(ctx context.Context) (string, error)
}

// Capture is the passive interception surface.
type Capture interface {
	Envelopes() <-chan intercept.Envelope
	DrainPageBuffer(ctx context.Context) (int, error)
	Captured() int
}

// Replayer is the active pagination surface.
type Replayer interface {
	ReplayTopLevel(ctx context.Context, templateURL string, paging *payload.Paging) error
	EnqueueReplyReplay(ctx context.Context, parentID, templateURL string, paging *payload.Paging) bool
	WaitForReplies()
	Stats() replay.Stats
	Aborted() bool
}

// MetricsRecorder receives scan telemetry. Implementations must be safe
// for concurrent use. A nil recorder disables telemetry.
type MetricsRecorder interface {
	ScanStarted()
	ScanFinished(state string, duration time.Duration)
	EmailsFound(n int)
	DuplicatesMerged(n int)
	PagesIntercepted(n int)
	PagesReplayed(n int)
	RateLimitHits(n int)
}

type replyCandidate struct {
	templateURL string
	paging      *payload.Paging
}

// Orchestrator runs one scan end to end.
type Orchestrator struct {
	cfg      *config.Config
	session  *Session
	driver   Driver
	capture  Capture
	replayer Replayer
	parser   *payload.Parser
	emitter  *progressEmitter
	metrics  MetricsRecorder
	logger   utils.Logger

	topLevelTemplate     string
	topLevelPaging       *payload.Paging
	replyCandidates      map[string]replyCandidate
	interceptUnavailable bool
	lastEnrich           time.Time
}

// NewOrchestrator wires a scan over the given surfaces. sink and metrics
// may be nil.
func NewOrchestrator(cfg *config.Config, session *Session, driver Driver, capture Capture, replayer Replayer, sink ProgressSink, metrics MetricsRecorder, logger utils.Logger) *Orchestrator {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Orchestrator{
		cfg:             cfg,
		session:         session,
		driver:          driver,
		capture:         capture,
		replayer:        replayer,
		parser:          payload.NewParser(cfg.Target.PostURL, cfg.Target.ProfileBaseURL, logger),
		emitter:         newProgressEmitter(sink, cfg.Scan.ProgressThrottle()),
		metrics:         metrics,
		logger:          logger.WithField("component", "scan"),
		replyCandidates: make(map[string]replyCandidate),
	}
}

// HandleReplayPage is the PageHandler given to the replay controller:
// replayed pages run through the same parse-dedupe-merge path as
// intercepted ones.
func (o *Orchestrator) HandleReplayPage(url, body string) {
	if env, ok := intercept.DecodeBody(url, body); ok {
		o.processEnvelope(env, true)
	}
}

// Run executes the scan to a terminal state and returns the result.
// Cancelling ctx stops the scan cooperatively with partial results.
func (o *Orchestrator) Run(ctx context.Context) Result {
	started := time.Now()
	if o.metrics != nil {
		o.metrics.ScanStarted()
	}

	o.runPhases(ctx)

	o.finalize(ctx)
	result := o.buildResult()
	if o.metrics != nil {
		o.metrics.ScanFinished(string(result.State), time.Since(started))
	}
	o.emitter.Emit(o.session.Snapshot(), result.ErrorMessage, true)
	return result
}

// runPhases drives the state machine up to finalization.
func (o *Orchestrator) runPhases(ctx context.Context) {
	o.session.SetState(StateInitializing)
	o.emitter.Emit(o.session.Snapshot(), "scan starting", true)

	if !o.preflight(ctx) {
		return
	}

	o.session.SetState(StateSortVerification)
	outcome, err := o.driver.SwitchSortToRecent(ctx)
	switch {
	case err != nil:
		o.logger.Warnf("sort switch failed: %v", err)
	case outcome == domdriver.SortUnverified:
		o.logger.Warn("sort switch unverified; chronological feeds can cap around 600 comments")
	default:
		o.logger.Infof("sort order: %s", outcome)
	}

	o.session.SetState(StatePrimaryCollection)
	if stop := o.collectPasses(ctx); stop {
		return
	}

	o.session.SetState(StateReplyExpansion)
	if stop := o.expandByReplay(ctx); stop {
		return
	}

	o.session.SetState(StateCoverageDecision)
	o.applyCoverageDecision(ctx)
}

// preflight verifies the post is scannable. Returns false when the scan
// must end.
func (o *Orchestrator) preflight(ctx context.Context) bool {
	state, err := o.driver.CheckPostState(ctx)
	if err != nil {
		o.logger.Warnf("post state check failed: %v", err)
	}
	switch state {
	case domdriver.PostStateRemoved:
		o.session.SetError(StateError, utils.UserMessage(utils.NewError(utils.ErrCodePostRemoved, "post unavailable")))
		return false
	case domdriver.PostStateCommentsDisabled:
		o.session.SetError(StateError, "comments are disabled on this post")
		return false
	}

	if err := o.driver.InstallMutationCounter(ctx); err != nil {
		o.logger.Warnf("mutation counter unavailable: %v", err)
	}
	if total, err := o.driver.DeclaredTotal(ctx); err == nil && total > 0 {
		o.session.SetDeclaredTotal(total)
	}
	return true
}

// collectPasses runs the DOM collection loop. Returns true when the scan
// hit a terminal condition.
func (o *Orchestrator) collectPasses(ctx context.Context) bool {
	scanCfg := o.cfg.Scan
	noWork := 0
	noGrowth := 0
	lastCount := 0

	for {
		if stopped := o.checkTermination(ctx); stopped {
			return true
		}
		pass := o.session.IncPasses()
		if pass > scanCfg.MaxPasses {
			o.logger.Infof("pass limit reached (%d)", scanCfg.MaxPasses)
			return false
		}

		o.drainEnvelopes()
		if _, err := o.capture.DrainPageBuffer(ctx); err != nil {
			o.logger.Debugf("page buffer drain failed: %v", err)
		}
		o.checkInterceptHealth(ctx)

		workDone := o.domPass(ctx, pass)
		o.enrichIfDue(ctx)

		count, err := o.driver.CommentCount(ctx)
		if err != nil {
			o.logger.Debugf("comment count failed: %v", err)
		}
		if count > lastCount {
			lastCount = count
			noGrowth = 0
			o.session.RecordProgress()
		} else {
			noGrowth++
		}
		if workDone {
			noWork = 0
		} else {
			noWork++
		}

		o.emitter.Emit(o.session.Snapshot(), "", false)

		if noWork >= scanCfg.NoWorkPassesBeforeExit && pass > 1 {
			o.logger.Info("no interactive work left, collection done")
			return false
		}
		growthLimit := scanCfg.NoGrowthPassesBeforeGiveUp
		if o.session.Snapshot().DeclaredTotal > scanCfg.LargeThreadSize {
			growthLimit = scanCfg.LargeThreadNoGrowthPasses
		}
		if noGrowth >= growthLimit {
			o.logger.Infof("no comment growth for %d passes, collection done", noGrowth)
			return false
		}

		if err := o.waitQuiet(ctx); err != nil {
			return o.checkTermination(ctx)
		}
	}
}

// domPass performs one round of clicking and scrolling. Returns whether
// any control was actuated.
func (o *Orchestrator) domPass(ctx context.Context, pass int) bool {
	workDone := false
	if clicked, err := o.driver.ClickLoadMore(ctx); err == nil && clicked {
		workDone = true
	}
	if n, err := o.driver.ExpandReplies(ctx); err == nil && n > 0 {
		workDone = true
	}
	if n, err := o.driver.ExpandSeeMore(ctx); err == nil && n > 0 {
		workDone = true
	}
	// The feed lazy-loads; an occasional scroll surfaces controls that
	// render below the fold.
	if pass%4 == 0 {
		if err := o.driver.ScrollComments(ctx); err == nil {
			workDone = true
		}
	}
	return workDone
}

// checkInterceptHealth nudges the page when capture is slow to produce,
// and flags capture as unavailable after the fallback window.
func (o *Orchestrator) checkInterceptHealth(ctx context.Context) {
	if o.interceptUnavailable || o.capture.Captured() > 0 {
		return
	}
	elapsed := time.Since(o.session.StartedAt)
	if elapsed > o.cfg.Scan.InterceptFallbackTimeout() {
		o.interceptUnavailable = true
		o.logger.Warn(utils.UserMessage(utils.NewError(utils.ErrCodeInterceptUnavailable, "")))
		return
	}
	if elapsed > o.cfg.Scan.FirstInterceptTimeout() {
		_ = o.driver.ScrollComments(ctx)
	}
}

// enrichIfDue runs live author enrichment from the rendered page on its
// cadence.
func (o *Orchestrator) enrichIfDue(ctx context.Context) {
	if time.Since(o.lastEnrich) < o.cfg.Scan.EnrichInterval() {
		return
	}
	o.lastEnrich = time.Now()
	html, err := o.driver.CommentsRegionHTML(ctx)
	if err != nil || html == "" {
		return
	}
	if n := domdriver.EnrichFromHTML(html, o.session.Store); n > 0 {
		o.logger.Debugf("enriched %d records from rendered containers", n)
	}
}

// waitQuiet waits for all activity signals to settle between passes.
func (o *Orchestrator) waitQuiet(ctx context.Context) error {
	deadline := o.session.Deadline()
	quietCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	return WaitForQuiet(quietCtx, o.cfg.Scan.QuietWindow(), o.cfg.Scan.QuietCheckInterval(),
		func(c context.Context) (bool, error) {
			busy := o.drainEnvelopes()
			if n, err := o.capture.DrainPageBuffer(c); err == nil && n > 0 {
				busy = true
			}
			if n, err := o.driver.DrainMutationCount(c); err == nil && n > 0 {
				busy = true
			}
			return busy, nil
		})
}

// expandByReplay replays the revealed endpoints. Returns true when the
// scan must end.
func (o *Orchestrator) expandByReplay(ctx context.Context) bool {
	if o.topLevelTemplate != "" {
		err := o.replayer.ReplayTopLevel(ctx, o.topLevelTemplate, o.topLevelPaging)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return o.checkTermination(ctx)
			}
			if utils.CodeOf(err) == utils.ErrCodeAccountLimited {
				o.session.SetError(StateError, utils.UserMessage(err))
				o.recordReplayMetrics()
				return true
			}
			o.logger.Warnf("top-level replay ended early: %v", err)
		}
	}

	for parentID, candidate := range o.replyCandidates {
		o.replayer.EnqueueReplyReplay(ctx, parentID, candidate.templateURL, candidate.paging)
	}
	o.replayer.WaitForReplies()
	o.drainEnvelopes()
	o.recordReplayMetrics()

	if o.replayer.Aborted() {
		o.session.SetError(StateError, utils.UserMessage(utils.NewError(utils.ErrCodeAccountLimited, "")))
		return true
	}
	return o.checkTermination(ctx)
}

func (o *Orchestrator) recordReplayMetrics() {
	if o.metrics == nil {
		return
	}
	stats := o.replayer.Stats()
	o.metrics.RateLimitHits(stats.RateLimitHits)
}

// applyCoverageDecision decides how much DOM fallback work is needed.
// Interception that already produced records is sufficient on its own;
// otherwise coverage of the declared total must clear the threshold.
// Coverage of zero (replay never started, nothing scanned) takes the
// full fallback path.
func (o *Orchestrator) applyCoverageDecision(ctx context.Context) {
	coverage := o.session.Coverage()
	snap := o.session.Snapshot()

	interceptSufficient := !o.interceptUnavailable &&
		snap.Intercepted > 0 && snap.EmailsFound > 0
	enrichOnly := interceptSufficient || coverage >= o.cfg.Scan.CoverageThreshold

	html, err := o.driver.CommentsRegionHTML(ctx)
	if err != nil || html == "" {
		return
	}

	if enrichOnly {
		o.logger.Infof("coverage %.0f%%, enriching only", coverage*100)
		domdriver.EnrichFromHTML(html, o.session.Store)
		return
	}

	o.logger.Infof("coverage %.0f%%, running full fallback scan", coverage*100)
	added := 0
	for _, rec := range domdriver.FallbackScan(html, o.cfg.Target.PostURL) {
		switch o.session.Store.Merge(rec) {
		case records.MergeInserted:
			added++
			if o.metrics != nil {
				o.metrics.EmailsFound(1)
			}
			o.emitter.AddRecords([]records.Record{rec})
		case records.MergeDuplicate:
			if o.metrics != nil {
				o.metrics.DuplicatesMerged(1)
			}
		}
	}
	if added > 0 {
		o.session.RecordProgress()
	}
	domdriver.EnrichFromHTML(html, o.session.Store)
}

// finalize purges fragments and settles the terminal state.
func (o *Orchestrator) finalize(ctx context.Context) {
	o.session.SetState(StateFinalizing)
	if purged := o.session.Store.PurgeFragments(); purged > 0 {
		o.logger.Debugf("purged %d fragment keys", purged)
	}
	o.drainEnvelopes()

	snap := o.session.Snapshot()
	perComment := 0.0
	if snap.CommentsScanned > 0 {
		perComment = float64(snap.EmailsFound) / float64(snap.CommentsScanned)
	}
	o.logger.Infof("scan summary: emails=%d comments=%d/%d intercepted=%d replayed=%d passes=%d emails_per_comment=%.3f",
		snap.EmailsFound, snap.CommentsScanned, snap.DeclaredTotal,
		snap.Intercepted, snap.Replayed, snap.Passes, perComment)

	o.session.SetState(StateComplete)
}

// checkTermination applies cancellation and deadline. Returns true when
// the scan is over.
func (o *Orchestrator) checkTermination(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		o.session.SetError(StateStopped, "scan stopped")
		return true
	default:
	}
	if o.session.Expired() {
		o.session.SetError(StateTimedOut, utils.UserMessage(utils.NewError(utils.ErrCodeScanTimedOut, "")))
		return true
	}
	return false
}

// drainEnvelopes processes everything currently captured without
// blocking. Returns whether anything arrived.
func (o *Orchestrator) drainEnvelopes() bool {
	drained := false
	for {
		select {
		case env := <-o.capture.Envelopes():
			drained = true
			o.processEnvelope(env, false)
		default:
			return drained
		}
	}
}

// processEnvelope runs one payload through parse, dedupe, and merge.
func (o *Orchestrator) processEnvelope(env intercept.Envelope, replayed bool) {
	res := o.parser.Parse(env.Payload, env.URL)
	key := payload.DedupeKey(env.URL, res.Paging, env.Body)
	if o.session.Dedupe.Seen(key) {
		return
	}

	if replayed {
		o.session.AddReplayed(1)
		if o.metrics != nil {
			o.metrics.PagesReplayed(1)
		}
	} else {
		o.session.AddIntercepted(1)
		if o.metrics != nil {
			o.metrics.PagesIntercepted(1)
		}
	}

	o.trackPaging(env.URL, res)

	var added []records.Record
	for _, rec := range res.Records {
		switch o.session.Store.Merge(rec) {
		case records.MergeInserted:
			added = append(added, rec)
			if o.metrics != nil {
				o.metrics.EmailsFound(1)
			}
		case records.MergeDuplicate:
			if o.metrics != nil {
				o.metrics.DuplicatesMerged(1)
			}
		}
	}
	o.session.AddCommentsScanned(res.CommentsScanned)
	if len(added) > 0 || res.CommentsScanned > 0 {
		o.session.RecordProgress()
	}
	o.emitter.AddRecords(added)
	if res.Paging != nil && res.Paging.Total > 0 {
		o.session.SetDeclaredTotal(res.Paging.Total)
	}
}

// trackPaging remembers the best replay template and reply candidates a
// payload reveals.
func (o *Orchestrator) trackPaging(url string, res payload.Result) {
	if res.Paging == nil {
		return
	}
	if res.IsReplySource {
		if _, exists := o.replyCandidates[res.ReplyParentID]; !exists {
			o.replyCandidates[res.ReplyParentID] = replyCandidate{templateURL: url, paging: res.Paging}
		}
		return
	}
	if o.topLevelPaging == nil || res.Paging.Total > o.topLevelPaging.Total {
		o.topLevelTemplate = url
		o.topLevelPaging = res.Paging
	}
}

// buildResult assembles the final result from the session.
func (o *Orchestrator) buildResult() Result {
	snap := o.session.Snapshot()
	return Result{
		State:            snap.State,
		Records:          o.session.Store.ValidResults(),
		CommentsScanned:  snap.CommentsScanned,
		DeclaredTotal:    snap.DeclaredTotal,
		Coverage:         o.session.Coverage(),
		InterceptedPages: snap.Intercepted,
		ReplayedPages:    snap.Replayed,
		Passes:           snap.Passes,
		ErrorMessage:     o.session.ErrorMessage(),
	}
}
