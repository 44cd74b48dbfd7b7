// Package pipeline orchestrates a full collection run: the runner's
// own submissions, the task statements, the comparison users resolved
// from the standings, their submissions, and finally the export
// bundle with an optional AI review on top. Page access goes through
// a SiteClient so the stages stay testable without a live site.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sessionscout-backend/internal/assert"
	"sessionscout-backend/internal/coverage"
	"sessionscout-backend/internal/exportcache"
	"sessionscout-backend/internal/records"
	"sessionscout-backend/internal/review"
	"sessionscout-backend/internal/scraper/atcoder"
	"sessionscout-backend/internal/telemetry"
)

const (
	report_run_failed     = "pipeline.run"
	report_store_window   = "pipeline.store-window"
	report_store_progress = "pipeline.store-progress"
	report_resolve_login  = "pipeline.resolve-login"
	report_save_review    = "pipeline.save-review"
	report_mark_checked   = "pipeline.mark-checked"
)

// SiteClient is the slice of the scraper client the pipeline needs.
// *atcoder.Client satisfies it.
type SiteClient interface {
	MySubmissionsPage(ctx context.Context, contest string, page int) (atcoder.ListingPage, error)
	UserSubmissionsPage(ctx context.Context, contest string, user string, page int) (atcoder.ListingPage, error)
	SubmissionDetail(ctx context.Context, contest string, id int64) (atcoder.SubmissionDetail, error)
	TaskList(ctx context.Context, contest string) ([]atcoder.TaskRow, error)
	TaskDetail(ctx context.Context, contest string, taskId string) (atcoder.TaskDetail, error)
	Standings(ctx context.Context, contest string) ([]atcoder.StandingsRow, error)
	LoginUser(ctx context.Context, contest string) (string, error)
}

type Options struct {
	Client SiteClient
	Store  records.Store
	Cache  exportcache.Cache
	// Reviewer is optional; a run with WithReview set fails fast
	// without one.
	Reviewer review.Generator
	// Notifier is optional.
	Notifier Notifier
	// PoliteDelay spaces out page fetches within a stage and between
	// comparison users. Defaults to one second.
	PoliteDelay time.Duration
}

type Pipeline struct {
	client      SiteClient
	store       records.Store
	cache       exportcache.Cache
	reviewer    review.Generator
	notifier    Notifier
	politeDelay time.Duration

	tel telemetry.API
}

func New(opts Options, tel telemetry.API) *Pipeline {
	assert.NotNil(tel)
	assert.NotNil(opts.Client)

	if opts.PoliteDelay <= 0 {
		opts.PoliteDelay = time.Second
	}
	return &Pipeline{
		client:      opts.Client,
		store:       opts.Store,
		cache:       opts.Cache,
		reviewer:    opts.Reviewer,
		notifier:    opts.Notifier,
		politeDelay: opts.PoliteDelay,
		tel:         telemetry.NewScopedAPI("pipeline", tel),
	}
}

type RunParams struct {
	Contest string
	// MaxPages bounds the listing pagination per user. Defaults to 3.
	MaxPages int
	// Mode filters fetched submissions. Defaults to ModeAll.
	Mode atcoder.Mode
	// SelfUser overrides whose submissions count as "own". Empty means
	// the logged in session's /submissions/me listing.
	SelfUser string
	// Targets selects the comparison users. Defaults to the top 3
	// finishers.
	Targets    TargetConfig
	WithReview bool
}

func (p RunParams) withDefaults() RunParams {
	p.Contest = strings.TrimSpace(p.Contest)
	p.SelfUser = strings.TrimSpace(p.SelfUser)
	if p.MaxPages <= 0 {
		p.MaxPages = 3
	}
	if p.Mode == "" {
		p.Mode = atcoder.ModeAll
	}
	p.Targets = p.Targets.withDefaults()
	return p
}

// StageResult is what a single collection stage produced.
type StageResult struct {
	Stats records.UpsertStats
	// Fetched counts rows that survived the mode filter, including
	// ones that only refreshed an existing record.
	Fetched int
}

// run carries the mutable state of one collection run.
type run struct {
	*Pipeline
	params RunParams
	parts  Parts

	progress float64
}

// ValidateRun checks params without touching the network or the
// store, so a caller can reject a bad run before detaching it.
func (p *Pipeline) ValidateRun(params RunParams) error {
	params = params.withDefaults()
	if params.Contest == "" {
		return fmt.Errorf("contest is required")
	}
	if !params.Mode.Valid() {
		return fmt.Errorf("unknown submission mode %q", params.Mode)
	}
	if params.WithReview && p.reviewer == nil {
		return review.ErrNotConfigured
	}
	return nil
}

// Run executes the whole pipeline for one contest and blocks until it
// is terminal. Terminal status (success, failure, cancellation) is
// reported through the progress sinks before Run returns; the error
// is for the caller's own classification.
func (p *Pipeline) Run(ctx context.Context, params RunParams) error {
	if err := p.ValidateRun(params); err != nil {
		return err
	}
	params = params.withDefaults()

	r := &run{
		Pipeline: p,
		params:   params,
		parts:    PartsFor(params.Targets.N, params.WithReview),
	}
	err := r.execute(ctx)
	if err == nil {
		return nil
	}

	// Terminal reporting has to outlive the run's own context.
	base := context.WithoutCancel(ctx)
	if IsCancellation(err) {
		r.report(base, "cancelled", false, true)
		if clearErr := p.store.ClearProgress(base, params.Contest); clearErr != nil {
			p.tel.ReportWarning(report_store_progress, "contest", params.Contest, "error", clearErr)
		}
		return err
	}
	p.tel.ReportBroken(report_run_failed, "contest", params.Contest, "error", err)
	r.report(base, err.Error(), true, true)
	return err
}

func (r *run) execute(ctx context.Context) error {
	contest := r.params.Contest
	selfUser := r.params.SelfUser

	r.report(ctx, "checking cached data", false, false)
	cached, err := coverage.Assess(ctx, r.store, contest, selfUser, nil)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var ownStats records.UpsertStats
	if cached.HasCachedMySubmissions {
		r.report(ctx, ownSubmissionsLabel(selfUser)+" (using cache)", false, false)
	} else {
		r.report(ctx, ownSubmissionsLabel(selfUser), false, false)
		res, err := r.collectMySubmissions(ctx)
		if err != nil {
			return err
		}
		ownStats = res.Stats
	}
	r.progress += r.parts.Stage1
	if err := ctx.Err(); err != nil {
		return err
	}

	if cached.HasCachedTasks {
		r.report(ctx, "collecting tasks (using cache)", false, false)
		r.progress += r.parts.Stage2
	} else {
		stageBase := r.progress
		_, err := r.collectTasks(ctx, func(index, total int, phaseDone bool) {
			ratio := stageRatio(index, total, phaseDone)
			text := fmt.Sprintf("collecting tasks (%d/%d)", min(index+1, total), total)
			r.reportAt(ctx, text, false, false, stageBase+r.parts.Stage2*ratio)
		})
		if err != nil {
			return err
		}
		r.progress = stageBase + r.parts.Stage2
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The standings feed is cheap, so target users are resolved fresh
	// on every run.
	r.report(ctx, "resolving comparison users", false, false)
	targets, err := r.collectTargetUsers(ctx)
	if err != nil {
		return err
	}
	r.progress += r.parts.Stage3

	targetNames := make([]string, 0, len(targets))
	for _, u := range targets {
		targetNames = append(targetNames, u.Name)
	}
	userCoverage, err := coverage.Assess(ctx, r.store, contest, selfUser, targetNames)
	if err != nil {
		return err
	}
	allTargetsCached := userCoverage.HasCachedTopUsers && len(userCoverage.MissingUsers) == 0
	if err := ctx.Err(); err != nil {
		return err
	}

	var targetStats records.UpsertStats
	if allTargetsCached {
		r.report(ctx, "collecting comparison submissions (using cache)", false, false)
		r.progress += r.parts.Stage4
	} else {
		usersToFetch := userCoverage.MissingUsers
		if len(usersToFetch) == 0 {
			usersToFetch = targetNames
		}
		stageBase := r.progress
		targetStats, err = r.collectTargetSubmissions(ctx, usersToFetch, func(index, total int, phaseDone bool) {
			ratio := stageRatio(index, total, phaseDone)
			text := fmt.Sprintf("collecting comparison submissions (%d/%d)", min(index+1, total), total)
			r.reportAt(ctx, text, false, false, stageBase+r.parts.Stage4*ratio)
		})
		if err != nil {
			return err
		}
		r.progress = stageBase + r.parts.Stage4
	}

	added := ownStats.Added + targetStats.Added
	updated := ownStats.Updated + targetStats.Updated
	cacheSuffix := ""
	switch {
	case cached.HasCachedTasks && cached.HasCachedMySubmissions && allTargetsCached:
		cacheSuffix = " (all from cache)"
	case cached.HasCachedTasks || cached.HasCachedMySubmissions || allTargetsCached:
		cacheSuffix = " (partly from cache)"
	}
	r.progress = r.parts.Stage1 + r.parts.Stage2 + r.parts.Stage3 + r.parts.Stage4
	r.report(ctx, fmt.Sprintf(
		"collection finished: %d added / %d updated (%d users)%s",
		added, updated, len(targets), cacheSuffix,
	), false, false)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.report(ctx, "saving export bundle", false, false)
	bundle, err := r.cache.Materialize(ctx, contest, selfUser)
	if err != nil {
		return err
	}
	r.progress += r.parts.Export
	if err := ctx.Err(); err != nil {
		return err
	}

	if !r.params.WithReview {
		r.progress = 100
		r.report(ctx, "collection complete", false, true)
		return nil
	}
	return r.runReview(ctx, bundle)
}

func (r *run) runReview(ctx context.Context, bundle exportcache.Bundle) error {
	r.report(ctx, "generating review", false, false)

	// The review call is tracked separately from the crawl: once it
	// starts, cancelling the run no longer aborts it.
	reviewCtx := context.WithoutCancel(ctx)
	result, err := r.reviewer.Generate(reviewCtx, review.Request{
		Contest:     r.params.Contest,
		TargetUser:  bundle.SelfUser,
		PayloadJSON: bundle.Json,
	})
	if err != nil {
		return err
	}

	_, err = r.cache.AttachReview(reviewCtx, bundle.CacheKey, exportcache.ReviewFields{
		Markdown: result.Markdown,
		Prompt:   result.Prompt,
		Provider: result.Provider,
		Model:    result.Model,
	})
	if err != nil {
		// attach failure is non-fatal, the review was still generated
		r.tel.ReportWarning(report_save_review, "cacheKey", bundle.CacheKey, "error", err)
	}

	r.progress = 100
	r.report(reviewCtx, "review complete", false, true)
	return nil
}

// collectMySubmissions pages through the runner's own listing and
// upserts the filtered details tagged as self submissions. The first
// page doubles as the contest window source.
func (r *run) collectMySubmissions(ctx context.Context) (StageResult, error) {
	contest := r.params.Contest
	selfUser := r.params.SelfUser
	selfKey := records.SelfSentinel
	if selfUser != "" {
		selfKey = records.CanonicalUser(selfUser)
	}

	var ids []int64
	for page := 1; page <= r.params.MaxPages; page++ {
		if err := r.pause(ctx); err != nil {
			return StageResult{}, err
		}

		var listing atcoder.ListingPage
		var err error
		if selfUser != "" {
			listing, err = r.client.UserSubmissionsPage(ctx, contest, selfUser, page)
		} else {
			listing, err = r.client.MySubmissionsPage(ctx, contest, page)
		}
		if err != nil {
			return StageResult{}, err
		}

		if page == 1 && listing.Window != nil {
			window := records.Window{
				Start: listing.Window.Start.Unix(),
				End:   listing.Window.End.Unix(),
			}
			if _, err := r.store.SetContestWindow(ctx, contest, window); err != nil {
				r.tel.ReportWarning(report_store_window, "contest", contest, "error", err)
			}
		}
		if len(listing.IDs) == 0 {
			break
		}
		ids = append(ids, listing.IDs...)
		if len(listing.IDs) < atcoder.FullPage {
			break
		}
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return StageResult{}, &EmptyResultError{
			Stage:   "own submissions",
			Message: noSubmissionsMessage(selfUser),
		}
	}

	details, err := r.collectSubmissionDetails(ctx, ids)
	if err != nil {
		return StageResult{}, err
	}
	details = atcoder.FilterMode(details, r.params.Mode)
	if len(details) == 0 {
		return StageResult{}, &EmptyResultError{
			Stage:   "own submissions",
			Message: noSubmissionsMessage(selfUser),
		}
	}

	stats, err := r.store.UpsertSubmissions(ctx, contest, toSubmissions(details, selfKey), records.SourceSelf)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{Stats: stats, Fetched: len(details)}, nil
}

type stageProgressFunc func(index, total int, phaseDone bool)

// collectTasks fetches the task list and every task's statement page.
func (r *run) collectTasks(ctx context.Context, onProgress stageProgressFunc) (int, error) {
	contest := r.params.Contest

	if err := r.pause(ctx); err != nil {
		return 0, err
	}
	rows, err := r.client.TaskList(ctx, contest)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, &EmptyResultError{
			Stage:   "tasks",
			Message: "the contest task listing came back empty; check the contest id",
		}
	}

	tasks := make([]records.Task, 0, len(rows))
	for i, row := range rows {
		if onProgress != nil {
			onProgress(i, len(rows), false)
		}
		if err := r.pause(ctx); err != nil {
			return 0, err
		}
		detail, err := r.client.TaskDetail(ctx, contest, row.ID)
		if err != nil {
			return 0, err
		}

		title := detail.Title
		if title == "" {
			title = row.Title
		}
		tasks = append(tasks, records.Task{
			ID:            row.ID,
			Title:         title,
			URL:           row.URL,
			StatementText: detail.StatementText,
			TimeLimit:     detail.TimeLimit,
			MemoryLimit:   detail.MemoryLimit,
		})
		if onProgress != nil {
			onProgress(i, len(rows), true)
		}
	}

	_, err = r.store.UpsertTasks(ctx, contest, tasks)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// collectTargetUsers resolves the comparison users from the standings
// and replaces the stored user set with them.
func (r *run) collectTargetUsers(ctx context.Context) ([]records.User, error) {
	contest := r.params.Contest
	cfg := r.params.Targets

	standings, err := r.fetchStandings(ctx, cfg.Mode == TargetManual)
	if err != nil {
		return nil, err
	}

	selfIndex := -1
	if cfg.Mode == TargetAbsolute || cfg.Mode == TargetRelative {
		selfIndex = indexOfUser(standings, r.params.SelfUser)
		if selfIndex == -1 {
			login, err := r.client.LoginUser(ctx, contest)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				r.tel.ReportWarning(report_resolve_login, "contest", contest, "error", err)
			} else {
				selfIndex = indexOfUser(standings, login)
			}
		}
	}

	selected, err := ResolveTargets(cfg, standings, selfIndex)
	if err != nil {
		return nil, err
	}
	if err := r.store.ReplaceUsers(ctx, contest, selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// fetchStandings returns the scoreboard as ordered users. In manual
// mode the scoreboard only annotates ranks, so a failure there is
// tolerated.
func (r *run) fetchStandings(ctx context.Context, optional bool) ([]records.User, error) {
	rows, err := r.client.Standings(ctx, r.params.Contest)
	if err != nil {
		if optional && ctx.Err() == nil {
			return nil, nil
		}
		return nil, err
	}
	users := make([]records.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, records.User{Name: row.User, Rank: row.Rank})
	}
	return users, nil
}

// collectTargetSubmissions fetches each comparison user's listing and
// details, and marks the user checked afterwards even when nothing
// was found, so a later run does not refetch a user who simply has no
// submissions.
func (r *run) collectTargetSubmissions(ctx context.Context, users []string, onProgress stageProgressFunc) (records.UpsertStats, error) {
	contest := r.params.Contest

	var total records.UpsertStats
	for i, user := range users {
		if onProgress != nil {
			onProgress(i, len(users), false)
		}
		// spread load between users
		if err := r.pause(ctx); err != nil {
			return total, err
		}

		var ids []int64
		for page := 1; page <= r.params.MaxPages; page++ {
			if err := r.pause(ctx); err != nil {
				return total, err
			}
			listing, err := r.client.UserSubmissionsPage(ctx, contest, user, page)
			if err != nil {
				return total, err
			}
			if len(listing.IDs) == 0 {
				break
			}
			ids = append(ids, listing.IDs...)
			if len(listing.IDs) < atcoder.FullPage {
				break
			}
		}
		ids = uniqueIDs(ids)

		details, err := r.collectSubmissionDetails(ctx, ids)
		if err != nil {
			return total, err
		}
		details = atcoder.FilterMode(details, r.params.Mode)

		stats, err := r.store.UpsertSubmissions(ctx, contest, toSubmissions(details, ""), records.SourceTop)
		if err != nil {
			return total, err
		}
		total.Added += stats.Added
		total.Updated += stats.Updated

		if err := r.store.MarkChecked(ctx, contest, user); err != nil {
			r.tel.ReportWarning(report_mark_checked, "contest", contest, "user", user, "error", err)
		}
		if onProgress != nil {
			onProgress(i, len(users), true)
		}
	}
	return total, nil
}

func (r *run) collectSubmissionDetails(ctx context.Context, ids []int64) ([]atcoder.SubmissionDetail, error) {
	details := make([]atcoder.SubmissionDetail, 0, len(ids))
	for _, id := range ids {
		if err := r.pause(ctx); err != nil {
			return nil, err
		}
		detail, err := r.client.SubmissionDetail(ctx, r.params.Contest, id)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (r *run) pause(ctx context.Context) error {
	timer := time.NewTimer(r.politeDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *run) report(ctx context.Context, text string, isError bool, done bool) {
	r.reportAt(ctx, text, isError, done, r.progress)
}

func (r *run) reportAt(ctx context.Context, text string, isError bool, done bool, pct float64) {
	pct = clampPct(pct)
	state := records.ProgressState{
		Contest:  r.params.Contest,
		Text:     text,
		IsError:  isError,
		Done:     done,
		Running:  !done,
		Progress: pct,
	}
	if err := r.store.SetProgress(ctx, state); err != nil {
		r.tel.ReportWarning(report_store_progress, "contest", r.params.Contest, "error", err)
	}
	if r.notifier != nil {
		r.notifier.Notify(Update{
			Contest:  r.params.Contest,
			Text:     text,
			IsError:  isError,
			Done:     done,
			Progress: pct,
		})
	}
}

// CollectMySubmissions runs the own-submissions stage alone.
func (p *Pipeline) CollectMySubmissions(ctx context.Context, params RunParams) (StageResult, error) {
	r := &run{Pipeline: p, params: params.withDefaults()}
	return r.collectMySubmissions(ctx)
}

// CollectTasks runs the task stage alone and returns the task count.
func (p *Pipeline) CollectTasks(ctx context.Context, params RunParams) (int, error) {
	r := &run{Pipeline: p, params: params.withDefaults()}
	return r.collectTasks(ctx, nil)
}

// CollectTargetUsers runs the standings stage alone.
func (p *Pipeline) CollectTargetUsers(ctx context.Context, params RunParams) ([]records.User, error) {
	r := &run{Pipeline: p, params: params.withDefaults()}
	return r.collectTargetUsers(ctx)
}

// CollectTargetSubmissions runs the comparison-submissions stage
// alone against the stored user set, resolving it first if absent.
func (p *Pipeline) CollectTargetSubmissions(ctx context.Context, params RunParams) (records.UpsertStats, error) {
	r := &run{Pipeline: p, params: params.withDefaults()}

	users, err := r.store.ListUsers(ctx, r.params.Contest)
	if err != nil {
		return records.UpsertStats{}, err
	}
	if len(users) == 0 {
		users, err = r.collectTargetUsers(ctx)
		if err != nil {
			return records.UpsertStats{}, err
		}
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return r.collectTargetSubmissions(ctx, names, nil)
}

func ownSubmissionsLabel(selfUser string) string {
	if selfUser == "" {
		return "collecting your submissions"
	}
	return fmt.Sprintf("collecting submissions by %s", selfUser)
}

func noSubmissionsMessage(selfUser string) string {
	who := "the logged in user"
	if selfUser != "" {
		who = selfUser
	}
	return fmt.Sprintf(
		"no submissions found for %s; check that the account entered the contest and the session cookie is valid",
		who,
	)
}

func stageRatio(index, total int, phaseDone bool) float64 {
	if total == 0 {
		return 1
	}
	if phaseDone {
		return float64(index+1) / float64(total)
	}
	return float64(index) / float64(total)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func indexOfUser(standings []records.User, name string) int {
	key := records.CanonicalUser(name)
	if key == "" {
		return -1
	}
	for i, row := range standings {
		if records.CanonicalUser(row.Name) == key {
			return i
		}
	}
	return -1
}

func toSubmissions(details []atcoder.SubmissionDetail, selfKey string) []records.Submission {
	subs := make([]records.Submission, 0, len(details))
	for _, d := range details {
		subs = append(subs, records.Submission{
			ID:            d.ID,
			User:          d.User,
			Task:          d.Task,
			Result:        d.Result,
			Score:         d.Score,
			Language:      d.Language,
			ExecutionTime: d.ExecutionTime,
			Memory:        d.Memory,
			SubmittedAt:   d.SubmittedAt,
			Code:          d.Code,
			SelfUserKey:   selfKey,
		})
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs
}
