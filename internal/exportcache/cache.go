// Package exportcache materializes versioned export bundles out of the
// record store and keeps review artifacts attached to them.
package exportcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"sessionscout-backend/internal/db"
	"sessionscout-backend/internal/records"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/exportcache")

// ErrReviewNotFound is returned when a review id does not resolve to
// a stored artifact.
var ErrReviewNotFound = errors.New("review not found")

// DefaultPruneLimit caps how many bundles are kept before the oldest
// are dropped.
const DefaultPruneLimit = 100

type Metadata struct {
	CacheKey            string
	Contest             string
	SelfUser            string
	SelfUserKey         string
	SavedAt             int64
	Size                int64
	TasksCount          int64
	MySubmissionsCount  int64
	TopSubmissionsCount int64
	TopUserNames        []string
	ReviewCount         int
}

type Review struct {
	ID       string
	CacheKey string
	Markdown string
	Prompt   string
	Html     string
	Provider string
	Model    string
	SavedAt  int64
}

type Bundle struct {
	Metadata
	Json    string
	Reviews []Review
}

// CurrentReview is the newest attached artifact, or nil.
func (b Bundle) CurrentReview() *Review {
	if len(b.Reviews) == 0 {
		return nil
	}
	latest := b.Reviews[0]
	for _, r := range b.Reviews[1:] {
		if r.SavedAt >= latest.SavedAt {
			latest = r
		}
	}
	return &latest
}

// CacheKey builds the bundle identity:
// `contest::<canonical self or __self__>[::sorted canonical top users]`.
func CacheKey(contest string, selfUser string, topUsers []string) string {
	userKey := records.CanonicalUser(selfUser)
	if userKey == "" {
		userKey = records.SelfSentinel
	}
	if len(topUsers) == 0 {
		return fmt.Sprintf("%s::%s", contest, userKey)
	}
	keys := make([]string, 0, len(topUsers))
	for _, u := range topUsers {
		if k := records.CanonicalUser(u); k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s::%s::%s", contest, userKey, strings.Join(keys, ","))
}

type Cache struct {
	db         *sql.DB
	qry        *db.Queries
	store      records.Store
	pruneLimit int
}

func NewCache(database *sql.DB) Cache {
	return Cache{
		db:         database,
		qry:        db.New(database),
		store:      records.NewStore(database),
		pruneLimit: DefaultPruneLimit,
	}
}

// WithPruneLimit returns a copy of the cache that keeps at most limit
// bundles after each materialization.
func (c Cache) WithPruneLimit(limit int) Cache {
	if limit > 0 {
		c.pruneLimit = limit
	}
	return c
}

// Materialize snapshots the contest's current record store contents
// into a persisted bundle and returns it. Submissions outside the
// known contest window are filtered out of the payload; the store rows
// themselves stay untouched. Existing reviews under the same cache key
// carry over.
func (c Cache) Materialize(ctx context.Context, contest string, selfUser string) (Bundle, error) {
	ctx, span := tracer.Start(ctx, "Materialize")
	defer span.End()

	span.SetAttributes(attribute.String("contest", contest))

	payload, cacheKey, err := c.buildPayload(ctx, contest, selfUser)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}

	selfUserKey := records.CanonicalUser(payload.SelfUser)
	if selfUserKey == "" {
		selfUserKey = records.SelfSentinel
	}
	topUserNames := make([]string, 0, len(payload.TopUsers))
	for _, u := range payload.TopUsers {
		topUserNames = append(topUserNames, u.Name)
	}
	topNamesJson, err := json.Marshal(topUserNames)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}

	err = c.qry.UpsertExportBundle(ctx, db.UpsertExportBundleParams{
		CacheKey: cacheKey,
		Contest:  contest,
		SelfUser: sql.NullString{
			String: payload.SelfUser,
			Valid:  payload.SelfUser != "",
		},
		SelfUserKey:         selfUserKey,
		Json:                string(serialized),
		SavedAt:             time.Now().Unix(),
		Size:                int64(len(serialized)),
		TasksCount:          int64(len(payload.Tasks)),
		MySubmissionsCount:  int64(len(payload.MySubmissions)),
		TopSubmissionsCount: int64(len(payload.TopUsersSubmissions)),
		TopUserNames:        string(topNamesJson),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}

	err = c.Prune(ctx, c.pruneLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}

	bundle, ok, err := c.Get(ctx, cacheKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}
	if !ok {
		err = fmt.Errorf("bundle %q missing right after save", cacheKey)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, err
	}
	return bundle, nil
}

func (c Cache) buildPayload(ctx context.Context, contest string, preferredSelfUser string) (Payload, string, error) {
	subs, err := c.store.ListSubmissions(ctx, contest)
	if err != nil {
		return Payload{}, "", err
	}
	tasks, err := c.store.ListTasks(ctx, contest)
	if err != nil {
		return Payload{}, "", err
	}
	topUsers, err := c.store.ListUsers(ctx, contest)
	if err != nil {
		return Payload{}, "", err
	}

	rankByUser := map[string]string{}
	topUserSet := map[string]bool{}
	for _, u := range topUsers {
		key := records.CanonicalUser(u.Name)
		rankByUser[key] = u.Rank
		topUserSet[key] = true
	}

	var myCandidates []records.Submission
	var topSubs []SubmissionPayload
	for _, sub := range subs {
		if hasSource(sub, records.SourceSelf) {
			myCandidates = append(myCandidates, sub)
		}
		userKey := records.CanonicalUser(sub.User)
		if hasSource(sub, records.SourceTop) && topUserSet[userKey] {
			p := submissionPayload(sub)
			p.Rank = rankByUser[userKey]
			topSubs = append(topSubs, p)
		}
	}

	// prefer the pool that matches the requested identity; without a
	// request, rows saved by the logged-in listing win; the majority
	// vote is the last resort
	pool := myCandidates
	preferredKey := records.CanonicalUser(preferredSelfUser)
	if preferredKey != "" {
		var filtered []records.Submission
		for _, sub := range myCandidates {
			if sub.SelfUserKey != "" && sub.SelfUserKey != records.SelfSentinel {
				if sub.SelfUserKey == preferredKey {
					filtered = append(filtered, sub)
				}
				continue
			}
			if records.CanonicalUser(sub.User) == preferredKey {
				filtered = append(filtered, sub)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	} else {
		var loginPool []records.Submission
		for _, sub := range myCandidates {
			if sub.SelfUserKey == records.SelfSentinel {
				loginPool = append(loginPool, sub)
			}
		}
		if len(loginPool) > 0 {
			pool = loginPool
		}
	}

	resolvedSelfUser := pickSelfUser(pool, preferredSelfUser)
	resolvedKey := records.CanonicalUser(resolvedSelfUser)

	var mySubs []SubmissionPayload
	for _, sub := range pool {
		if resolvedKey != "" && records.CanonicalUser(sub.User) != resolvedKey {
			continue
		}
		mySubs = append(mySubs, submissionPayload(sub))
	}

	payload := Payload{
		Contest:             contest,
		SelfUser:            resolvedSelfUser,
		GeneratedAt:         time.Now().UTC().Format(time.RFC3339),
		Tasks:               tasks,
		TopUsers:            topUsers,
		MySubmissions:       mySubs,
		TopUsersSubmissions: topSubs,
	}

	window, haveWindow, err := c.store.GetContestWindow(ctx, contest)
	if err != nil {
		return Payload{}, "", err
	}
	if haveWindow {
		payload.ContestWindow = &WindowPayload{
			StartAt: time.Unix(window.Start, 0).UTC().Format(time.RFC3339),
			EndAt:   time.Unix(window.End, 0).UTC().Format(time.RFC3339),
		}
		payload.MySubmissions = filterByWindow(payload.MySubmissions, window)
		payload.TopUsersSubmissions = filterByWindow(payload.TopUsersSubmissions, window)
	}

	topUserNames := make([]string, 0, len(topUsers))
	for _, u := range topUsers {
		topUserNames = append(topUserNames, u.Name)
	}
	cacheKey := CacheKey(contest, resolvedSelfUser, topUserNames)

	return payload, cacheKey, nil
}

func hasSource(sub records.Submission, source string) bool {
	for _, s := range sub.Sources {
		if s == source {
			return true
		}
	}
	return false
}

func (c Cache) Get(ctx context.Context, cacheKey string) (Bundle, bool, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	row, err := c.qry.GetExportBundle(ctx, cacheKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Bundle{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, false, err
	}
	bundle, err := c.bundleFromRow(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, false, err
	}
	return bundle, true, nil
}

// Find locates a bundle by contest and self user: the legacy key
// without top users first (a direct hit), then the newest bundle whose
// self identity matches.
func (c Cache) Find(ctx context.Context, contest string, selfUser string) (Bundle, bool, error) {
	ctx, span := tracer.Start(ctx, "Find")
	defer span.End()

	bundle, ok, err := c.Get(ctx, CacheKey(contest, selfUser, nil))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, false, err
	}
	if ok {
		return bundle, true, nil
	}

	userKey := records.CanonicalUser(selfUser)
	if userKey == "" {
		userKey = records.SelfSentinel
	}

	rows, err := c.qry.ListExportBundlesByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Bundle{}, false, err
	}
	for _, row := range rows {
		if row.SelfUserKey != userKey {
			continue
		}
		// rows are ordered newest first
		bundle, err := c.bundleFromRow(ctx, row)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Bundle{}, false, err
		}
		return bundle, true, nil
	}
	return Bundle{}, false, nil
}

func (c Cache) List(ctx context.Context) ([]Metadata, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	rows, err := c.qry.ListExportBundles(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]Metadata, 0, len(rows))
	for _, row := range rows {
		meta := metadataFromRow(row)
		reviews, err := c.qry.ListReviewsByCacheKey(ctx, row.CacheKey)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		meta.ReviewCount = len(reviews)
		out = append(out, meta)
	}
	return out, nil
}

func (c Cache) Delete(ctx context.Context, cacheKey string) error {
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	err := db.InTx(ctx, c.db, func(txqry *db.Queries) error {
		err := txqry.DeleteReviewsByCacheKey(ctx, cacheKey)
		if err != nil {
			return err
		}
		_, err = txqry.DeleteExportBundle(ctx, cacheKey)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

type ReviewFields struct {
	Markdown string
	Prompt   string
	Html     string
	Provider string
	Model    string
}

// AttachReview adds a review artifact to a bundle. A new AI run
// appends; resubmitting the newest artifact's markdown with the same
// provider and model refines it in place instead (the usual case being
// an HTML rendering attached after the fact).
func (c Cache) AttachReview(ctx context.Context, cacheKey string, fields ReviewFields) (string, error) {
	ctx, span := tracer.Start(ctx, "AttachReview")
	defer span.End()

	_, ok, err := c.Get(ctx, cacheKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if !ok {
		err = fmt.Errorf("no bundle for cache key %q", cacheKey)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	rows, err := c.qry.ListReviewsByCacheKey(ctx, cacheKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var latest *db.Review
	for i := range rows {
		if latest == nil || rows[i].SavedAt >= latest.SavedAt {
			latest = &rows[i]
		}
	}

	refine := false
	if latest != nil {
		if fields.Markdown != "" {
			refine = latest.Markdown == fields.Markdown &&
				latest.AiProvider == fields.Provider &&
				latest.AiModel == fields.Model
		} else if fields.Html != "" && latest.Html == "" {
			refine = true
		}
	}

	now := time.Now().Unix()
	if refine {
		markdown := latest.Markdown
		if fields.Markdown != "" {
			markdown = fields.Markdown
		}
		prompt := latest.Prompt
		if fields.Prompt != "" {
			prompt = fields.Prompt
		}
		html := latest.Html
		if fields.Html != "" {
			html = fields.Html
		}
		err = c.qry.UpdateReview(ctx, db.UpdateReviewParams{
			Markdown: markdown,
			Prompt:   prompt,
			Html:     html,
			SavedAt:  now,
			ID:       latest.ID,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		return latest.ID, nil
	}

	id := uuid.NewString()
	err = c.qry.CreateReview(ctx, db.CreateReviewParams{
		ID:         id,
		CacheKey:   cacheKey,
		Markdown:   fields.Markdown,
		Prompt:     fields.Prompt,
		Html:       fields.Html,
		AiProvider: fields.Provider,
		AiModel:    fields.Model,
		SavedAt:    now,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return id, nil
}

func (c Cache) DeleteReview(ctx context.Context, reviewId string) error {
	ctx, span := tracer.Start(ctx, "DeleteReview")
	defer span.End()

	affected, err := c.qry.DeleteReview(ctx, reviewId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", ErrReviewNotFound, reviewId)
	}
	return nil
}

// Prune deletes the oldest bundles (and their reviews) beyond limit.
func (c Cache) Prune(ctx context.Context, limit int) error {
	ctx, span := tracer.Start(ctx, "Prune")
	defer span.End()

	if limit <= 0 {
		limit = DefaultPruneLimit
	}

	keys, err := c.qry.ListExportBundleKeysOldestFirst(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(keys) <= limit {
		return nil
	}
	for _, key := range keys[:len(keys)-limit] {
		err = c.Delete(ctx, key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

func metadataFromRow(row db.ExportBundle) Metadata {
	var topUserNames []string
	if err := json.Unmarshal([]byte(row.TopUserNames), &topUserNames); err != nil {
		slog.Warn("corrupt top user names on stored bundle",
			"cacheKey", row.CacheKey, "error", err)
	}
	return Metadata{
		CacheKey:            row.CacheKey,
		Contest:             row.Contest,
		SelfUser:            row.SelfUser.String,
		SelfUserKey:         row.SelfUserKey,
		SavedAt:             row.SavedAt,
		Size:                row.Size,
		TasksCount:          row.TasksCount,
		MySubmissionsCount:  row.MySubmissionsCount,
		TopSubmissionsCount: row.TopSubmissionsCount,
		TopUserNames:        topUserNames,
	}
}

func (c Cache) bundleFromRow(ctx context.Context, row db.ExportBundle) (Bundle, error) {
	reviewRows, err := c.qry.ListReviewsByCacheKey(ctx, row.CacheKey)
	if err != nil {
		return Bundle{}, err
	}
	reviews := make([]Review, len(reviewRows))
	for i, r := range reviewRows {
		reviews[i] = Review{
			ID:       r.ID,
			CacheKey: r.CacheKey,
			Markdown: r.Markdown,
			Prompt:   r.Prompt,
			Html:     r.Html,
			Provider: r.AiProvider,
			Model:    r.AiModel,
			SavedAt:  r.SavedAt,
		}
	}
	meta := metadataFromRow(row)
	meta.ReviewCount = len(reviews)
	return Bundle{
		Metadata: meta,
		Json:     row.Json,
		Reviews:  reviews,
	}, nil
}
