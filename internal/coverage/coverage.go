// Package coverage decides which parts of a collection run can be
// served from the record store instead of hitting the site again.
package coverage

import (
	"context"

	"sessionscout-backend/internal/records"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/coverage")

type Assessment struct {
	HasCachedTasks         bool
	HasCachedMySubmissions bool
	HasCachedTopUsers      bool
	// MissingUsers are target users with no stored submissions and no
	// checked marker. They are the only ones a run has to fetch.
	MissingUsers        []string
	TasksCount          int64
	TopUsersCount       int64
	MySubmissionsCount  int64
	TopSubmissionsCount int64
}

func hasSource(sub records.Submission, source string) bool {
	for _, s := range sub.Sources {
		if s == source {
			return true
		}
	}
	return false
}

func isSelfSubmission(sub records.Submission, selfKey string) bool {
	if !hasSource(sub, records.SourceSelf) {
		return false
	}
	if selfKey == "" {
		return true
	}
	return records.CanonicalUser(sub.User) == selfKey ||
		sub.SelfUserKey == selfKey
}

// Assess classifies the contest's cached state for a prospective run.
// With targetUsers supplied, a user counts as covered either by having
// stored submissions or by a checked marker, so users who genuinely
// submitted nothing are not re-fetched forever. Without targetUsers it
// falls back to a coarse "anything at all cached" check.
func Assess(ctx context.Context, store records.Store, contest string, selfUser string, targetUsers []string) (Assessment, error) {
	ctx, span := tracer.Start(ctx, "Assess")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest", contest),
		attribute.Int("target_users", len(targetUsers)),
	)

	var out Assessment

	counts, err := store.CountRecords(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, err
	}
	out.TasksCount = counts.Tasks
	out.TopUsersCount = counts.Users
	out.HasCachedTasks = counts.Tasks > 0

	subs, err := store.ListSubmissions(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, err
	}

	selfKey := records.CanonicalUser(selfUser)
	topByUser := map[string]int64{}
	for _, sub := range subs {
		if isSelfSubmission(sub, selfKey) {
			out.MySubmissionsCount++
		}
		if hasSource(sub, records.SourceTop) {
			topByUser[records.CanonicalUser(sub.User)]++
		}
	}
	out.HasCachedMySubmissions = out.MySubmissionsCount > 0

	if len(targetUsers) == 0 {
		for _, n := range topByUser {
			out.TopSubmissionsCount += n
		}
		out.HasCachedTopUsers = out.TopSubmissionsCount > 0 && counts.Users > 0
		return out, nil
	}

	seen := map[string]bool{}
	for _, user := range targetUsers {
		key := records.CanonicalUser(user)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out.TopSubmissionsCount += topByUser[key]
		if topByUser[key] > 0 {
			continue
		}
		checked, err := store.WasChecked(ctx, contest, key)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Assessment{}, err
		}
		if !checked {
			out.MissingUsers = append(out.MissingUsers, user)
		}
	}
	out.HasCachedTopUsers = len(out.MissingUsers) == 0

	return out, nil
}
