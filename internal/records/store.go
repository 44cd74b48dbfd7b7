// Package records persists scraped contest data. Rows are keyed by
// (contest, id) and survive across runs so that a later run only has to
// fetch what is missing.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"sessionscout-backend/internal/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/records")

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

func encodeSources(sources []string) string {
	if len(sources) == 0 {
		return "[]"
	}
	sorted := make([]string, len(sources))
	copy(sorted, sources)
	sort.Strings(sorted)
	out, err := json.Marshal(sorted)
	if err != nil {
		return "[]"
	}
	return string(out)
}

func decodeSources(raw string) []string {
	var sources []string
	err := json.Unmarshal([]byte(raw), &sources)
	if err != nil {
		return nil
	}
	return sources
}

func unionSources(existing []string, added []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range existing {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range added {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// UpsertSubmissions merges rows into the store. New ids are inserted,
// existing ids are updated in place with their source sets unioned.
// Non-empty fields win over what is stored; an already fetched code
// body is never clobbered by an empty one.
func (s Store) UpsertSubmissions(ctx context.Context, contest string, subs []Submission, source string) (UpsertStats, error) {
	ctx, span := tracer.Start(ctx, "UpsertSubmissions")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest", contest),
		attribute.Int("rows", len(subs)),
	)

	var stats UpsertStats
	now := time.Now().Unix()

	err := db.InTx(ctx, s.db, func(txqry *db.Queries) error {
		for _, sub := range subs {
			sources := sub.Sources
			if source != "" {
				sources = unionSources(sources, []string{source})
			}

			existing, err := txqry.GetSubmission(ctx, db.GetSubmissionParams{
				Contest:      contest,
				SubmissionID: sub.ID,
			})
			if errors.Is(err, sql.ErrNoRows) {
				err = txqry.CreateSubmission(ctx, db.CreateSubmissionParams{
					Contest:       contest,
					SubmissionID:  sub.ID,
					User:          sub.User,
					Task:          sub.Task,
					Result:        sub.Result,
					Score:         sub.Score,
					Language:      sub.Language,
					ExecutionTime: sub.ExecutionTime,
					Memory:        sub.Memory,
					SubmittedAt:   sub.SubmittedAt,
					Code:          sub.Code,
					SelfUserKey:   sub.SelfUserKey,
					Sources:       encodeSources(sources),
					CreatedAt:     now,
					UpdatedAt:     now,
				})
				if err != nil {
					return err
				}
				stats.Added++
				continue
			}
			if err != nil {
				return err
			}

			merged := mergeSubmission(existing, sub, sources)
			err = txqry.UpdateSubmission(ctx, merged)
			if err != nil {
				return err
			}
			stats.Updated++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UpsertStats{}, err
	}
	return stats, nil
}

func mergeSubmission(existing db.Submission, incoming Submission, sources []string) db.UpdateSubmissionParams {
	merged := db.UpdateSubmissionParams{
		User:          pickNonEmpty(incoming.User, existing.User),
		Task:          pickNonEmpty(incoming.Task, existing.Task),
		Result:        pickNonEmpty(incoming.Result, existing.Result),
		Score:         pickNonEmpty(incoming.Score, existing.Score),
		Language:      pickNonEmpty(incoming.Language, existing.Language),
		ExecutionTime: pickNonEmpty(incoming.ExecutionTime, existing.ExecutionTime),
		Memory:        pickNonEmpty(incoming.Memory, existing.Memory),
		SubmittedAt:   pickNonEmpty(incoming.SubmittedAt, existing.SubmittedAt),
		Code:          pickNonEmpty(incoming.Code, existing.Code),
		SelfUserKey:   pickNonEmpty(incoming.SelfUserKey, existing.SelfUserKey),
		Sources:       encodeSources(unionSources(decodeSources(existing.Sources), sources)),
		UpdatedAt:     time.Now().Unix(),
		Contest:       existing.Contest,
		SubmissionID:  existing.SubmissionID,
	}
	return merged
}

func pickNonEmpty(incoming, existing string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

// UpsertTasks merges task metadata. A stored statement text is kept
// when the incoming row does not carry one.
func (s Store) UpsertTasks(ctx context.Context, contest string, tasks []Task) (UpsertStats, error) {
	ctx, span := tracer.Start(ctx, "UpsertTasks")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest", contest),
		attribute.Int("rows", len(tasks)),
	)

	var stats UpsertStats
	now := time.Now().Unix()

	err := db.InTx(ctx, s.db, func(txqry *db.Queries) error {
		for _, task := range tasks {
			existing, err := txqry.GetTask(ctx, db.GetTaskParams{
				Contest: contest,
				TaskID:  task.ID,
			})
			if errors.Is(err, sql.ErrNoRows) {
				err = txqry.CreateTask(ctx, db.CreateTaskParams{
					Contest:       contest,
					TaskID:        task.ID,
					Title:         task.Title,
					Url:           task.URL,
					StatementText: task.StatementText,
					TimeLimit:     nullStr(task.TimeLimit),
					MemoryLimit:   nullStr(task.MemoryLimit),
					CreatedAt:     now,
					UpdatedAt:     now,
				})
				if err != nil {
					return err
				}
				stats.Added++
				continue
			}
			if err != nil {
				return err
			}

			err = txqry.UpdateTask(ctx, db.UpdateTaskParams{
				Title:         pickNonEmpty(task.Title, existing.Title),
				Url:           pickNonEmpty(task.URL, existing.Url),
				StatementText: pickNonEmpty(task.StatementText, existing.StatementText),
				TimeLimit:     nullStr(pickNonEmpty(task.TimeLimit, existing.TimeLimit.String)),
				MemoryLimit:   nullStr(pickNonEmpty(task.MemoryLimit, existing.MemoryLimit.String)),
				UpdatedAt:     now,
				Contest:       contest,
				TaskID:        task.ID,
			})
			if err != nil {
				return err
			}
			stats.Updated++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UpsertStats{}, err
	}
	return stats, nil
}

// ReplaceUsers swaps out the stored standings for the contest. The
// standings page is always fetched whole so a partial merge would only
// preserve stale ranks.
func (s Store) ReplaceUsers(ctx context.Context, contest string, users []User) error {
	ctx, span := tracer.Start(ctx, "ReplaceUsers")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest", contest),
		attribute.Int("rows", len(users)),
	)

	now := time.Now().Unix()
	err := db.InTx(ctx, s.db, func(txqry *db.Queries) error {
		err := txqry.DeleteUsersByContest(ctx, contest)
		if err != nil {
			return err
		}

		for _, user := range users {
			err = txqry.CreateUser(ctx, db.CreateUserParams{
				Contest:   contest,
				User:      user.Name,
				Rank:      nullStr(user.Rank),
				UpdatedAt: now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Store) ListSubmissions(ctx context.Context, contest string) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "ListSubmissions")
	defer span.End()

	rows, err := s.qry.ListSubmissionsByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	subs := make([]Submission, len(rows))
	for i, r := range rows {
		subs[i] = Submission{
			ID:            r.SubmissionID,
			User:          r.User,
			Task:          r.Task,
			Result:        r.Result,
			Score:         r.Score,
			Language:      r.Language,
			ExecutionTime: r.ExecutionTime,
			Memory:        r.Memory,
			SubmittedAt:   r.SubmittedAt,
			Code:          r.Code,
			SelfUserKey:   r.SelfUserKey,
			Sources:       decodeSources(r.Sources),
		}
	}
	return subs, nil
}

func (s Store) ListTasks(ctx context.Context, contest string) ([]Task, error) {
	ctx, span := tracer.Start(ctx, "ListTasks")
	defer span.End()

	rows, err := s.qry.ListTasksByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tasks := make([]Task, len(rows))
	for i, r := range rows {
		tasks[i] = Task{
			ID:            r.TaskID,
			Title:         r.Title,
			URL:           r.Url,
			StatementText: r.StatementText,
			TimeLimit:     r.TimeLimit.String,
			MemoryLimit:   r.MemoryLimit.String,
		}
	}
	return tasks, nil
}

func (s Store) ListUsers(ctx context.Context, contest string) ([]User, error) {
	ctx, span := tracer.Start(ctx, "ListUsers")
	defer span.End()

	rows, err := s.qry.ListUsersByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	users := make([]User, len(rows))
	for i, r := range rows {
		users[i] = User{Name: r.User, Rank: r.Rank.String}
	}
	return users, nil
}

func (s Store) CountRecords(ctx context.Context, contest string) (Counts, error) {
	ctx, span := tracer.Start(ctx, "CountRecords")
	defer span.End()

	var counts Counts
	var err error

	counts.Submissions, err = s.qry.CountSubmissionsByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Counts{}, err
	}
	counts.Tasks, err = s.qry.CountTasksByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Counts{}, err
	}
	counts.Users, err = s.qry.CountUsersByContest(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Counts{}, err
	}
	return counts, nil
}

// SetContestWindow records the contest time window. The first write
// wins; later attempts are ignored so that a window observed while the
// contest page was still fresh is never overwritten. It reports whether
// the window was stored.
func (s Store) SetContestWindow(ctx context.Context, contest string, window Window) (bool, error) {
	ctx, span := tracer.Start(ctx, "SetContestWindow")
	defer span.End()

	affected, err := s.qry.CreateContestWindow(ctx, db.CreateContestWindowParams{
		Contest:   contest,
		StartAt:   window.Start,
		EndAt:     window.End,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return affected > 0, nil
}

func (s Store) GetContestWindow(ctx context.Context, contest string) (Window, bool, error) {
	ctx, span := tracer.Start(ctx, "GetContestWindow")
	defer span.End()

	row, err := s.qry.GetContestWindow(ctx, contest)
	if errors.Is(err, sql.ErrNoRows) {
		return Window{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Window{}, false, err
	}
	return Window{Start: row.StartAt, End: row.EndAt}, true, nil
}

// MarkChecked remembers that a user's submission listing has been
// walked to exhaustion for this contest.
func (s Store) MarkChecked(ctx context.Context, contest string, user string) error {
	ctx, span := tracer.Start(ctx, "MarkChecked")
	defer span.End()

	err := s.qry.UpsertCheckedUser(ctx, db.UpsertCheckedUserParams{
		Contest:   contest,
		UserKey:   CanonicalUser(user),
		CheckedAt: time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Store) WasChecked(ctx context.Context, contest string, user string) (bool, error) {
	ctx, span := tracer.Start(ctx, "WasChecked")
	defer span.End()

	_, err := s.qry.GetCheckedUser(ctx, db.GetCheckedUserParams{
		Contest: contest,
		UserKey: CanonicalUser(user),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return true, nil
}

// ClearContest drops everything stored for the contest, cached export
// bundles and their reviews included.
func (s Store) ClearContest(ctx context.Context, contest string) error {
	ctx, span := tracer.Start(ctx, "ClearContest")
	defer span.End()

	span.SetAttributes(attribute.String("contest", contest))

	err := db.InTx(ctx, s.db, func(txqry *db.Queries) error {
		steps := []func(context.Context, string) error{
			txqry.DeleteReviewsByContest,
			txqry.DeleteExportBundlesByContest,
			txqry.DeleteSubmissionsByContest,
			txqry.DeleteTasksByContest,
			txqry.DeleteUsersByContest,
			txqry.DeleteContestWindow,
			txqry.DeleteCheckedUsersByContest,
			txqry.DeleteProgressState,
		}
		for _, step := range steps {
			if err := step(ctx, contest); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Store) SetProgress(ctx context.Context, state ProgressState) error {
	ctx, span := tracer.Start(ctx, "SetProgress")
	defer span.End()

	err := s.qry.UpsertProgressState(ctx, db.UpsertProgressStateParams{
		Contest:   state.Contest,
		Text:      state.Text,
		IsError:   boolToInt(state.IsError),
		Done:      boolToInt(state.Done),
		Running:   boolToInt(state.Running),
		Progress:  state.Progress,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Store) GetProgress(ctx context.Context, contest string) (ProgressState, bool, error) {
	ctx, span := tracer.Start(ctx, "GetProgress")
	defer span.End()

	row, err := s.qry.GetProgressState(ctx, contest)
	if errors.Is(err, sql.ErrNoRows) {
		return ProgressState{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ProgressState{}, false, err
	}
	return ProgressState{
		Contest:  row.Contest,
		Text:     row.Text,
		IsError:  row.IsError != 0,
		Done:     row.Done != 0,
		Running:  row.Running != 0,
		Progress: row.Progress,
	}, true, nil
}

func (s Store) ClearProgress(ctx context.Context, contest string) error {
	ctx, span := tracer.Start(ctx, "ClearProgress")
	defer span.End()

	err := s.qry.DeleteProgressState(ctx, contest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
