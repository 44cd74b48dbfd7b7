package records

import (
	"context"
	"testing"
	"time"

	"sessionscout-backend/internal/db"
	"sessionscout-backend/lib/testutil"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestSubmissionUpsert(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		stats, err := store.UpsertSubmissions(ctx, "abc300", []Submission{
			{
				ID:          111,
				User:        "tourist",
				Task:        "abc300_a",
				Result:      "AC",
				SubmittedAt: "2023-04-29 21:05:12+0900",
			},
			{
				ID:     112,
				User:   "tourist",
				Task:   "abc300_b",
				Result: "WA",
			},
		}, "submissions:page1")
		require.NoError(t, err)
		require.Equal(t, 2, stats.Added)
		require.Equal(t, 0, stats.Updated)
	}
	{
		// same id from a second source: union, not duplicate
		stats, err := store.UpsertSubmissions(ctx, "abc300", []Submission{
			{
				ID:     111,
				User:   "tourist",
				Task:   "abc300_a",
				Result: "AC",
				Code:   "print(1)",
			},
		}, "detail:111")
		require.NoError(t, err)
		require.Equal(t, 0, stats.Added)
		require.Equal(t, 1, stats.Updated)

		subs, err := store.ListSubmissions(ctx, "abc300")
		require.NoError(t, err)
		require.Len(t, subs, 2)
		require.Equal(t, int64(111), subs[0].ID)
		require.Equal(t, "print(1)", subs[0].Code)
		require.Equal(t, []string{"detail:111", "submissions:page1"}, subs[0].Sources)
	}
	{
		// an empty code body must not clobber the fetched one
		_, err := store.UpsertSubmissions(ctx, "abc300", []Submission{
			{ID: 111, User: "tourist", Task: "abc300_a", Result: "AC"},
		}, "submissions:page1")
		require.NoError(t, err)

		subs, err := store.ListSubmissions(ctx, "abc300")
		require.NoError(t, err)
		require.Equal(t, "print(1)", subs[0].Code)
		require.Equal(t, []string{"detail:111", "submissions:page1"}, subs[0].Sources)
	}
	{
		// contests do not leak into one another
		subs, err := store.ListSubmissions(ctx, "abc301")
		require.NoError(t, err)
		require.Len(t, subs, 0)
	}
}

func TestTaskUpsert(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	stats, err := store.UpsertTasks(ctx, "abc300", []Task{
		{ID: "abc300_a", Title: "A - N-choice question", StatementText: "Given..."},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Added)

	stats, err = store.UpsertTasks(ctx, "abc300", []Task{
		{ID: "abc300_a", Title: "A - N-choice question", TimeLimit: "2 sec"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Updated)

	tasks, err := store.ListTasks(ctx, "abc300")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Given...", tasks[0].StatementText)
	require.Equal(t, "2 sec", tasks[0].TimeLimit)
}

func TestReplaceUsers(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := store.ReplaceUsers(ctx, "abc300", []User{
		{Name: "tourist", Rank: "1"},
		{Name: "snuke", Rank: "2"},
	})
	require.NoError(t, err)

	err = store.ReplaceUsers(ctx, "abc300", []User{
		{Name: "snuke", Rank: "1"},
	})
	require.NoError(t, err)

	users, err := store.ListUsers(ctx, "abc300")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "snuke", users[0].Name)
	require.Equal(t, "1", users[0].Rank)
}

func TestContestWindowFirstWins(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	stored, err := store.SetContestWindow(ctx, "abc300", Window{Start: 100, End: 200})
	require.NoError(t, err)
	require.True(t, stored)

	stored, err = store.SetContestWindow(ctx, "abc300", Window{Start: 999, End: 1000})
	require.NoError(t, err)
	require.False(t, stored)

	window, ok, err := store.GetContestWindow(ctx, "abc300")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Window{Start: 100, End: 200}, window)

	_, ok, err = store.GetContestWindow(ctx, "abc999")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckedUsers(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	checked, err := store.WasChecked(ctx, "abc300", "Tourist")
	require.NoError(t, err)
	require.False(t, checked)

	err = store.MarkChecked(ctx, "abc300", "tourist")
	require.NoError(t, err)

	// handle comparison is case-insensitive
	checked, err = store.WasChecked(ctx, "abc300", "Tourist")
	require.NoError(t, err)
	require.True(t, checked)
}

func TestClearContest(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.UpsertSubmissions(ctx, "abc300", []Submission{
		{ID: 1, User: "tourist", Task: "abc300_a", Result: "AC"},
	}, "submissions:page1")
	require.NoError(t, err)
	_, err = store.UpsertTasks(ctx, "abc300", []Task{{ID: "abc300_a"}})
	require.NoError(t, err)
	err = store.ReplaceUsers(ctx, "abc300", []User{{Name: "tourist", Rank: "1"}})
	require.NoError(t, err)
	err = store.MarkChecked(ctx, "abc300", "tourist")
	require.NoError(t, err)
	_, err = store.SetContestWindow(ctx, "abc300", Window{Start: 1, End: 2})
	require.NoError(t, err)

	_, err = store.UpsertSubmissions(ctx, "abc301", []Submission{
		{ID: 9, User: "snuke", Task: "abc301_a", Result: "AC"},
	}, "submissions:page1")
	require.NoError(t, err)

	err = store.ClearContest(ctx, "abc300")
	require.NoError(t, err)

	counts, err := store.CountRecords(ctx, "abc300")
	require.NoError(t, err)
	require.Equal(t, Counts{}, counts)

	checked, err := store.WasChecked(ctx, "abc300", "tourist")
	require.NoError(t, err)
	require.False(t, checked)

	// other contests are untouched
	counts, err = store.CountRecords(ctx, "abc301")
	require.NoError(t, err)
	require.Equal(t, int64(1), counts.Submissions)
}

func TestProgressState(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/records",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, ok, err := store.GetProgress(ctx, "abc300")
	require.NoError(t, err)
	require.False(t, ok)

	err = store.SetProgress(ctx, ProgressState{
		Contest:  "abc300",
		Text:     "Fetching submission pages...",
		Running:  true,
		Progress: 20,
	})
	require.NoError(t, err)

	state, ok, err := store.GetProgress(ctx, "abc300")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, state.Running)
	require.Equal(t, float64(20), state.Progress)

	err = store.ClearProgress(ctx, "abc300")
	require.NoError(t, err)
	_, ok, err = store.GetProgress(ctx, "abc300")
	require.NoError(t, err)
	require.False(t, ok)
}
