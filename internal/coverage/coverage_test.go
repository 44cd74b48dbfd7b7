package coverage

import (
	"context"
	"testing"
	"time"

	"sessionscout-backend/internal/db"
	"sessionscout-backend/internal/records"
	"sessionscout-backend/lib/testutil"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestAssess(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/coverage",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := records.NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		// empty store: nothing cached
		out, err := Assess(ctx, store, "abc300", "tourist", []string{"snuke"})
		require.NoError(t, err)
		require.False(t, out.HasCachedTasks)
		require.False(t, out.HasCachedMySubmissions)
		require.False(t, out.HasCachedTopUsers)
		require.Equal(t, []string{"snuke"}, out.MissingUsers)
	}

	_, err := store.UpsertTasks(ctx, "abc300", []records.Task{{ID: "abc300_a"}})
	require.NoError(t, err)
	_, err = store.UpsertSubmissions(ctx, "abc300", []records.Submission{
		{ID: 1, User: "tourist", Task: "abc300_a", Result: "AC"},
	}, records.SourceSelf)
	require.NoError(t, err)
	_, err = store.UpsertSubmissions(ctx, "abc300", []records.Submission{
		{ID: 2, User: "snuke", Task: "abc300_a", Result: "AC"},
	}, records.SourceTop)
	require.NoError(t, err)
	err = store.ReplaceUsers(ctx, "abc300", []records.User{
		{Name: "snuke", Rank: "1"},
		{Name: "chokudai", Rank: "2"},
	})
	require.NoError(t, err)

	{
		out, err := Assess(ctx, store, "abc300", "tourist", []string{"Snuke", "chokudai"})
		require.NoError(t, err)
		require.True(t, out.HasCachedTasks)
		require.True(t, out.HasCachedMySubmissions)
		require.False(t, out.HasCachedTopUsers)
		require.Equal(t, []string{"chokudai"}, out.MissingUsers)
		require.Equal(t, int64(1), out.MySubmissionsCount)
		require.Equal(t, int64(1), out.TopSubmissionsCount)
	}
	{
		// a checked marker covers a user with zero submissions
		err := store.MarkChecked(ctx, "abc300", "chokudai")
		require.NoError(t, err)

		out, err := Assess(ctx, store, "abc300", "tourist", []string{"snuke", "chokudai"})
		require.NoError(t, err)
		require.True(t, out.HasCachedTopUsers)
		require.Empty(t, out.MissingUsers)
	}
	{
		// a different self user has no cached submissions
		out, err := Assess(ctx, store, "abc300", "petr", nil)
		require.NoError(t, err)
		require.False(t, out.HasCachedMySubmissions)
		// coarse fallback without target users
		require.True(t, out.HasCachedTopUsers)
	}
}
