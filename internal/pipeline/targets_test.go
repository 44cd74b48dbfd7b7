package pipeline

import (
	"testing"

	"sessionscout-backend/internal/records"

	"github.com/stretchr/testify/require"
)

func board(names ...string) []records.User {
	users := make([]records.User, 0, len(names))
	for i, name := range names {
		users = append(users, records.User{Name: name, Rank: itoa(i + 1)})
	}
	return users
}

func itoa(n int) string {
	return string(rune('0' + n))
}

func names(users []records.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}

func TestResolveTargetsAbsolute(t *testing.T) {
	standings := board("alice", "bob", "carol", "dave", "erin")

	{
		selected, err := ResolveTargets(TargetConfig{Mode: TargetAbsolute, K: 1, N: 3}, standings, -1)
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "bob", "carol"}, names(selected))
	}
	{
		// users at or below the runner's own rank are excluded
		selected, err := ResolveTargets(TargetConfig{Mode: TargetAbsolute, K: 2, N: 3}, standings, 2)
		require.NoError(t, err)
		require.Equal(t, []string{"bob"}, names(selected))
	}
	{
		// range entirely at or below own rank
		_, err := ResolveTargets(TargetConfig{Mode: TargetAbsolute, K: 1, N: 2}, standings, 0)
		var empty *EmptyResultError
		require.ErrorAs(t, err, &empty)
	}
	{
		// range beyond the end of the board
		_, err := ResolveTargets(TargetConfig{Mode: TargetAbsolute, K: 10, N: 3}, standings, -1)
		var empty *EmptyResultError
		require.ErrorAs(t, err, &empty)
	}
}

func TestResolveTargetsRelative(t *testing.T) {
	standings := board("alice", "bob", "carol", "dave", "erin")

	{
		// self at rank 4, two places up, up to 2 users
		selected, err := ResolveTargets(TargetConfig{Mode: TargetRelative, K: 2, N: 2}, standings, 3)
		require.NoError(t, err)
		require.Equal(t, []string{"bob", "carol"}, names(selected))
	}
	{
		// distance larger than own rank clamps to the top of the board
		selected, err := ResolveTargets(TargetConfig{Mode: TargetRelative, K: 100, N: 2}, standings, 2)
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "bob"}, names(selected))
	}
	{
		// the window never reaches at or past the runner's own row
		selected, err := ResolveTargets(TargetConfig{Mode: TargetRelative, K: 100, N: 100}, standings, 2)
		require.NoError(t, err)
		require.Equal(t, []string{"alice", "bob"}, names(selected))
	}
	{
		_, err := ResolveTargets(TargetConfig{Mode: TargetRelative, K: 1, N: 3}, standings, -1)
		var empty *EmptyResultError
		require.ErrorAs(t, err, &empty)
	}
	{
		// rank 1 has nobody above
		_, err := ResolveTargets(TargetConfig{Mode: TargetRelative, K: 1, N: 3}, standings, 0)
		var empty *EmptyResultError
		require.ErrorAs(t, err, &empty)
	}
}

func TestResolveTargetsManual(t *testing.T) {
	standings := board("alice", "bob", "carol")

	{
		selected, err := ResolveTargets(TargetConfig{
			Mode:  TargetManual,
			Users: []string{"Bob", "mallory", "bob"},
		}, standings, -1)
		require.NoError(t, err)
		require.Len(t, selected, 2)
		// known handle picks up the scoreboard casing and rank
		require.Equal(t, "bob", selected[0].Name)
		require.NotEmpty(t, selected[0].Rank)
		// unknown handle is kept verbatim without a rank
		require.Equal(t, "mallory", selected[1].Name)
		require.Empty(t, selected[1].Rank)
	}
	{
		selected, err := ResolveTargets(TargetConfig{
			Mode:  TargetManual,
			Users: []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"},
		}, nil, -1)
		require.NoError(t, err)
		require.Len(t, selected, MaxManualTargets)
	}
	{
		_, err := ResolveTargets(TargetConfig{Mode: TargetManual}, standings, -1)
		var empty *EmptyResultError
		require.ErrorAs(t, err, &empty)
	}
}

func TestDefaultTargets(t *testing.T) {
	cfg := DefaultTargets(0)
	require.Equal(t, TargetAbsolute, cfg.Mode)
	require.Equal(t, 1, cfg.K)
	require.Equal(t, 3, cfg.N)

	cfg = TargetConfig{Mode: TargetRelative}.withDefaults()
	require.Equal(t, 1000, cfg.K)
	require.Equal(t, 3, cfg.N)
}
