package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSupervisorSingleRunPerContest(t *testing.T) {
	sup := NewSupervisor()

	_, handle, err := sup.Begin(context.Background(), "abc300")
	require.NoError(t, err)

	_, _, err = sup.Begin(context.Background(), "abc300")
	require.ErrorIs(t, err, ErrAlreadyRunning)

	active, ok := sup.Active()
	require.True(t, ok)
	require.Equal(t, "abc300", active)

	sup.Finish(handle)
	_, ok = sup.Active()
	require.False(t, ok)

	_, handle, err = sup.Begin(context.Background(), "abc300")
	require.NoError(t, err)
	sup.Finish(handle)
}

func TestSupervisorSupersession(t *testing.T) {
	sup := NewSupervisor()

	firstCtx, firstHandle, err := sup.Begin(context.Background(), "abc300")
	require.NoError(t, err)

	// the superseded run winds down once its context is cancelled
	go func() {
		<-firstCtx.Done()
		sup.Finish(firstHandle)
	}()

	secondCtx, secondHandle, err := sup.Begin(context.Background(), "abc301")
	require.NoError(t, err)
	defer sup.Finish(secondHandle)

	require.ErrorIs(t, firstCtx.Err(), context.Canceled)
	require.NoError(t, secondCtx.Err())

	active, ok := sup.Active()
	require.True(t, ok)
	require.Equal(t, "abc301", active)
}

func TestSupervisorCancel(t *testing.T) {
	sup := NewSupervisor()

	require.False(t, sup.Cancel(""))

	runCtx, handle, err := sup.Begin(context.Background(), "abc300")
	require.NoError(t, err)

	// a mismatched filter still aborts the run but reports no match
	require.False(t, sup.Cancel("abc999"))
	require.ErrorIs(t, runCtx.Err(), context.Canceled)
	sup.Finish(handle)

	runCtx, handle, err = sup.Begin(context.Background(), "abc300")
	require.NoError(t, err)
	require.True(t, sup.Cancel("abc300"))
	require.ErrorIs(t, runCtx.Err(), context.Canceled)
	sup.Finish(handle)
}

func TestSupervisorLaunch(t *testing.T) {
	sup := NewSupervisor()

	started := make(chan struct{})
	release := make(chan struct{})
	err := sup.Launch(context.Background(), "abc300", func(ctx context.Context) {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	err = sup.Launch(context.Background(), "abc300", func(ctx context.Context) {})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := sup.Active()
		return !ok
	}, time.Second, time.Millisecond)
}
