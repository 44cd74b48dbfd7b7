package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"sessionscout-backend/internal/db"
	"sessionscout-backend/internal/exportcache"
	"sessionscout-backend/internal/pipeline"
	"sessionscout-backend/internal/records"
	"sessionscout-backend/internal/scraper/atcoder"
	"sessionscout-backend/internal/telemetry"
	"sessionscout-backend/lib/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeSite struct {
	politeness time.Duration
}

func (f fakeSite) window() *atcoder.Window {
	loc := time.FixedZone("JST", 9*60*60)
	return &atcoder.Window{
		Start: time.Date(2023, 4, 29, 21, 0, 0, 0, loc),
		End:   time.Date(2023, 4, 29, 22, 40, 0, 0, loc),
	}
}

func (f fakeSite) MySubmissionsPage(ctx context.Context, contest string, page int) (atcoder.ListingPage, error) {
	if page > 1 {
		return atcoder.ListingPage{}, nil
	}
	return atcoder.ListingPage{IDs: []int64{101}, LoginUser: "dave", Window: f.window()}, nil
}

func (f fakeSite) UserSubmissionsPage(ctx context.Context, contest string, user string, page int) (atcoder.ListingPage, error) {
	if page > 1 {
		return atcoder.ListingPage{}, nil
	}
	switch records.CanonicalUser(user) {
	case "alice":
		return atcoder.ListingPage{IDs: []int64{201}}, nil
	case "bob":
		return atcoder.ListingPage{IDs: []int64{202}}, nil
	}
	return atcoder.ListingPage{}, nil
}

func (f fakeSite) SubmissionDetail(ctx context.Context, contest string, id int64) (atcoder.SubmissionDetail, error) {
	users := map[int64]string{101: "dave", 201: "alice", 202: "bob"}
	user, ok := users[id]
	if !ok {
		return atcoder.SubmissionDetail{}, fmt.Errorf("no detail for submission %d", id)
	}
	return atcoder.SubmissionDetail{
		ID:          id,
		User:        user,
		Task:        "abc300_a",
		Result:      "AC",
		SubmittedAt: "2023-04-29 21:05:12+0900",
		Code:        "int main() {}",
	}, nil
}

func (f fakeSite) TaskList(ctx context.Context, contest string) ([]atcoder.TaskRow, error) {
	return []atcoder.TaskRow{
		{ID: "abc300_a", Title: "A - First", URL: "/contests/abc300/tasks/abc300_a"},
	}, nil
}

func (f fakeSite) TaskDetail(ctx context.Context, contest string, taskId string) (atcoder.TaskDetail, error) {
	return atcoder.TaskDetail{Title: "A - First", StatementText: "print the answer"}, nil
}

func (f fakeSite) Standings(ctx context.Context, contest string) ([]atcoder.StandingsRow, error) {
	return []atcoder.StandingsRow{
		{User: "alice", Rank: "1"},
		{User: "bob", Rank: "2"},
		{User: "dave", Rank: "3"},
	}, nil
}

func (f fakeSite) LoginUser(ctx context.Context, contest string) (string, error) {
	return "dave", nil
}

type testEnv struct {
	server *httptest.Server
	store  records.Store
	cache  exportcache.Cache
}

func setupAPI(t *testing.T, politeDelay time.Duration) (testEnv, func()) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/api",
		DbSchema: db.Schema,
	})

	store := records.NewStore(setup.DB)
	cache := exportcache.NewCache(setup.DB)
	p := pipeline.New(pipeline.Options{
		Client:      fakeSite{},
		Store:       store,
		Cache:       cache,
		PoliteDelay: politeDelay,
	}, telemetry.SlogAPI{})

	service := NewService(
		context.Background(),
		p,
		pipeline.NewSupervisor(),
		store,
		cache,
		telemetry.SlogAPI{},
	)
	router := chi.NewRouter()
	service.RegisterRoutes(router)
	server := httptest.NewServer(router)

	return testEnv{server: server, store: store, cache: cache}, func() {
		server.Close()
		cleanup()
	}
}

func postJSON(t *testing.T, url string, body any, out any) int {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func doDelete(t *testing.T, url string, out any) int {
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestRunLifecycle(t *testing.T) {
	env, cleanup := setupAPI(t, time.Millisecond)
	defer cleanup()

	{
		var body OkResponse
		status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{
			Contest: "abc300",
			Targets: &TargetConfigBody{Mode: "absolute", K: 1, N: 2},
		}, &body)
		require.Equal(t, http.StatusAccepted, status)
		require.True(t, body.Ok)
	}

	require.Eventually(t, func() bool {
		var progress ProgressResponse
		status := getJSON(t, env.server.URL+"/api/v1/contests/abc300/progress", &progress)
		return status == http.StatusOK && progress.Done && !progress.IsError
	}, time.Second*10, time.Millisecond*20)

	{
		var list ListBundlesResponse
		status := getJSON(t, env.server.URL+"/api/v1/bundles", &list)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, list.Bundles, 1)
		require.Equal(t, "abc300", list.Bundles[0].Contest)
		require.Equal(t, []string{"alice", "bob"}, list.Bundles[0].TopUserNames)
	}
	{
		var bundle BundleResponse
		status := getJSON(t, env.server.URL+"/api/v1/bundles/lookup?contest=abc300&selfUser=dave", &bundle)
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, bundle.Json)
		require.Equal(t, int64(1), bundle.Bundle.MySubmissionsCount)
	}
	{
		var cov CoverageResponse
		status := getJSON(t, env.server.URL+"/api/v1/contests/abc300/coverage?targetUsers=alice,bob", &cov)
		require.Equal(t, http.StatusOK, status)
		require.True(t, cov.HasCachedTasks)
		require.True(t, cov.HasCachedMySubmissions)
		require.True(t, cov.HasCachedTopUsers)
		require.Empty(t, cov.MissingUsers)
	}
	{
		status := doDelete(t, env.server.URL+"/api/v1/contests/abc300", nil)
		require.Equal(t, http.StatusOK, status)

		var cov CoverageResponse
		getJSON(t, env.server.URL+"/api/v1/contests/abc300/coverage", &cov)
		require.False(t, cov.HasCachedTasks)
		require.False(t, cov.HasCachedMySubmissions)
	}
}

func TestStartRunValidation(t *testing.T) {
	env, cleanup := setupAPI(t, time.Millisecond)
	defer cleanup()

	{
		var body ErrorResponse
		status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{
			Contest: "abc300",
			Mode:    "bogus",
		}, &body)
		require.Equal(t, http.StatusBadRequest, status)
		require.False(t, body.Ok)
	}
	{
		// review requested without a configured generator
		var body ErrorResponse
		status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{
			Contest:    "abc300",
			WithReview: true,
		}, &body)
		require.Equal(t, http.StatusBadRequest, status)
	}
	{
		var body ErrorResponse
		status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{}, &body)
		require.Equal(t, http.StatusBadRequest, status)
	}
}

func TestAlreadyRunningAndCancel(t *testing.T) {
	env, cleanup := setupAPI(t, time.Millisecond*100)
	defer cleanup()

	status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{Contest: "abc300"}, nil)
	require.Equal(t, http.StatusAccepted, status)

	{
		var body ErrorResponse
		status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{Contest: "abc300"}, &body)
		require.Equal(t, http.StatusConflict, status)
	}
	{
		var body CancelRunResponse
		status := postJSON(t, env.server.URL+"/api/v1/runs/cancel", CancelRunRequest{Contest: "abc300"}, &body)
		require.Equal(t, http.StatusOK, status)
		require.True(t, body.Cancelled)
	}

	// once the run winds down the slot opens up again
	require.Eventually(t, func() bool {
		status := postJSON(t, env.server.URL+"/api/v1/runs", StartRunRequest{Contest: "abc301"}, nil)
		return status == http.StatusAccepted
	}, time.Second*10, time.Millisecond*50)
}

func TestCancelWithoutActiveRun(t *testing.T) {
	env, cleanup := setupAPI(t, time.Millisecond)
	defer cleanup()

	var body CancelRunResponse
	status := postJSON(t, env.server.URL+"/api/v1/runs/cancel", CancelRunRequest{Contest: "abc300"}, &body)
	require.Equal(t, http.StatusOK, status)
	require.False(t, body.Cancelled)
}

func TestProgressNotFound(t *testing.T) {
	env, cleanup := setupAPI(t, time.Millisecond)
	defer cleanup()

	var body ErrorResponse
	status := getJSON(t, env.server.URL+"/api/v1/contests/nope/progress", &body)
	require.Equal(t, http.StatusNotFound, status)
	require.False(t, body.Ok)
}

func TestBundleReviewEndpoints(t *testing.T) {
	env, cleanup := setupAPI(t, time.Millisecond)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	// seed the store directly and materialize a bundle to work on
	_, err := env.store.UpsertSubmissions(ctx, "abc300", []records.Submission{
		{ID: 1, User: "dave", Task: "abc300_a", Result: "AC", SelfUserKey: "dave"},
	}, records.SourceSelf)
	require.NoError(t, err)
	bundle, err := env.cache.Materialize(ctx, "abc300", "dave")
	require.NoError(t, err)

	keyPath := env.server.URL + "/api/v1/bundles/" + url.PathEscape(bundle.CacheKey)

	var reviewId string
	{
		var body AttachReviewResponse
		status := postJSON(t, keyPath+"/reviews", AttachReviewRequest{
			Markdown: "# feedback",
			Provider: "openai",
			Model:    "gpt-4o",
		}, &body)
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, body.ID)
		reviewId = body.ID
	}
	{
		var body BundleResponse
		status := getJSON(t, keyPath, &body)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, body.Reviews, 1)
		require.Equal(t, "# feedback", body.Reviews[0].Markdown)
	}
	{
		// neither markdown nor html
		var body ErrorResponse
		status := postJSON(t, keyPath+"/reviews", AttachReviewRequest{}, &body)
		require.Equal(t, http.StatusBadRequest, status)
	}
	{
		status := doDelete(t, env.server.URL+"/api/v1/reviews/"+reviewId, nil)
		require.Equal(t, http.StatusOK, status)

		status = doDelete(t, env.server.URL+"/api/v1/reviews/"+reviewId, nil)
		require.Equal(t, http.StatusNotFound, status)
	}
	{
		status := doDelete(t, keyPath, nil)
		require.Equal(t, http.StatusOK, status)

		var list ListBundlesResponse
		getJSON(t, env.server.URL+"/api/v1/bundles", &list)
		require.Empty(t, list.Bundles)
	}
	{
		var body ErrorResponse
		status := postJSON(t, keyPath+"/reviews", AttachReviewRequest{Markdown: "x"}, &body)
		require.Equal(t, http.StatusNotFound, status)
	}
}
