// Package api exposes the collection pipeline, the record store and
// the export cache over a JSON HTTP surface. Every operation has its
// own typed request and response pair; responses always carry an
// `ok` field so callers can branch without inspecting status codes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sessionscout-backend/internal/assert"
	"sessionscout-backend/internal/coverage"
	"sessionscout-backend/internal/exportcache"
	"sessionscout-backend/internal/fetch"
	"sessionscout-backend/internal/pipeline"
	"sessionscout-backend/internal/records"
	"sessionscout-backend/internal/review"
	"sessionscout-backend/internal/telemetry"

	"github.com/go-chi/chi/v5"
)

const (
	report_encode_response = "api.encode-response"
)

type Service struct {
	// baseCtx bounds detached runs; request contexts die with the
	// request, so runs cannot hang off them.
	baseCtx    context.Context
	pipeline   *pipeline.Pipeline
	supervisor *pipeline.Supervisor
	store      records.Store
	cache      exportcache.Cache

	tel telemetry.API
}

func NewService(
	baseCtx context.Context,
	p *pipeline.Pipeline,
	supervisor *pipeline.Supervisor,
	store records.Store,
	cache exportcache.Cache,
	tel telemetry.API,
) Service {
	assert.NotNil(tel)
	assert.NotNil(p)
	assert.NotNil(supervisor)

	return Service{
		baseCtx:    baseCtx,
		pipeline:   p,
		supervisor: supervisor,
		store:      store,
		cache:      cache,
		tel:        telemetry.NewScopedAPI("api", tel),
	}
}

func (s Service) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/runs", s.handleStartRun)
	r.Post("/api/v1/runs/cancel", s.handleCancelRun)

	r.Get("/api/v1/contests/{contest}/progress", s.handleGetProgress)
	r.Delete("/api/v1/contests/{contest}/progress", s.handleClearProgress)
	r.Get("/api/v1/contests/{contest}/coverage", s.handleCoverage)
	r.Delete("/api/v1/contests/{contest}", s.handleClearContest)

	r.Post("/api/v1/collect/my-submissions", s.handleCollectMySubmissions)
	r.Post("/api/v1/collect/tasks", s.handleCollectTasks)
	r.Post("/api/v1/collect/target-users", s.handleCollectTargetUsers)
	r.Post("/api/v1/collect/target-submissions", s.handleCollectTargetSubmissions)

	r.Get("/api/v1/bundles", s.handleListBundles)
	r.Get("/api/v1/bundles/lookup", s.handleLookupBundle)
	r.Get("/api/v1/bundles/{cacheKey}", s.handleGetBundle)
	r.Delete("/api/v1/bundles/{cacheKey}", s.handleDeleteBundle)
	r.Post("/api/v1/bundles/{cacheKey}/reviews", s.handleAttachReview)
	r.Delete("/api/v1/reviews/{id}", s.handleDeleteReview)
}

func (s Service) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.tel.ReportWarning(report_encode_response, "error", err)
	}
}

func (s Service) fail(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, ErrorResponse{Ok: false, Error: err.Error()})
}

// statusForError maps the pipeline's error taxonomy onto HTTP codes.
func statusForError(err error) int {
	var empty *pipeline.EmptyResultError
	var status fetch.StatusError
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, review.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, exportcache.ErrReviewNotFound):
		return http.StatusNotFound
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity
	case errors.As(err, &status):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode[T any](w http.ResponseWriter, r *http.Request, s Service) (T, bool) {
	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, errors.New("invalid request body"))
		return body, false
	}
	return body, true
}

func (s Service) handleStartRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[StartRunRequest](w, r, s)
	if !ok {
		return
	}

	params := req.runParams()
	if err := s.pipeline.ValidateRun(params); err != nil {
		s.fail(w, statusForErrorOr(err, http.StatusBadRequest), err)
		return
	}

	err := s.supervisor.Launch(s.baseCtx, params.Contest, func(ctx context.Context) {
		// Run reports its own terminal status through the progress
		// sinks; nothing to do with the error here.
		_ = s.pipeline.Run(ctx, params)
	})
	if err != nil {
		s.fail(w, statusForError(err), err)
		return
	}
	s.respond(w, http.StatusAccepted, OkResponse{Ok: true})
}

// statusForErrorOr prefers the taxonomy mapping but falls back to the
// given status for plain validation errors.
func statusForErrorOr(err error, fallback int) int {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		return fallback
	}
	return status
}

func (s Service) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[CancelRunRequest](w, r, s)
	if !ok {
		return
	}

	cancelled := s.supervisor.Cancel(req.Contest)
	if req.Contest != "" {
		if err := s.store.ClearProgress(r.Context(), req.Contest); err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
	}
	s.respond(w, http.StatusOK, CancelRunResponse{Ok: true, Cancelled: cancelled})
}

func (s Service) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	contest := chi.URLParam(r, "contest")

	state, found, err := s.store.GetProgress(r.Context(), contest)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		s.fail(w, http.StatusNotFound, errors.New("no progress recorded for this contest"))
		return
	}
	s.respond(w, http.StatusOK, ProgressResponse{
		Ok:       true,
		Contest:  state.Contest,
		Text:     state.Text,
		IsError:  state.IsError,
		Done:     state.Done,
		Running:  state.Running,
		Progress: state.Progress,
	})
}

func (s Service) handleClearProgress(w http.ResponseWriter, r *http.Request) {
	contest := chi.URLParam(r, "contest")
	if err := s.store.ClearProgress(r.Context(), contest); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, OkResponse{Ok: true})
}

func (s Service) handleCoverage(w http.ResponseWriter, r *http.Request) {
	contest := chi.URLParam(r, "contest")
	selfUser := r.URL.Query().Get("selfUser")
	var targets []string
	if raw := r.URL.Query().Get("targetUsers"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				targets = append(targets, name)
			}
		}
	}

	assessment, err := coverage.Assess(r.Context(), s.store, contest, selfUser, targets)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	missing := assessment.MissingUsers
	if missing == nil {
		missing = []string{}
	}
	s.respond(w, http.StatusOK, CoverageResponse{
		Ok:                     true,
		HasCachedTasks:         assessment.HasCachedTasks,
		HasCachedMySubmissions: assessment.HasCachedMySubmissions,
		HasCachedTopUsers:      assessment.HasCachedTopUsers,
		MissingUsers:           missing,
		TasksCount:             assessment.TasksCount,
		TopUsersCount:          assessment.TopUsersCount,
		MySubmissionsCount:     assessment.MySubmissionsCount,
		TopSubmissionsCount:    assessment.TopSubmissionsCount,
	})
}

func (s Service) handleClearContest(w http.ResponseWriter, r *http.Request) {
	contest := chi.URLParam(r, "contest")
	if err := s.store.ClearContest(r.Context(), contest); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, OkResponse{Ok: true})
}

func (s Service) handleCollectMySubmissions(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[StartRunRequest](w, r, s)
	if !ok {
		return
	}

	res, err := s.pipeline.CollectMySubmissions(r.Context(), req.runParams())
	if err != nil {
		s.fail(w, statusForError(err), err)
		return
	}
	s.respond(w, http.StatusOK, StageStatsResponse{
		Ok:      true,
		Added:   res.Stats.Added,
		Updated: res.Stats.Updated,
		Fetched: res.Fetched,
	})
}

func (s Service) handleCollectTasks(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[StartRunRequest](w, r, s)
	if !ok {
		return
	}

	count, err := s.pipeline.CollectTasks(r.Context(), req.runParams())
	if err != nil {
		s.fail(w, statusForError(err), err)
		return
	}
	s.respond(w, http.StatusOK, StageStatsResponse{Ok: true, Count: count})
}

func (s Service) handleCollectTargetUsers(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[StartRunRequest](w, r, s)
	if !ok {
		return
	}

	users, err := s.pipeline.CollectTargetUsers(r.Context(), req.runParams())
	if err != nil {
		s.fail(w, statusForError(err), err)
		return
	}
	body := TargetUsersResponse{Ok: true, Users: []UserBody{}}
	for _, u := range users {
		body.Users = append(body.Users, UserBody{User: u.Name, Rank: u.Rank})
	}
	s.respond(w, http.StatusOK, body)
}

func (s Service) handleCollectTargetSubmissions(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[StartRunRequest](w, r, s)
	if !ok {
		return
	}

	stats, err := s.pipeline.CollectTargetSubmissions(r.Context(), req.runParams())
	if err != nil {
		s.fail(w, statusForError(err), err)
		return
	}
	s.respond(w, http.StatusOK, StageStatsResponse{
		Ok:      true,
		Added:   stats.Added,
		Updated: stats.Updated,
	})
}

func metadataBody(m exportcache.Metadata) BundleMetadataBody {
	names := m.TopUserNames
	if names == nil {
		names = []string{}
	}
	return BundleMetadataBody{
		CacheKey:            m.CacheKey,
		Contest:             m.Contest,
		SelfUser:            m.SelfUser,
		SelfUserKey:         m.SelfUserKey,
		SavedAt:             m.SavedAt,
		Size:                m.Size,
		TasksCount:          m.TasksCount,
		MySubmissionsCount:  m.MySubmissionsCount,
		TopSubmissionsCount: m.TopSubmissionsCount,
		TopUserNames:        names,
		ReviewCount:         m.ReviewCount,
	}
}

func bundleBody(b exportcache.Bundle) BundleResponse {
	body := BundleResponse{
		Ok:      true,
		Bundle:  metadataBody(b.Metadata),
		Json:    b.Json,
		Reviews: []ReviewBody{},
	}
	for _, rev := range b.Reviews {
		body.Reviews = append(body.Reviews, ReviewBody{
			ID:       rev.ID,
			Markdown: rev.Markdown,
			Prompt:   rev.Prompt,
			Html:     rev.Html,
			Provider: rev.Provider,
			Model:    rev.Model,
			SavedAt:  rev.SavedAt,
		})
	}
	return body
}

func (s Service) handleListBundles(w http.ResponseWriter, r *http.Request) {
	metas, err := s.cache.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	body := ListBundlesResponse{Ok: true, Bundles: []BundleMetadataBody{}}
	for _, m := range metas {
		body.Bundles = append(body.Bundles, metadataBody(m))
	}
	s.respond(w, http.StatusOK, body)
}

func (s Service) handleLookupBundle(w http.ResponseWriter, r *http.Request) {
	contest := r.URL.Query().Get("contest")
	selfUser := r.URL.Query().Get("selfUser")
	if contest == "" {
		s.fail(w, http.StatusBadRequest, errors.New("contest query parameter is required"))
		return
	}

	bundle, found, err := s.cache.Find(r.Context(), contest, selfUser)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		s.fail(w, http.StatusNotFound, errors.New("no bundle for this contest and user"))
		return
	}
	s.respond(w, http.StatusOK, bundleBody(bundle))
}

func (s Service) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	cacheKey := chi.URLParam(r, "cacheKey")

	bundle, found, err := s.cache.Get(r.Context(), cacheKey)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		s.fail(w, http.StatusNotFound, errors.New("no bundle with this cache key"))
		return
	}
	s.respond(w, http.StatusOK, bundleBody(bundle))
}

func (s Service) handleDeleteBundle(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Delete(r.Context(), chi.URLParam(r, "cacheKey")); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, OkResponse{Ok: true})
}

func (s Service) handleAttachReview(w http.ResponseWriter, r *http.Request) {
	cacheKey := chi.URLParam(r, "cacheKey")
	req, ok := decode[AttachReviewRequest](w, r, s)
	if !ok {
		return
	}
	if req.Markdown == "" && req.Html == "" {
		s.fail(w, http.StatusBadRequest, errors.New("markdown or html is required"))
		return
	}

	if _, found, err := s.cache.Get(r.Context(), cacheKey); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	} else if !found {
		s.fail(w, http.StatusNotFound, errors.New("no bundle with this cache key"))
		return
	}

	id, err := s.cache.AttachReview(r.Context(), cacheKey, exportcache.ReviewFields{
		Markdown: req.Markdown,
		Prompt:   req.Prompt,
		Html:     req.Html,
		Provider: req.Provider,
		Model:    req.Model,
	})
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, AttachReviewResponse{Ok: true, ID: id})
}

func (s Service) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.DeleteReview(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, statusForError(err), err)
		return
	}
	s.respond(w, http.StatusOK, OkResponse{Ok: true})
}
