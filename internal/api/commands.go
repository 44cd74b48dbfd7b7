package api

import (
	"sessionscout-backend/internal/pipeline"
	"sessionscout-backend/internal/scraper/atcoder"
)

// Request and response bodies use the same field names the collection
// pipeline's consumers already speak, one typed pair per operation.

type TargetConfigBody struct {
	Mode  string   `json:"mode"`
	K     int      `json:"k"`
	N     int      `json:"n"`
	Users []string `json:"users,omitempty"`
}

type StartRunRequest struct {
	Contest    string            `json:"contest"`
	TopN       int               `json:"topN"`
	MaxPages   int               `json:"maxPages"`
	Mode       string            `json:"mode"`
	SelfUser   string            `json:"selfUser"`
	WithReview bool              `json:"withReview"`
	Targets    *TargetConfigBody `json:"targetConfig"`
}

func (r StartRunRequest) runParams() pipeline.RunParams {
	params := pipeline.RunParams{
		Contest:    r.Contest,
		MaxPages:   r.MaxPages,
		Mode:       atcoder.Mode(r.Mode),
		SelfUser:   r.SelfUser,
		WithReview: r.WithReview,
		Targets:    pipeline.DefaultTargets(r.TopN),
	}
	if r.Targets != nil {
		params.Targets = pipeline.TargetConfig{
			Mode:  pipeline.TargetMode(r.Targets.Mode),
			K:     r.Targets.K,
			N:     r.Targets.N,
			Users: r.Targets.Users,
		}
	}
	return params
}

type CancelRunRequest struct {
	Contest string `json:"contest"`
}

type CancelRunResponse struct {
	Ok        bool `json:"ok"`
	Cancelled bool `json:"cancelled"`
}

type ProgressResponse struct {
	Ok       bool    `json:"ok"`
	Contest  string  `json:"contest"`
	Text     string  `json:"text"`
	IsError  bool    `json:"isError"`
	Done     bool    `json:"done"`
	Running  bool    `json:"running"`
	Progress float64 `json:"progress"`
}

type StageStatsResponse struct {
	Ok      bool `json:"ok"`
	Added   int  `json:"added"`
	Updated int  `json:"updated"`
	Fetched int  `json:"fetched,omitempty"`
	Count   int  `json:"count,omitempty"`
}

type TargetUsersResponse struct {
	Ok    bool       `json:"ok"`
	Users []UserBody `json:"users"`
}

type UserBody struct {
	User string `json:"user"`
	Rank string `json:"rank,omitempty"`
}

type CoverageResponse struct {
	Ok                     bool     `json:"ok"`
	HasCachedTasks         bool     `json:"hasCachedTasks"`
	HasCachedMySubmissions bool     `json:"hasCachedMySubmissions"`
	HasCachedTopUsers      bool     `json:"hasCachedTopUsers"`
	MissingUsers           []string `json:"missingUsers"`
	TasksCount             int64    `json:"tasksCount"`
	TopUsersCount          int64    `json:"topUsersCount"`
	MySubmissionsCount     int64    `json:"mySubmissionsCount"`
	TopSubmissionsCount    int64    `json:"topSubmissionsCount"`
}

type BundleMetadataBody struct {
	CacheKey            string   `json:"cacheKey"`
	Contest             string   `json:"contest"`
	SelfUser            string   `json:"selfUser,omitempty"`
	SelfUserKey         string   `json:"selfUserKey"`
	SavedAt             int64    `json:"savedAt"`
	Size                int64    `json:"size"`
	TasksCount          int64    `json:"tasksCount"`
	MySubmissionsCount  int64    `json:"mySubmissionsCount"`
	TopSubmissionsCount int64    `json:"topSubmissionsCount"`
	TopUserNames        []string `json:"topUserNames"`
	ReviewCount         int      `json:"reviewCount"`
}

type ListBundlesResponse struct {
	Ok      bool                 `json:"ok"`
	Bundles []BundleMetadataBody `json:"bundles"`
}

type ReviewBody struct {
	ID       string `json:"id"`
	Markdown string `json:"markdown"`
	Prompt   string `json:"prompt,omitempty"`
	Html     string `json:"html,omitempty"`
	Provider string `json:"aiProvider,omitempty"`
	Model    string `json:"aiModel,omitempty"`
	SavedAt  int64  `json:"savedAt"`
}

type BundleResponse struct {
	Ok      bool               `json:"ok"`
	Bundle  BundleMetadataBody `json:"bundle"`
	Json    string             `json:"json"`
	Reviews []ReviewBody       `json:"reviews"`
}

type AttachReviewRequest struct {
	Markdown string `json:"markdown"`
	Prompt   string `json:"prompt"`
	Html     string `json:"html"`
	Provider string `json:"aiProvider"`
	Model    string `json:"aiModel"`
}

type AttachReviewResponse struct {
	Ok bool   `json:"ok"`
	ID string `json:"id"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

type ErrorResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}
