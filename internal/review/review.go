// Package review turns an export bundle into an AI-written comparison
// report. The pipeline treats it as an optional collaborator: a run is
// complete without it, and its failures never corrupt stored data.
package review

import (
	"context"
	"errors"
)

// ErrNotConfigured means no provider, model or api key is set. The
// caller should surface this as a settings problem, not a site or
// pipeline failure.
var ErrNotConfigured = errors.New("review: provider, model and api key must be configured")

type Settings struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	ApiKey   string `json:"api_key"`
	// BaseUrl overrides the provider endpoint, mainly for tests and
	// OpenAI-compatible proxies.
	BaseUrl string `json:"base_url"`

	PromptTemplate    string `json:"prompt_template"`
	PromptTemplateAhc string `json:"prompt_template_ahc"`

	ExpectedExampleEnabled bool   `json:"expected_example_enabled"`
	ExpectedExample        string `json:"expected_example"`
	ExpectedExampleAhc     string `json:"expected_example_ahc"`
}

func DefaultSettings() Settings {
	return Settings{
		ExpectedExampleEnabled: true,
	}
}

func (s Settings) Validate() error {
	if s.Provider == "" || s.Model == "" || s.ApiKey == "" {
		return ErrNotConfigured
	}
	return nil
}

type Request struct {
	Contest    string
	TargetUser string
	// PayloadJSON is the serialized export bundle the report is based
	// on.
	PayloadJSON string
}

type Result struct {
	Markdown string
	Prompt   string
	Provider string
	Model    string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}
