package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sessionscout-backend/internal/telemetry"

	"github.com/go-resty/resty/v2"
)

const (
	report_generator_generate = "generator.generate"
)

const defaultOpenAiBaseUrl = "https://api.openai.com/v1"

// RestGenerator talks to an OpenAI-compatible chat completions
// endpoint. Most hosted providers (and local proxies) expose this
// shape, so one implementation covers them.
type RestGenerator struct {
	settings Settings
	http     *resty.Client

	tel telemetry.API
}

func NewRestGenerator(settings Settings, tel telemetry.API) (*RestGenerator, error) {
	err := settings.Validate()
	if err != nil {
		return nil, err
	}

	tel = telemetry.NewScopedAPI("review", tel)

	baseUrl := settings.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultOpenAiBaseUrl
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	httpClient.SetAuthToken(settings.ApiKey)
	httpClient.SetTimeout(time.Minute * 5)
	telemetry.InstrumentResty(httpClient, tel)

	return &RestGenerator{
		settings: settings,
		http:     httpClient,
		tel:      tel,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *RestGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := BuildPrompt(req, g.settings)

	res, err := g.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(chatRequest{
			Model:    g.settings.Model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		Post("/chat/completions")
	if err != nil {
		g.tel.ReportBroken(report_generator_generate, err)
		return Result{}, err
	}

	var parsed chatResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		g.tel.ReportBroken(report_generator_generate, fmt.Errorf("decode response: %w", err))
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		err = fmt.Errorf("provider error: %s", parsed.Error.Message)
		g.tel.ReportBroken(report_generator_generate, err)
		return Result{}, err
	}
	if !res.IsSuccess() {
		err = fmt.Errorf("provider returned status %d", res.StatusCode())
		g.tel.ReportBroken(report_generator_generate, err)
		return Result{}, err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		err = fmt.Errorf("provider returned no content")
		g.tel.ReportBroken(report_generator_generate, err)
		return Result{}, err
	}

	return Result{
		Markdown: parsed.Choices[0].Message.Content,
		Prompt:   prompt,
		Provider: g.settings.Provider,
		Model:    g.settings.Model,
	}, nil
}
