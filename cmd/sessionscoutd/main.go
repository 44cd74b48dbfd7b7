package main

import (
	"context"
	"time"

	"sessionscout-backend/internal/api"
	"sessionscout-backend/internal/db"
	"sessionscout-backend/internal/exportcache"
	"sessionscout-backend/internal/pipeline"
	"sessionscout-backend/internal/records"
	"sessionscout-backend/internal/review"
	"sessionscout-backend/internal/scraper/atcoder"
	itelemetry "sessionscout-backend/internal/telemetry"
	"sessionscout-backend/lib/configutil"
	configlibsql "sessionscout-backend/lib/configutil/libsql"
	"sessionscout-backend/lib/serviceutil"
	"sessionscout-backend/lib/telemetry"

	"github.com/go-chi/chi/v5"
)

type ScraperConfig struct {
	BaseUrl       string `json:"base_url"`
	SessionCookie string `json:"session_cookie"`
	// RequestIntervalMs spaces out page fetches; pipeline politeness
	// between detail fetches uses the same value.
	RequestIntervalMs int `json:"request_interval_ms"`
}

type Config struct {
	Port     int                 `json:"port"`
	Database configlibsql.Struct `json:"database"`
	Scraper  ScraperConfig       `json:"scraper"`
	Review   review.Settings     `json:"review"`
	// MaxBundles bounds how many export bundles are retained; oldest
	// bundles are pruned past this count. Zero keeps the default.
	MaxBundles int `json:"max_bundles"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	database, err := config.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "sessionscoutd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())

	tel := itelemetry.SlogAPI{}

	baseUrl := config.Scraper.BaseUrl
	if baseUrl == "" {
		baseUrl = "https://atcoder.jp"
	}
	interval := time.Duration(config.Scraper.RequestIntervalMs) * time.Millisecond

	client, err := atcoder.NewClient(atcoder.ClientOptions{
		BaseUrl:         baseUrl,
		SessionCookie:   config.Scraper.SessionCookie,
		RequestInterval: interval,
	}, tel)
	if err != nil {
		serviceutil.Fatal("failed to setup scraper client", err)
	}

	store := records.NewStore(database)
	cache := exportcache.NewCache(database).WithPruneLimit(config.MaxBundles)

	var reviewer review.Generator
	if config.Review.Validate() == nil {
		generator, err := review.NewRestGenerator(config.Review, tel)
		if err != nil {
			serviceutil.Fatal("failed to setup review generator", err)
		}
		reviewer = generator
	}

	p := pipeline.New(pipeline.Options{
		Client:      client,
		Store:       store,
		Cache:       cache,
		Reviewer:    reviewer,
		PoliteDelay: interval,
	}, tel)

	service := api.NewService(ctx, p, pipeline.NewSupervisor(), store, cache, tel)
	router := chi.NewRouter()
	service.RegisterRoutes(router)

	port := config.Port
	if port == 0 {
		port = 8491
	}
	go serviceutil.StartHttpServer(port, router)

	<-ctx.Done()
}
