// Package app initializes and holds the long-lived services of the crawler,
// acting as the dependency injection container the commands build on.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/api"
	"github.com/newsatlas/hubcrawler/internal/archive"
	archivegcs "github.com/newsatlas/hubcrawler/internal/archive/gcs"
	archivelocal "github.com/newsatlas/hubcrawler/internal/archive/local"
	archivemem "github.com/newsatlas/hubcrawler/internal/archive/memory"
	"github.com/newsatlas/hubcrawler/internal/clock/system"
	"github.com/newsatlas/hubcrawler/internal/config"
	"github.com/newsatlas/hubcrawler/internal/controller"
	"github.com/newsatlas/hubcrawler/internal/fetch"
	"github.com/newsatlas/hubcrawler/internal/gaps"
	"github.com/newsatlas/hubcrawler/internal/gazetteer"
	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/id/uuid"
	"github.com/newsatlas/hubcrawler/internal/logging"
	"github.com/newsatlas/hubcrawler/internal/pagecache"
	"github.com/newsatlas/hubcrawler/internal/pattern"
	"github.com/newsatlas/hubcrawler/internal/planner"
	"github.com/newsatlas/hubcrawler/internal/predict"
	storememory "github.com/newsatlas/hubcrawler/internal/store/memory"
	"github.com/newsatlas/hubcrawler/internal/store/postgres"
	"github.com/newsatlas/hubcrawler/internal/telemetry"
	"github.com/newsatlas/hubcrawler/internal/telemetry/sinks"
	"github.com/newsatlas/hubcrawler/internal/validate"
)

const pageCacheCapacity = 512

// App holds every shared service for one crawler process. It is built once
// at startup and torn down in Close.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Gazetteer  *gazetteer.Gazetteer
	Store      hub.Store
	Archive    archive.Store
	Fetcher    hub.Fetcher
	Telemetry  *telemetry.Hub
	Events     *sinks.MemorySink
	Controller *controller.Controller
	Server     *api.Server

	headless     *fetch.Headless
	pgStore      *postgres.Store
	pubsubClient *pubsub.Client
}

// New builds the full service graph from configuration, failing fast when a
// critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	if err := a.initGazetteer(); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx); err != nil {
		return nil, err
	}
	if err := a.initFetcher(); err != nil {
		return nil, err
	}
	if err := a.initTelemetry(ctx); err != nil {
		return nil, err
	}
	if err := a.initController(); err != nil {
		return nil, err
	}

	a.Server = api.NewServer(a.Controller, a.Store, a.Events, api.Config{
		APIKey: a.apiKey(),
		Domain: cfg.Crawl.Domain,
	}, logger.Named("api"))

	logger.Info("services initialized",
		zap.String("domain", cfg.Crawl.Domain),
		zap.Int("entities", a.Gazetteer.Len()),
	)
	return a, nil
}

func (a *App) apiKey() string {
	if a.Config.Auth.Enabled {
		return a.Config.Auth.APIKey
	}
	return ""
}

func (a *App) initGazetteer() error {
	if path := a.Config.Gazetteer.Path; path != "" {
		gaz, err := gazetteer.Load(path)
		if err != nil {
			return fmt.Errorf("load gazetteer: %w", err)
		}
		a.Gazetteer = gaz
		return nil
	}
	var entities []hub.Entity
	for _, kind := range []hub.EntityKind{hub.KindCountry, hub.KindRegion, hub.KindCity, hub.KindTopic} {
		entities = append(entities, gazetteer.SeedEntities(kind)...)
	}
	gaz, err := gazetteer.New(gazetteer.File{Entities: entities})
	if err != nil {
		return fmt.Errorf("build seed gazetteer: %w", err)
	}
	a.Logger.Info("no gazetteer path configured, using seed entities", zap.Int("entities", gaz.Len()))
	a.Gazetteer = gaz
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.Config.DB.DSN == "" {
		a.Logger.Info("no database configured, using in-memory store")
		a.Store = storememory.NewStore()
		return nil
	}
	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      a.Config.DB.DSN,
		MaxConns: a.Config.DB.MaxConns,
		MinConns: a.Config.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	a.pgStore = store
	a.Store = store
	return nil
}

func (a *App) initArchive(ctx context.Context) error {
	switch a.Config.Archive.Backend {
	case "noop", "":
		a.Archive = archive.Noop{}
	case "memory":
		a.Archive = archivemem.New()
	case "local":
		store, err := archivelocal.New(archivelocal.Config{BaseDir: a.Config.Archive.BaseDir})
		if err != nil {
			return fmt.Errorf("init local archive: %w", err)
		}
		a.Archive = store
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		store, err := archivegcs.New(client, archivegcs.Config{Bucket: a.Config.Archive.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
		a.Archive = store
	default:
		return fmt.Errorf("unknown archive backend %q", a.Config.Archive.Backend)
	}
	return nil
}

func (a *App) initFetcher() error {
	probe := fetch.NewProbe(fetch.ProbeConfig{
		UserAgent:     a.Config.Fetch.UserAgent,
		RespectRobots: a.Config.Fetch.RespectRobots,
		Timeout:       a.Config.FetchTimeout(),
	})

	var inner hub.Fetcher = probe
	if a.Config.Headless.Enabled {
		headless, err := fetch.NewHeadless(fetch.HeadlessConfig{
			MaxParallel:       a.Config.Headless.MaxParallel,
			UserAgent:         a.Config.Fetch.UserAgent,
			NavigationTimeout: a.Config.FetchTimeout(),
		})
		if err != nil {
			return fmt.Errorf("init headless fetcher: %w", err)
		}
		a.headless = headless
		inner = fetch.NewPipeline(probe, headless, fetch.NewHeuristic(0), a.Logger.Named("fetch"))
	}

	a.Fetcher = fetch.NewRetrying(inner, fetch.NewExponentialRetryPolicy(), a.Logger.Named("fetch"))
	return nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	a.Events = sinks.NewMemorySink(a.Config.Telemetry.RetainEvents)
	hubSinks := []telemetry.Sink{
		sinks.NewLogSink(a.Logger.Named("events")),
		a.Events,
	}

	prom, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	hubSinks = append(hubSinks, prom)

	if a.Config.PubSub.Enabled {
		sink, err := a.newPubSubSink(ctx)
		if err != nil {
			return err
		}
		hubSinks = append(hubSinks, sink)
	}

	a.Telemetry = telemetry.NewHub(telemetry.Config{
		BufferSize:     a.Config.Telemetry.BufferSize,
		MaxBatchEvents: a.Config.Telemetry.MaxBatchEvents,
		MaxBatchWait:   a.Config.BatchWait(),
	}, a.Logger.Named("telemetry"), hubSinks...)
	return nil
}

func (a *App) initController() error {
	lib := predict.NewLibrary()
	estimator := planner.NewCostEstimator()

	opts := gaps.Options{
		MaxCandidatesPerCycle: a.Config.Crawl.GapBatchPerCycle,
		MaxPairSide:           a.Config.Crawl.CompositePairSides,
		DomainHints:           []string{a.Config.Crawl.Domain},
	}
	kinds := []hub.CandidateKind{
		hub.CandidateCountryHub,
		hub.CandidateRegionHub,
		hub.CandidateCityHub,
		hub.CandidateTopicHub,
		hub.CandidatePlaceTopicHub,
		hub.CandidateHierarchicalHub,
		hub.CandidateCrossPlaceHub,
	}
	analyzers := make([]*gaps.Analyzer, 0, len(kinds))
	for _, kind := range kinds {
		analyzers = append(analyzers, gaps.NewAnalyzer(kind, a.Gazetteer, lib, opts))
	}

	plannerLogger := a.Logger.Named("planner")
	ctxFor := a.predictionContext()
	plan := planner.New(
		planner.Config{TopN: a.Config.Crawl.TopCandidates},
		[]planner.Reasoner{
			planner.NewGazetteerReasoner(a.Gazetteer, lib),
			estimator,
		},
		analyzers,
		ctxFor,
		plannerLogger,
	)

	cache := pagecache.New(pageCacheCapacity)
	clock := system.New()
	validator := validate.New(a.Fetcher, cache, validate.Config{
		MinArticleLinks: a.Config.Validation.MinArticleLinks,
		RetryBackoff:    a.Config.ValidatorBackoff(),
		FetchTimeout:    a.Config.FetchTimeout(),
	}, a.Logger.Named("validate"))

	mode, _ := hub.ParseMode(a.Config.Crawl.Mode)
	ctrl, err := controller.New(controller.Config{
		Domain:           a.Config.Crawl.Domain,
		Mode:             mode,
		MaxInFlight:      a.Config.Crawl.MaxInFlight,
		PerHostInterval:  a.Config.PerHostInterval(),
		FetchTimeout:     a.Config.FetchTimeout(),
		MaxCycles:        a.Config.Crawl.MaxCycles,
		FrontierCapacity: a.Config.Crawl.FrontierCapacity,
	}, controller.Deps{
		Fetcher:   a.Fetcher,
		Store:     a.Store,
		Gazetteer: a.Gazetteer,
		Planner:   plan,
		Validator: validator,
		Learner:   pattern.NewLearner(a.Store, clock, a.Logger.Named("pattern")),
		Cache:     cache,
		Archive:   a.Archive,
		Estimator: estimator,
		Emitter:   a.Telemetry,
		Clock:     clock,
		IDs:       uuid.New(),
		Logger:    a.Logger.Named("controller"),
	})
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}
	a.Controller = ctrl
	return nil
}

func (a *App) newPubSubSink(ctx context.Context) (telemetry.Sink, error) {
	client, err := pubsub.NewClient(ctx, a.Config.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	a.pubsubClient = client
	sink, err := sinks.NewPubSubSink(client.Topic(a.Config.PubSub.TopicName))
	if err != nil {
		return nil, fmt.Errorf("init pubsub sink: %w", err)
	}
	return sink, nil
}

// predictionContext supplies learned patterns and confirmed parent hub URLs
// to the gap analyzers, so composite gaps can compose under hubs this or an
// earlier run already confirmed.
func (a *App) predictionContext() gaps.ContextFunc {
	return gaps.StoreContext(a.Store, a.Config.Crawl.Domain, 2*a.Config.FetchTimeout(), a.Logger.Named("planner"))
}

// Close tears the services down in reverse dependency order.
func (a *App) Close(ctx context.Context) {
	a.Logger.Info("shutting down services")
	if a.Telemetry != nil {
		if err := a.Telemetry.Close(ctx); err != nil {
			a.Logger.Warn("closing telemetry hub", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.Logger.Warn("closing pubsub client", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	_ = a.Logger.Sync()
}
