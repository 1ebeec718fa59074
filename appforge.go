// Package appforge wires a complete application generator from a
// config.Config: the model backend, the role roster, Prometheus metrics,
// the optional sqlite session mirror, the optional NATS event bus and a
// runner.Runner hosting the chat sessions.
//
// Most applications interact with this package by:
//  1. Loading a configuration via config.Load
//  2. Creating an App via New (optionally overriding the model backend)
//  3. Running chats through App.Runner
//
// The façade delegates orchestration to engine.Engine (one per session)
// while keeping setup concise. Close releases the store and the bus.
package appforge

import (
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/appforge/config"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/engine"
	"github.com/hupe1980/appforge/flow"
	"github.com/hupe1980/appforge/logging"
	"github.com/hupe1980/appforge/metrics"
	"github.com/hupe1980/appforge/model"
	"github.com/hupe1980/appforge/model/anthropic"
	"github.com/hupe1980/appforge/model/openai"
	"github.com/hupe1980/appforge/registry"
	"github.com/hupe1980/appforge/runner"
	"github.com/hupe1980/appforge/session"
	"github.com/hupe1980/appforge/session/sqlite"
	"github.com/hupe1980/appforge/stream"
	"github.com/hupe1980/appforge/stream/natsbus"
)

// Options configures the App beyond the file configuration.
type Options struct {
	// Model replaces the backend selected by the provider section.
	Model model.Model
	// Registerer receives the metric collectors. Defaults to a private
	// registry served by MetricsHandler.
	Registerer prometheus.Registerer
	// Gatherer backs MetricsHandler. It must match Registerer when both
	// are set.
	Gatherer prometheus.Gatherer
}

// App is the high-level façade aggregating the runner and its services.
type App struct {
	cfg      *config.Config
	logger   *logging.AppForgeLogger
	registry *registry.Registry
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
	store    *sqlite.Store
	natsSrv  *natsbus.Server
	natsConn *nats.Conn
	runner   *runner.Runner
}

// New creates an App from cfg. Resources acquired before a failure are
// released.
func New(cfg *config.Config, optFns ...func(o *Options)) (_ *App, err error) {
	promReg := prometheus.NewRegistry()
	opts := Options{
		Registerer: promReg,
		Gatherer:   promReg,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &App{
		cfg:      cfg,
		logger:   cfg.Logger(),
		gatherer: opts.Gatherer,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry, err = cfg.LoadRegistry()
	if err != nil {
		return nil, err
	}

	m := opts.Model
	if m == nil {
		m, err = NewModel(cfg)
		if err != nil {
			return nil, err
		}
	}

	a.metrics, err = metrics.New(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var store session.Store = session.NewInMemoryStore()
	if cfg.Store.Path != "" {
		a.store, err = sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		store = a.store
		a.logger.Info("store.initialized", "path", cfg.Store.Path)
	}

	url := cfg.NATS.URL
	if cfg.NATS.Embedded {
		a.natsSrv, err = natsbus.NewServer(func(o *natsbus.ServerOptions) {
			if cfg.NATS.Port != 0 {
				o.Port = cfg.NATS.Port
			}
		})
		if err != nil {
			return nil, fmt.Errorf("init nats: %w", err)
		}
		url = a.natsSrv.ClientURL()
		a.logger.Info("nats.started", "url", url)
	}
	if url != "" {
		a.natsConn, err = natsbus.Connect(url)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
	}

	a.runner = runner.New(m, func(o *runner.Options) {
		o.Store = store
		o.Sinks = a.sinks
		o.Logger = a.logger.WithComponent("runner")
		o.EngineOptions = []func(o *engine.Options){
			engine.WithConfig(cfg.EngineConfig()),
			engine.WithInitialPhase(cfg.Engine.InitialPhase),
			engine.WithRegistry(a.registry),
			engine.WithTiers(cfg.TierTable()),
			engine.WithLogger(a.logger.WithComponent("engine")),
			engine.WithObserver(flow.Observers{
				a.metrics,
				flow.LogObserver{Logger: a.logger.WithComponent("loop")},
			}),
		}
	})

	return a, nil
}

// NewModel builds the backend selected by the provider section.
func NewModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider.Name {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.Provider.Anthropic.APIKey
			o.BaseURL = cfg.Provider.Anthropic.BaseURL
			o.Temperature = cfg.Provider.Temperature
			o.MaxTokens = cfg.Provider.MaxTokens
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.Provider.OpenAI.APIKey
			o.BaseURL = cfg.Provider.OpenAI.BaseURL
			o.Temperature = cfg.Provider.Temperature
			o.MaxCompletionTokens = cfg.Provider.MaxTokens
		}), nil
	case config.ProviderScripted:
		return OfflineModel(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

// OfflineModel is the backend of the scripted provider: the coordinator
// delegates one requirements task, advances the phase to design and
// summarizes. It needs no network access.
func OfflineModel() *model.ScriptedModel {
	return model.NewScriptedModel().
		On(core.RoleCoordinator,
			model.Turn{
				Deltas: []string{"Let me start by capturing the requirements."},
				Calls: []core.ActionCall{{
					Name:      "delegate_task",
					Arguments: `{"agent":"requirements_analyst","task":"Capture the core requirements of the requested application."}`,
				}},
			},
			model.Call("set_phase", `{"phase":"design"}`),
			model.Text("The requirements are recorded and the session moved to the design phase."),
		).
		On(core.RoleRequirementsAnalyst,
			model.Turn{
				Deltas: []string{"Recording the primary requirement."},
				Calls: []core.ActionCall{{
					Name:      "define_requirement",
					Arguments: `{"title":"Primary workflow","description":"Users can complete the primary workflow of the application.","priority":"must"}`,
				}},
			},
			model.Text("One must-have requirement recorded."),
		)
}

func (a *App) sinks(sessionID string) []stream.Sink {
	if a.natsConn == nil {
		return nil
	}
	return []stream.Sink{natsbus.NewPublisher(a.natsConn, sessionID)}
}

// Runner returns the session host.
func (a *App) Runner() *runner.Runner { return a.runner }

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *logging.AppForgeLogger { return a.logger }

// Registry returns the role roster.
func (a *App) Registry() *registry.Registry { return a.registry }

// NATS returns the bus connection, or nil when publishing is disabled.
func (a *App) NATS() *nats.Conn { return a.natsConn }

// Store returns the sqlite mirror, or nil when it is disabled.
func (a *App) Store() *sqlite.Store { return a.store }

// MetricsHandler serves the collected metrics in the Prometheus format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})
}

// Close releases all resources in reverse order of acquisition.
func (a *App) Close() {
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.natsSrv != nil {
		a.natsSrv.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store.close.error", "error", err.Error())
		}
	}
}
