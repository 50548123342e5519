package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qoricash/tradingdesk/internal/app/services/auth"
	"github.com/qoricash/tradingdesk/internal/app/services/clients"
	"github.com/qoricash/tradingdesk/internal/app/services/operations"
	"github.com/qoricash/tradingdesk/internal/app/services/users"
	"github.com/qoricash/tradingdesk/internal/app/storage"
	"github.com/qoricash/tradingdesk/internal/app/storage/memory"
	"github.com/qoricash/tradingdesk/internal/app/system"
	"github.com/qoricash/tradingdesk/internal/logging"
	"github.com/qoricash/tradingdesk/internal/metrics"
	"github.com/qoricash/tradingdesk/internal/notify"
)

// Options configure application construction. The zero value runs entirely
// in memory, which is what the tests use.
type Options struct {
	Store storage.Store

	TrackingPrefix string
	RateMin        decimal.Decimal
	RateMax        decimal.Decimal

	JWTSecret string
	TokenTTL  time.Duration

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Application aggregates the desk's services and shared components.
type Application struct {
	Store storage.Store

	Operations *operations.Service
	Clients    *clients.Service
	Users      *users.Service
	Auth       *auth.Service

	Hub     *notify.Hub
	Metrics *metrics.Metrics
	Manager *system.Manager

	log *logging.Logger
}

// New builds the application graph. A nil store falls back to the in-memory
// implementation.
func New(opts Options) *Application {
	log := opts.Logger
	if log == nil {
		log = logging.NewDefault("app")
	}

	store := opts.Store
	if store == nil {
		store = memory.New()
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	hub := notify.NewHub(log.WithField("component", "notify")).WithGauge(m.SetWebsocketClients)

	opsCfg := operations.Config{
		TrackingPrefix: opts.TrackingPrefix,
		RateMin:        opts.RateMin,
		RateMax:        opts.RateMax,
	}

	application := &Application{
		Store:      store,
		Operations: operations.New(store, opsCfg, log.WithField("service", "operations")).WithNotifier(hub).WithRecorder(m),
		Clients:    clients.New(store, log.WithField("service", "clients")),
		Users:      users.New(store, log.WithField("service", "users")),
		Auth: auth.New(store, auth.Config{
			Secret:   opts.JWTSecret,
			TokenTTL: opts.TokenTTL,
		}, log.WithField("service", "auth")).WithRecorder(m),
		Hub:     hub,
		Metrics: m,
		Manager: system.NewManager(log),
		log:     log,
	}

	application.Manager.Register(hub)
	return application
}

// Start brings up the managed background services.
func (a *Application) Start(ctx context.Context) error {
	return a.Manager.Start(ctx)
}

// Stop shuts the managed services down.
func (a *Application) Stop(ctx context.Context) error {
	return a.Manager.Stop(ctx)
}
