package app

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/fabrica/config"
	"github.com/talkincode/fabrica/internal/admin"
	"github.com/talkincode/fabrica/internal/apiclient"
	"github.com/talkincode/fabrica/internal/cart"
	"github.com/talkincode/fabrica/internal/catalog"
	"github.com/talkincode/fabrica/internal/orders"
	"github.com/talkincode/fabrica/internal/session"
	"github.com/talkincode/fabrica/internal/works"
	"github.com/talkincode/fabrica/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Application wires the API client, the stores and the background jobs into
// one session-scoped unit. Stores are created once here and handed to
// consumers explicitly; there is no ambient lookup.
type Application struct {
	appConfig *config.AppConfig
	bus       EventBus.Bus
	vault     *session.Vault
	api       *apiclient.Client
	sched     *cron.Cron

	sessionStore *session.Store
	catalogStore *catalog.Store
	worksStore   *works.Store
	orderStore   *orders.Store
	notifyStore  *orders.NotificationStore
	cartStore    *cart.Store
	adminService *admin.Service
}

// Ensure Application implements all interfaces
var (
	_ ConfigProvider    = (*Application)(nil)
	_ SessionProvider   = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ WorksProvider     = (*Application)(nil)
	_ OrdersProvider    = (*Application)(nil)
	_ CartProvider      = (*Application)(nil)
	_ AdminProvider     = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.Logger.FileEnable {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, cfg.Logger.Filename)
	}

	// Build logger with file rotation if enabled
	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)

	if err := os.MkdirAll(cfg.System.Workdir, 0755); err != nil {
		return err
	}

	// Initialize metrics with workdir convention
	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Durable session vault (the persisted-token store)
	a.vault, err = session.OpenVault(cfg.SessionDBPath())
	if err != nil {
		return err
	}

	a.bus = EventBus.New()
	a.api = apiclient.NewClient(cfg.Api.Url, time.Duration(cfg.Api.Timeout)*time.Second, a.vault)
	zap.S().Infof("API client ready, backend: %s", cfg.Api.Url)

	a.sessionStore = session.NewStore(a.api, a.vault, cfg.Session, a.bus)
	a.catalogStore = catalog.NewStore(a.api, a.bus)
	a.worksStore = works.NewStore(a.api, a.bus)
	a.orderStore = orders.NewStore(a.api, a.bus)
	a.notifyStore = orders.NewNotificationStore(a.api, a.bus)
	a.cartStore = cart.NewStore(a.api, a.bus)
	a.adminService = admin.NewService(a.api, a.catalogStore, a.worksStore)

	a.initJob()
	return nil
}

// Boot runs the session bootstrap sequence: validate any persisted token,
// then warm the reference data.
func (a *Application) Boot(ctx context.Context) {
	a.sessionStore.CheckAuth(ctx)
	a.catalogStore.FetchCategories(ctx)
	a.catalogStore.FetchBrands(ctx)
	a.catalogStore.FetchAll(ctx, nil)
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Api() *apiclient.Client {
	return a.api
}

func (a *Application) Session() *session.Store {
	return a.sessionStore
}

func (a *Application) Catalog() *catalog.Store {
	return a.catalogStore
}

func (a *Application) Works() *works.Store {
	return a.worksStore
}

func (a *Application) Orders() *orders.Store {
	return a.orderStore
}

func (a *Application) Notifications() *orders.NotificationStore {
	return a.notifyStore
}

func (a *Application) Cart() *cart.Store {
	return a.cartStore
}

func (a *Application) Admin() *admin.Service {
	return a.adminService
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}

	if a.vault != nil {
		_ = a.vault.Close()
	}

	_ = metrics.Close()
	_ = zap.L().Sync()
}
