package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/Ramsey-B/advwell/config"
	"github.com/Ramsey-B/advwell/pkg/casesync"
	appctx "github.com/Ramsey-B/advwell/pkg/context"
	"github.com/Ramsey-B/advwell/pkg/database"
	"github.com/Ramsey-B/advwell/pkg/datajud"
	"github.com/Ramsey-B/advwell/pkg/expressions"
	"github.com/Ramsey-B/advwell/pkg/health"
	"github.com/Ramsey-B/advwell/pkg/httpclient"
	"github.com/Ramsey-B/advwell/pkg/kafka"
	"github.com/Ramsey-B/advwell/pkg/ratelimit"
	"github.com/Ramsey-B/advwell/pkg/redis"
	"github.com/Ramsey-B/advwell/pkg/repositories"
	"github.com/Ramsey-B/advwell/pkg/startup"
	"github.com/Ramsey-B/advwell/pkg/sweep"
	"github.com/Ramsey-B/advwell/pkg/tracing"
	"github.com/Ramsey-B/advwell/pkg/tracing/exporters"
)

const (
	depTracing    = "tracing"
	depDatabase   = "database"
	depMigrations = "migrations"
	depRedis      = "redis"
	depKafka      = "kafka"
	depServices   = "services"
	depSweep      = "sweep"
	depHTTP       = "http"

	shutdownTimeout = 30 * time.Second

	caseLockPrefix  = "advwell:casesync:"
	sweepLockPrefix = "advwell:sweep:"
	rateLimitPrefix = "advwell:datajud:"
)

// App owns the process dependencies. Every command registers only the
// dependencies it needs and starts them through the startup graph.
type App struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup

	tracer   *tracing.Provider
	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	health   *health.Checker
	server   *http.Server

	companies *repositories.CompanyRepository
	clients   *repositories.ClientRepository
	cases     *repositories.CaseRepository
	movements *repositories.MovementRepository
	parts     *repositories.CasePartRepository
	financial *repositories.FinancialRepository
	documents *repositories.DocumentRepository
	users     *repositories.UserRepository

	synchronizer *casesync.Synchronizer
	sweeper      *sweep.Sweeper
}

func New(cfg *config.Config, logger ectologger.Logger) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}
}

// Serve runs the API and the daily sweep until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	a.addTracing()
	a.addDatabase()
	a.addRedis()
	a.addKafka()
	if a.cfg.DatabaseMigrateOnStart {
		a.addMigrations()
		a.addServices(depMigrations)
	} else {
		a.addServices()
	}
	if a.cfg.SweepEnabled {
		a.addSweep()
	}
	a.addHTTP()

	if err := a.startup.Start(ctx); err != nil {
		a.stop()
		return err
	}
	a.health.SetReady(true)
	a.logger.WithContext(ctx).Infof("%s %s listening on :%d", a.cfg.AppName, a.cfg.AppVersion, a.cfg.Port)

	<-ctx.Done()
	a.health.SetReady(false)
	a.logger.Info("Shutting down")
	return a.stop()
}

// MigrateUp applies pending schema migrations.
func (a *App) MigrateUp(ctx context.Context) error {
	a.addDatabase()
	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	defer a.stop()

	return a.migrationService().Up(a.db.Unsafe().DB)
}

// MigrateDown rolls back the given number of schema migrations.
func (a *App) MigrateDown(ctx context.Context, steps int) error {
	a.addDatabase()
	if err := a.startup.Start(ctx); err != nil {
		return err
	}
	defer a.stop()

	return a.migrationService().Down(a.db.Unsafe().DB, steps)
}

// SyncCase synchronizes one case of the given company.
func (a *App) SyncCase(ctx context.Context, companyID, caseID uuid.UUID) (*casesync.SyncResult, error) {
	a.addDatabase()
	a.addRedis()
	a.addKafka()
	a.addServices()
	if err := a.startup.Start(ctx); err != nil {
		a.stop()
		return nil, err
	}
	defer a.stop()

	ctx = appctx.SetTenantID(ctx, companyID.String())
	return a.synchronizer.Sync(ctx, caseID, casesync.TriggerCLI)
}

// Sweep synchronizes every active case once, skipping the schedule and the
// leader claim.
func (a *App) Sweep(ctx context.Context) (*sweep.Report, error) {
	a.addDatabase()
	a.addRedis()
	a.addKafka()
	a.addServices()
	if err := a.startup.Start(ctx); err != nil {
		a.stop()
		return nil, err
	}
	defer a.stop()

	sweeper, err := a.newSweeper()
	if err != nil {
		return nil, err
	}
	return sweeper.RunOnce(ctx)
}

func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.startup.Stop(ctx)
}

func (a *App) migrationService() *database.MigrationService {
	return database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		DatabaseName:        "postgres",
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
}

func (a *App) addTracing() {
	a.startup.AddDependency(&dependency{
		name: depTracing,
		start: func(ctx context.Context) error {
			provider, err := tracing.NewProvider(ctx, tracing.ProviderConfig{
				ServiceName: a.cfg.AppName,
				Exporter:    a.cfg.OTELExporter,
				OTLP: exporters.OTLPConfig{
					Endpoint: a.cfg.OTELEndpoint,
					Insecure: a.cfg.OTELInsecure,
				},
			}, a.logger)
			if err != nil {
				return err
			}
			a.tracer = provider
			return nil
		},
		stop: func(ctx context.Context) error {
			return a.tracer.Shutdown(ctx)
		},
	})
}

func (a *App) addDatabase() {
	a.startup.AddDependency(&dependency{
		name: depDatabase,
		start: func(ctx context.Context) error {
			db, err := database.Open(ctx, database.Config{
				URL:             a.cfg.DatabaseURL,
				MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
			}, a.logger)
			if err != nil {
				return err
			}
			a.db = db
			return nil
		},
		stop: func(_ context.Context) error {
			return a.db.Close()
		},
	})
}

func (a *App) addMigrations() {
	a.startup.AddDependency(&dependency{
		name:      depMigrations,
		dependsOn: []string{depDatabase},
		start: func(_ context.Context) error {
			return a.migrationService().Up(a.db.Unsafe().DB)
		},
	})
}

func (a *App) addRedis() {
	a.startup.AddDependency(&dependency{
		name: depRedis,
		start: func(ctx context.Context) error {
			client, err := redis.NewClient(ctx, redis.Config{URL: a.cfg.RedisURL}, a.logger)
			if err != nil {
				return err
			}
			a.redis = client
			return nil
		},
		stop: func(_ context.Context) error {
			return a.redis.Close()
		},
	})
}

func (a *App) addKafka() {
	if !a.cfg.KafkaEnabled {
		return
	}
	a.startup.AddDependency(&dependency{
		name: depKafka,
		start: func(_ context.Context) error {
			a.producer = kafka.NewProducer(kafka.Config{
				Brokers: a.cfg.KafkaBrokers,
				Topic:   a.cfg.KafkaCaseSyncedTopic,
			}, a.logger)
			return nil
		},
		stop: func(_ context.Context) error {
			return a.producer.Close()
		},
	})
}

// addServices builds the repositories, the DataJud registry and the
// synchronizer on top of the connections.
func (a *App) addServices(after ...string) {
	dependsOn := append([]string{depDatabase, depRedis}, after...)
	if a.cfg.KafkaEnabled {
		dependsOn = append(dependsOn, depKafka)
	}

	a.startup.AddDependency(&dependency{
		name:      depServices,
		dependsOn: dependsOn,
		start: func(_ context.Context) error {
			a.buildServices()
			return nil
		},
	})
}

func (a *App) buildServices() {
	a.companies = repositories.NewCompanyRepository(a.db, a.logger)
	a.clients = repositories.NewClientRepository(a.db, a.logger)
	a.cases = repositories.NewCaseRepository(a.db, a.logger)
	a.movements = repositories.NewMovementRepository(a.db, a.logger, a.cases)
	a.parts = repositories.NewCasePartRepository(a.db, a.logger)
	a.financial = repositories.NewFinancialRepository(a.db, a.logger)
	a.documents = repositories.NewDocumentRepository(a.db, a.logger)
	a.users = repositories.NewUserRepository(a.db, a.logger)

	var locker casesync.Locker
	var limiter datajud.Limiter
	if a.redis != nil {
		locker = redis.NewLocker(a.redis, caseLockPrefix)
		limiter = ratelimit.NewManager(
			redis.NewRateLimiter(a.redis, rateLimitPrefix),
			ratelimit.Limit{Requests: a.cfg.DatajudRateLimitRequests, Window: a.cfg.DatajudRateLimitWindow},
			a.cfg.DatajudRateLimitMaxWait,
			a.logger,
		)
	}

	var publisher casesync.EventPublisher
	if a.producer != nil {
		publisher = a.producer
	}

	a.synchronizer = casesync.NewSynchronizer(
		a.newRegistry(limiter),
		a.cases,
		a.movements,
		locker,
		publisher,
		casesync.Config{LockTTL: a.caseSyncLockTTL()},
		a.logger,
	)

	checks := map[string]health.Pinger{depDatabase: a.db}
	if a.redis != nil {
		checks[depRedis] = health.PingFunc(a.redis.Ping)
	}
	a.health = health.NewChecker(a.cfg.AppVersion, checks)
}

// caseSyncLockTTL raises CASE_SYNC_LOCK_TTL when it would expire before a
// full tribunal walk finishes.
func (a *App) caseSyncLockTTL() time.Duration {
	minTTL := casesync.LockTTLFor(len(a.cfg.DatajudTribunals), a.cfg.DatajudTimeout, a.cfg.DatajudRateLimitMaxWait)
	if a.cfg.CaseSyncLockTTL >= minTTL {
		return a.cfg.CaseSyncLockTTL
	}
	a.logger.WithFields(map[string]any{
		"configured": a.cfg.CaseSyncLockTTL.String(),
		"using":      minTTL.String(),
	}).Warn("CASE_SYNC_LOCK_TTL is shorter than a full DataJud search, raising it")
	return minTTL
}

func (a *App) newRegistry(limiter datajud.Limiter) *datajud.Registry {
	client := httpclient.NewClient(httpclient.Config{
		Timeout:         a.cfg.DatajudTimeout,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
	}, a.logger)
	evaluator := expressions.NewEvaluator()

	providers := make([]datajud.Provider, 0, len(a.cfg.DatajudTribunals))
	for _, tribunal := range a.cfg.DatajudTribunals {
		providers = append(providers, datajud.NewTribunalProvider(tribunal, a.cfg.DatajudBaseURL, a.cfg.DatajudAPIKey, client, evaluator, a.logger))
	}

	return datajud.NewRegistry(providers, datajud.RegistryConfig{
		Parallel: a.cfg.DatajudParallel,
		Timeout:  a.cfg.DatajudTimeout,
	}, limiter, a.logger)
}

func (a *App) newSweeper() (*sweep.Sweeper, error) {
	location, err := time.LoadLocation(a.cfg.SweepTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep timezone %q: %w", a.cfg.SweepTimezone, err)
	}

	var leader sweep.LeaderClaimer
	if a.redis != nil {
		leader = redis.NewLocker(a.redis, sweepLockPrefix)
	}

	return sweep.NewSweeper(a.cases, a.synchronizer, leader, sweep.Config{
		Hour:         a.cfg.SweepHour,
		Workers:      a.cfg.SweepWorkers,
		Location:     location,
		PollInterval: a.cfg.SweepPollInterval,
		LockTTL:      a.cfg.SweepLockTTL,
	}, a.logger), nil
}

func (a *App) addSweep() {
	a.startup.AddDependency(&dependency{
		name:      depSweep,
		dependsOn: []string{depServices},
		start: func(_ context.Context) error {
			sweeper, err := a.newSweeper()
			if err != nil {
				return err
			}
			a.sweeper = sweeper
			// the poll loop outlives the startup context
			return sweeper.Start(context.Background())
		},
		stop: func(ctx context.Context) error {
			return a.sweeper.Stop(ctx)
		},
	})
}

func (a *App) addHTTP() {
	a.startup.AddDependency(&dependency{
		name:      depHTTP,
		dependsOn: []string{depTracing, depServices},
		start: func(_ context.Context) error {
			listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Port))
			if err != nil {
				return fmt.Errorf("failed to listen on port %d: %w", a.cfg.Port, err)
			}

			router, err := a.newRouter(context.Background())
			if err != nil {
				_ = listener.Close()
				return err
			}

			a.server = &http.Server{
				Handler:           router,
				ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
			}
			go func() {
				if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.WithError(err).Error("HTTP server stopped unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			return a.server.Shutdown(ctx)
		},
	})
}
