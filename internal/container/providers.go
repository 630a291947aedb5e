package container

import (
	"database/sql"
	"fmt"
	nethttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/garyjia/staff-evaluation/internal/application/dispatcher"
	"github.com/garyjia/staff-evaluation/internal/application/port"
	"github.com/garyjia/staff-evaluation/internal/application/service"
	"github.com/garyjia/staff-evaluation/internal/application/workflow"
	"github.com/garyjia/staff-evaluation/internal/domain/scoring"
	infraLark "github.com/garyjia/staff-evaluation/internal/infrastructure/external/lark"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/external/notify"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/metrics"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/persistence/repository"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/staff-evaluation/internal/infrastructure/worker"
	"github.com/garyjia/staff-evaluation/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// MetricsBundle holds the Prometheus registry and the recorder built on it.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Recorder port.MetricsRecorder
	Handler  nethttp.Handler
}

// ProvideDatabase opens the database and applies pending migrations.
// Returns DatabaseBundle containing sql.DB and TransactionManager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
// Returns RepositoryBundle containing all repository implementations.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Assignment: repository.NewAssignmentRepository(sqlDB, logger),
		Task:       repository.NewEvaluationTaskRepository(sqlDB, logger),
		Incident:   repository.NewIncidentRepository(sqlDB, logger),
		Transition: repository.NewTransitionRepository(sqlDB, logger),
		Roster:     repository.NewRosterRepository(sqlDB, logger),
		Criteria:   repository.NewCriterionRepository(sqlDB, logger),
	}, nil
}

// ProvideMetrics registers the engine collectors on a fresh registry.
func ProvideMetrics() *MetricsBundle {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsBundle{
		Registry: registry,
		Recorder: metrics.New(registry),
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
}

// ProvideNotifier returns the Lark notifier when enabled and a log-only
// notifier otherwise.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if !cfg.Enabled {
		logger.Info("Lark disabled, incident notifications go to the log")
		return notify.NewLogNotifier(logger), nil
	}

	sdkClient := infraLark.NewSDKClient(infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
	}, logger)

	return infraLark.NewNotifier(sdkClient, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
// Returns dispatcher.Dispatcher implementation.
func ProvideDispatcher(cfg *DispatcherConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	}
	if cfg != nil && cfg.AsyncTimeout > 0 {
		opts = append(opts, dispatcher.WithAsyncTimeout(cfg.AsyncTimeout))
	}

	return dispatcher.NewDispatcher(opts...), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Metrics    port.MetricsRecorder
	Clock      port.Clock
	Evaluation *EvaluationConfig
	Sweep      *SweepConfig
	Logger     *zap.Logger
}

// ProvideServices creates the task engine and all application services, and
// subscribes the escalation emitter to terminal task events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = port.SystemClock{}
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = port.NopMetrics{}
	}
	policy := scoring.DefaultPolicy()
	if deps.Evaluation != nil {
		policy = scoring.Policy{
			Scale:         deps.Evaluation.Scale,
			PassThreshold: deps.Evaluation.PassThreshold,
		}
	}
	sweepOpts := service.SweepOptions{}
	if deps.Sweep != nil {
		sweepOpts.BatchSize = deps.Sweep.BatchSize
		sweepOpts.Concurrency = deps.Sweep.Concurrency
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	engine := workflow.NewEngine(
		repos.Task,
		repos.Transition,
		deps.TxManager,
		workflow.WithClock(clock),
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithMetrics(recorder),
		workflow.WithLogger(serviceLogger),
	)

	validator := service.NewAssignmentValidator(repos.Roster)
	generator := service.NewFanOutGenerator(
		repos.Assignment,
		repos.Task,
		validator,
		deps.TxManager,
		clock,
		recorder,
		deps.Dispatcher,
		serviceLogger,
	)

	escalation := service.NewEscalationEmitter(
		repos.Task,
		repos.Assignment,
		repos.Incident,
		repos.Roster,
		deps.Notifier,
		deps.TxManager,
		clock,
		policy,
		recorder,
		serviceLogger,
	)
	escalation.Register(deps.Dispatcher)

	return &ServiceBundle{
		Validator: validator,
		Generator: generator,
		Assignments: service.NewAssignmentService(
			repos.Assignment,
			repos.Task,
			validator,
			generator,
			engine,
			deps.TxManager,
			clock,
			deps.Dispatcher,
			serviceLogger,
		),
		Lifecycle: service.NewLifecycleEngine(
			repos.Task,
			repos.Assignment,
			repos.Transition,
			repos.Criteria,
			engine,
			deps.TxManager,
			clock,
			policy,
			recorder,
			sweepOpts,
			serviceLogger,
		),
		Escalation: escalation,
		Progress:   service.NewProgressAggregator(repos.Assignment, repos.Task),
	}, nil
}

// ProvideWorkers creates and registers all background workers.
// Returns *worker.WorkerManager with all workers registered but not started.
func ProvideWorkers(cfg *SweepConfig, lifecycle service.LifecycleEngine, logger *zap.Logger) (*worker.WorkerManager, *worker.DeadlineSweeper, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("sweep config is required")
	}
	if lifecycle == nil {
		return nil, nil, fmt.Errorf("lifecycle engine is required")
	}
	if logger == nil {
		return nil, nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(logger)

	sweeper := worker.NewDeadlineSweeper(worker.DeadlineSweeperConfig{
		Interval:   cfg.Interval,
		RunOnStart: cfg.RunOnStart,
	}, lifecycle, logger)
	manager.Register(sweeper)

	return manager, sweeper, nil
}
