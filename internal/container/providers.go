package container

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/application/service"
	"github.com/garyjia/training-reimbursement/internal/application/workflow"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/export"
	infraLark "github.com/garyjia/training-reimbursement/internal/infrastructure/external/lark"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/storage"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/worker"
	httpserver "github.com/garyjia/training-reimbursement/internal/interfaces/http"
	"github.com/garyjia/training-reimbursement/migrations"
	"github.com/garyjia/training-reimbursement/pkg/database"
	"github.com/garyjia/training-reimbursement/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending migrations.
// The embedded migrations are used unless cfg.MigrationsDir is set.
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
	}, logger)
	if err != nil {
		return nil, err
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}

	if err := database.NewMigrator(db, logger).RunMigrations(source); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:      repository.NewRequestRepository(sqlDB, logger),
		Users:         repository.NewUserRepository(sqlDB, logger),
		Departments:   repository.NewDepartmentRepository(sqlDB, logger),
		Notifications: repository.NewNotificationRepository(sqlDB, logger),
		History:       repository.NewHistoryRepository(sqlDB, logger),
	}, nil
}

// ProvideMessenger creates the Lark chat sender, or returns nil when chat push is disabled.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) port.MessageSender {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveIDType: cfg.ReceiveIDType,
	}, logger)
	return infraLark.NewMessenger(client, logger)
}

// ProvideStorage creates the blob store selected by cfg.Driver.
func ProvideStorage(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch cfg.Driver {
	case StorageDriverLocal, "":
		if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil
	case StorageDriverS3:
		s3Storage, err := storage.NewS3FileStorage(ctx, storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			UseSSL:          cfg.S3.UseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s3Storage, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	Messenger port.MessageSender
	Logger    *zap.Logger
}

// ProvideServices creates the notification and statement services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(deps.Logger)
	return &ServiceBundle{
		Notification: service.NewNotificationService(
			deps.Repos.Notifications,
			deps.Repos.Users,
			deps.Messenger,
			kv,
		),
		Statement: service.NewStatementService(
			deps.Repos.Users,
			deps.Repos.Requests,
			export.NewStatementWriter(deps.Logger),
			kv,
		),
	}, nil
}

// WorkflowDeps holds dependencies for creating the workflow engine.
type WorkflowDeps struct {
	Repos     *RepositoryBundle
	Notifier  port.Notifier
	Storage   port.FileStorage
	TxManager port.TransactionManager
	Config    *WorkflowConfig
	Logger    *zap.Logger
}

// ProvideWorkflowEngine creates the approval workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Notifier == nil || deps.Storage == nil || deps.TxManager == nil {
		return nil, fmt.Errorf("notifier, storage and transaction manager are required")
	}

	var opts []workflow.EngineOption
	if cfg := deps.Config; cfg != nil {
		if cfg.ResponseWindow > 0 {
			opts = append(opts, workflow.WithResponseWindow(cfg.ResponseWindow))
		}
		if cfg.OrgCap > 0 {
			opts = append(opts, workflow.WithOrgCap(cfg.OrgCap))
		}
		if cfg.UrgentWindow > 0 {
			opts = append(opts, workflow.WithUrgentWindow(cfg.UrgentWindow))
		}
		if cfg.BenefitsDepartment != "" {
			opts = append(opts, workflow.WithBenefitsDepartment(cfg.BenefitsDepartment))
		}
	}

	return workflow.NewEngine(
		workflow.Repositories{
			Requests:    deps.Repos.Requests,
			Users:       deps.Repos.Users,
			Departments: deps.Repos.Departments,
			History:     deps.Repos.History,
		},
		deps.Notifier,
		deps.Storage,
		deps.TxManager,
		utils.Component(deps.Logger, "workflow"),
		opts...,
	), nil
}

// ProvideWorkers creates the worker manager with the deadline sweeper registered.
func ProvideWorkers(engine workflow.WorkflowEngine, schedule string, logger *zap.Logger) (*worker.WorkerManager, error) {
	if engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}

	manager := worker.NewWorkerManager(logger)
	manager.Register(worker.NewDeadlineSweeper(engine, schedule, utils.Component(logger, "sweeper")))
	return manager, nil
}

var (
	_ service.Logger    = (*utils.KVLogger)(nil)
	_ httpserver.Logger = (*utils.KVLogger)(nil)
)
