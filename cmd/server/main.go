package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tonywei17/classroom-billing/internal/billing"
	"github.com/tonywei17/classroom-billing/internal/config"
	"github.com/tonywei17/classroom-billing/internal/document"
	httpserver "github.com/tonywei17/classroom-billing/internal/interfaces/http"
	"github.com/tonywei17/classroom-billing/internal/repository"
	"github.com/tonywei17/classroom-billing/internal/service"
	"github.com/tonywei17/classroom-billing/pkg/database"
	"github.com/tonywei17/classroom-billing/pkg/utils"
)

// serverLogger adapts the zap sugared logger to the HTTP server's interface.
type serverLogger struct {
	s *zap.SugaredLogger
}

func (l serverLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l serverLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func main() {
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting classroom billing engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("db", cfg.Database.Path))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	roundPolicy, err := billing.ParseRoundPolicy(cfg.Billing.RoundPolicy)
	if err != nil {
		logger.Fatal("Invalid round policy", zap.Error(err))
	}

	// Repositories
	membershipRepo := repository.NewMembershipRepository(db.DB, logger)
	batchRepo := repository.NewImportBatchRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	departmentRepo := repository.NewDepartmentRepository(db.DB, logger)
	orderRepo := repository.NewOrderRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)

	// Services
	importService := service.NewImportService(db, batchRepo, membershipRepo, logger)
	summaryService := service.NewSummaryService(membershipRepo, departmentRepo, logger)
	reconcileService := service.NewReconcileService(invoiceRepo, departmentRepo, membershipRepo, expenseRepo, logger)
	invoiceService := service.NewInvoiceService(db, invoiceRepo, departmentRepo, membershipRepo, expenseRepo, orderRepo, cfg.Billing.TaxRate, roundPolicy, logger)

	renderer := document.NewRenderer(cfg.Billing.IssuerName, cfg.Billing.IssuerAddress, logger)
	documentService := service.NewDocumentService(invoiceRepo, departmentRepo, renderer, cfg.Document.OutputDir, logger)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			MaxUploadMB:  cfg.Server.MaxUploadMB,
		},
		importService,
		summaryService,
		reconcileService,
		invoiceService,
		documentService,
		serverLogger{logger.Sugar()},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
