package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/ledger"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/statutory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/wage"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rules"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/wageclient"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/file"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	auditService "github.com/cmlabs-hris/payroll-engine-go/internal/service/audit"
	debtService "github.com/cmlabs-hris/payroll-engine-go/internal/service/debt"
	ledgerService "github.com/cmlabs-hris/payroll-engine-go/internal/service/ledger"
	payrunService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payrun"
	statutoryService "github.com/cmlabs-hris/payroll-engine-go/internal/service/statutory"
	validationService "github.com/cmlabs-hris/payroll-engine-go/internal/service/validation"
	wageService "github.com/cmlabs-hris/payroll-engine-go/internal/service/wage"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"
)

const version = "v1.0.0"

// stores groups every repository behind the selected backend.
type stores struct {
	payrun     payrunService.Repositories
	debts      debt.DebtRepository
	ledgers    ledger.LedgerRepository
	statutory  statutory.Provider
	transactor database.Transactor
	close      func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Payroll engine stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, _ := config.ParseLogLevel(cfg.App.LogLevel)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", cfg.App.Env),
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.Statutory.Source == config.StatutoryFromFile {
		provider, err := file.LoadStatutoryFile(cfg.Statutory.File)
		if err != nil {
			return fmt.Errorf("failed to load statutory file: %w", err)
		}
		st.statutory = provider
	}

	locker, closeLocker := newLocker(ctx, cfg.Redis)
	defer closeLocker()

	writer, err := newAuditWriter(cfg.Audit)
	if err != nil {
		return err
	}
	hub := sse.NewHub(0)
	sink := auditService.NewSink(auditService.NewStreamWriter(writer, hub), auditService.Config{
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
	})
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("Failed to close audit sink", "error", err)
		}
	}()

	var calculator wage.Calculator
	if cfg.Payroll.WageServiceURL != "" {
		opts := wageclient.DefaultOptions()
		opts.Timeout = cfg.Payroll.WageTimeout
		if cfg.Payroll.WageClientID != "" {
			opts.Credentials = &clientcredentials.Config{
				ClientID:     cfg.Payroll.WageClientID,
				ClientSecret: cfg.Payroll.WageClientSecret,
				TokenURL:     cfg.Payroll.WageTokenURL,
				Scopes:       cfg.Payroll.WageScopes,
			}
		}
		calculator = wageclient.New(cfg.Payroll.WageServiceURL, opts)
		slog.Info("Using remote wage service", "url", cfg.Payroll.WageServiceURL)
	} else {
		calculator = wageService.NewStructureCalculator()
		slog.Info("Using built-in structure calculator")
	}

	engine, err := rules.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create rules engine: %w", err)
	}

	gate := statutoryService.NewGateService(st.statutory)
	validationSvc := validationService.NewValidationService(st.payrun.Runs, st.payrun.Payslips)
	ledgerSvc := ledgerService.NewLedgerService(st.ledgers, st.payrun.Runs, st.payrun.Payslips, st.payrun.Components, st.transactor, sink)
	payrunSvc := payrunService.NewPayrunService(
		st.payrun,
		gate,
		calculator,
		validationSvc,
		ledgerSvc,
		engine,
		st.transactor,
		sink,
		payrunService.Config{Workers: cfg.Payroll.Workers, RunTimeout: cfg.Payroll.RunTimeout},
	)
	debtSvc := debtService.NewDebtService(st.debts, st.transactor, locker, sink)

	scheduler := cron.NewScheduler()
	cron.NewStatutoryJobs(st.statutory, gate, sink).RegisterJobs(scheduler, cfg.Statutory.WatchInterval)
	scheduler.Start()
	defer scheduler.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{AppEnv: cfg.App.Env, Version: version, AllowedOrigins: cfg.App.AllowedOrigins},
		JWTService,
		appHTTP.Handlers{
			Payrun:    appHTTP.NewPayrunHandler(payrunSvc, validationSvc, ledgerSvc),
			Debt:      appHTTP.NewDebtHandler(debtSvc),
			Statutory: appHTTP.NewStatutoryHandler(gate),
			Events:    appHTTP.NewEventHandler(hub),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Payroll.RunTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.App.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.App.Store == config.StoreMemory {
		slog.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		if cfg.App.DemoCompanyID != "" {
			ids := fixtures.SeedCompany(store, cfg.App.DemoCompanyID, time.Now().UTC())
			slog.Info("Seeded demo company",
				"company_id", ids.CompanyID,
				"period_id", ids.PeriodID,
				"employees", len(ids.EmployeeIDs),
			)
		}
		return &stores{
			payrun: payrunService.Repositories{
				Runs:        store.Runs(),
				Payslips:    store.Payslips(),
				Periods:     store.Periods(),
				Adjustments: store.Adjustments(),
				Components:  store.Components(),
				Debts:       store.Debts(),
				Roster:      store.Roster(),
			},
			debts:      store.Debts(),
			ledgers:    store.Ledgers(),
			statutory:  store.Statutory(),
			transactor: store,
			close:      func() {},
		}, nil
	}

	if cfg.App.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL()); err != nil {
			return nil, err
		}
	}
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	debtRepo := postgresql.NewDebtRepository(db)
	return &stores{
		payrun: payrunService.Repositories{
			Runs:        postgresql.NewRunRepository(db),
			Payslips:    postgresql.NewPayslipRepository(db),
			Periods:     postgresql.NewPeriodRepository(db),
			Adjustments: postgresql.NewAdjustmentRepository(db),
			Components:  postgresql.NewComponentRepository(db),
			Debts:       debtRepo,
			Roster:      postgresql.NewRosterProvider(db),
		},
		debts:      debtRepo,
		ledgers:    postgresql.NewLedgerRepository(db),
		statutory:  postgresql.NewStatutoryProvider(db),
		transactor: postgresql.NewTransactor(db),
		close:      db.Close,
	}, nil
}

func newLocker(ctx context.Context, cfg config.RedisConfig) (lock.Locker, func()) {
	if cfg.Addr == "" {
		slog.Info("Using in-process debt locker")
		return lock.NewLocalLocker(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis ping failed; locks will retry on use", "addr", cfg.Addr, "error", err)
	}
	slog.Info("Using redis debt locker", "addr", cfg.Addr)
	return lock.NewRedisLocker(client, lock.DefaultOptions()), func() { _ = client.Close() }
}

func newAuditWriter(cfg config.AuditConfig) (audit.Writer, error) {
	if cfg.AMQPURL == "" {
		return auditService.NewLogWriter(slog.Default()), nil
	}
	w, err := auditService.DialAMQP(cfg.AMQPURL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit writer: %w", err)
	}
	return w, nil
}
