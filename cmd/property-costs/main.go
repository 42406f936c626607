package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/property-costs/internal/config"
	"github.com/iwvelando/property-costs/internal/server"
	"github.com/iwvelando/property-costs/internal/session"
	"github.com/iwvelando/property-costs/internal/view"
	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"github.com/iwvelando/property-costs/pkg/output"
	"github.com/iwvelando/property-costs/pkg/snapshot"
	"github.com/iwvelando/property-costs/pkg/tariff"
	"github.com/iwvelando/property-costs/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	// Results go to stdout; keep log lines out of the way.
	config.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// loadConfiguration reads the config file. A missing file at the default
// location is not an error; the built-in defaults apply.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.LoadConfiguration(path)
}

// fieldFlags maps calculator flags onto session fields, in the order they
// are applied.
var fieldFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"price", session.FieldAskingPrice, "asking price, e.g. \"R 1 500 000\""},
	{"loan", session.FieldLoanAmount, "loan amount (defaults to the asking price)"},
	{"rate", session.FieldInterestRateTxt, "interest rate in percent, 5 to 25"},
	{"term", session.FieldLoanTerm, "loan term in years: 10, 15, 20, 25 or 30"},
	{"rates-taxes", session.FieldRatesAndTaxes, "monthly rates and taxes"},
	{"utilities", session.FieldUtilities, "monthly water and electricity"},
	{"levies", session.FieldLevies, "monthly body corporate or HOA levies"},
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	serverConfigLocation := flag.String("server-config", "", "path to a server configuration file (overrides the server section)")
	tariffLocation := flag.String("tariffs", "", "path to a tariff override file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	propertyID := flag.String("property", "", "listing identifier; restores and saves that property's calculator")
	cash := flag.Bool("cash", false, "price a cash purchase without a bond")
	withSchedule := flag.Bool("schedule", false, "include the yearly bond repayment schedule")
	serve := flag.Bool("serve", false, "serve the calculator HTTP API instead of printing one calculation")

	fieldValues := make(map[string]*string, len(fieldFlags))
	for _, f := range fieldFlags {
		fieldValues[f.flag] = flag.String(f.flag, "", f.usage)
	}
	flag.Parse()

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	conf, err := loadConfiguration(*configLocation, explicit["config"])
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	tariffFile := conf.TariffFile
	if *tariffLocation != "" {
		tariffFile = *tariffLocation
	}
	schedule, err := tariff.LoadFile(tariffFile)
	if err != nil {
		logger.Fatal("failed to load tariff schedule",
			zap.String("op", "main"),
			zap.String("path", tariffFile),
			zap.Error(err),
		)
	}
	calculator := costs.NewCalculator(schedule)

	store, closeStore := openStore(conf.Store, logger)
	defer closeStore()
	adapter := snapshot.NewAdapter(store, logger)
	persister := snapshot.NewPersister(adapter, logger, conf.Store.StoreTimeout())
	defer persister.Close()

	if *serve {
		if err := runServer(conf, *serverConfigLocation, logger, server.Dependencies{
			Calculator:   calculator,
			Adapter:      adapter,
			Persister:    persister,
			InitialState: conf.Defaults.InitialState,
		}); err != nil {
			logger.Error("server stopped",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		return
	}

	key := snapshot.StandaloneKey()
	if *propertyID != "" {
		key, err = snapshot.PropertyKey(*propertyID)
		if err != nil {
			logger.Fatal("invalid property identifier",
				zap.String("op", "main"),
				zap.String("property", *propertyID),
				zap.Error(err),
			)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Store.StoreTimeout())
	calc := session.Open(ctx, adapter, key, conf.Defaults.InitialState(0),
		session.WithLogger(logger),
		session.WithCalculator(calculator),
		session.WithPersister(persister),
	)
	cancel()

	if explicit["cash"] {
		calc.ToggleBonded(!*cash)
	}
	for _, f := range fieldFlags {
		if !explicit[f.flag] {
			continue
		}
		if _, err := calc.Apply(f.field, *fieldValues[f.flag]); err != nil {
			logger.Fatal("failed to apply flag",
				zap.String("op", "main"),
				zap.String("flag", f.flag),
				zap.Error(err),
			)
		}
	}

	state := calc.State()
	breakdown, warnings := calculator.Evaluate(state)
	result := output.Result{
		State:     state,
		Breakdown: breakdown,
		Summary:   calculator.Summarize(state),
		Layout:    view.Build(state, calculator),
		Warnings:  warnings,
	}
	if *withSchedule {
		result.Schedule, err = calculator.RepaymentSchedule(state)
		if err != nil {
			logger.Warn("repayment schedule unavailable",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}
	if err := output.Write(os.Stdout, outputFormat, result); err != nil {
		logger.Fatal("failed to write output",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func runServer(conf *config.Configuration, serverConfigPath string, logger *zap.Logger, deps server.Dependencies) error {
	cfg, err := server.FromConfiguration(conf)
	if serverConfigPath != "" {
		cfg, err = server.LoadConfig(serverConfigPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg.BodySizeBytes(), version, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving calculator API",
			zap.String("op", "main.runServer"),
			zap.String("address", cfg.Address),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down calculator API",
		zap.String("op", "main.runServer"),
	)
	return srv.Shutdown(shutdownCtx)
}
