package cli

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/venturelens/venturelens/pkg/config"
	"github.com/venturelens/venturelens/pkg/metrics"
	"github.com/venturelens/venturelens/pkg/pipeline"
	"github.com/venturelens/venturelens/pkg/rules"
	"github.com/venturelens/venturelens/pkg/timeseries"
)

// app bundles everything a command needs for one invocation.
type app struct {
	cfg      *config.Config
	lg       *zap.Logger
	store    timeseries.Store
	ruleSet  *rules.RuleSet
	pipeline *pipeline.Pipeline
}

// buildApp constructs the full stack from configuration.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	lg, err := buildLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg, lg)
	if err != nil {
		return nil, err
	}

	ruleSet, err := loadRules(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	opts := metrics.Options{
		BurnWindowDays:    cfg.Metrics.BurnWindowDays,
		WorkHoursPerDay:   cfg.Metrics.WorkHoursPerDay,
		OfficeCostPerSeat: cfg.Metrics.OfficeCostPerSeat,
	}

	return &app{
		cfg:      cfg,
		lg:       lg,
		store:    store,
		ruleSet:  ruleSet,
		pipeline: pipeline.New(store, ruleSet, opts, lg),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.lg.Warn("store close failed", zap.Error(err))
	}
	a.lg.Sync()
}

// buildLogger creates a production zap logger writing to stderr so
// stdout stays clean for report output.
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func openStore(cfg *config.Config, lg *zap.Logger) (timeseries.Store, error) {
	if cfg.Store.Backend == "sqlite" {
		return timeseries.OpenSQL(cfg.Store.Path, lg)
	}
	return timeseries.NewMemoryStore(lg), nil
}

func loadRules(cfg *config.Config) (*rules.RuleSet, error) {
	if cfg.Rules.Path != "" {
		return rules.LoadFile(cfg.Rules.Path)
	}
	return rules.DefaultRules(), nil
}
