package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/config"
	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/logger"
	"github.com/ksfraser/WealthSystem-sub021/internal/metrics"
	"github.com/ksfraser/WealthSystem-sub021/internal/storage/archive"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy/builtin"
)

// env is what every subcommand needs: configuration, logging, metrics, the
// strategy registry and the optional report archive
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *metrics.Registry
	registry *strategy.Registry
	archive  *archive.Archive
}

func setup() (*env, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	opts := cfg.Log
	if debug {
		opts = logger.Options{Development: true, Level: "debug"}
	}
	log, err := logger.New(opts)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	e := &env{
		cfg:      cfg,
		log:      log,
		registry: strategy.NewRegistry(log),
	}
	builtin.Register(e.registry)

	if cfg.Metrics.Enabled {
		e.metrics = metrics.NewRegistry()
	}
	if cfg.Archive.Enabled {
		store, err := archive.Open(cfg.Archive.Config)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		e.archive = archive.New(store, log)
	}
	return e, nil
}

// context cancelled on SIGINT/SIGTERM
func (e *env) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// finish archives the report if configured and flushes metrics
func (e *env) finish(ctx context.Context, kind, id string, report any) error {
	if e.archive != nil {
		if _, err := e.archive.Save(ctx, kind, id, report); err != nil {
			return fmt.Errorf("archiving report: %w", err)
		}
	}
	if e.metrics != nil {
		if err := e.metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		e.log.Debug("metrics written", zap.String("path", e.cfg.Metrics.Textfile))
	}
	_ = e.log.Sync()
	return nil
}

// parseParams turns repeated name=value flags into a ParameterSet
func parseParams(pairs []string) (core.ParameterSet, error) {
	ps := make(core.ParameterSet, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q: expected name=value", pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		ps[strings.TrimSpace(name)] = v
	}
	return ps, nil
}

// parseRange parses optional YYYY-MM-DD bounds; empty means open-ended
func parseRange(from, to string) (start, end time.Time, err error) {
	if from != "" {
		if start, err = time.Parse("2006-01-02", from); err != nil {
			return start, end, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if to != "" {
		if end, err = time.Parse("2006-01-02", to); err != nil {
			return start, end, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
