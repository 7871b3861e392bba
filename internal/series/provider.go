package series

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// FileProvider serves history from <dir>/<symbol>.csv, one file per symbol
type FileProvider struct {
	dir    string
	logger *zap.Logger
}

// NewFileProvider creates a provider rooted at dir
func NewFileProvider(dir string, logger *zap.Logger) *FileProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileProvider{dir: dir, logger: logger}
}

// Path returns the file backing symbol
func (p *FileProvider) Path(symbol string) string {
	return filepath.Join(p.dir, symbol+".csv")
}

// FetchHistory returns the bars dated within [start, end]. A zero start or
// end leaves that side open.
func (p *FileProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" || filepath.Base(symbol) != symbol {
		return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("invalid symbol %q", symbol))
	}

	path := p.Path(symbol)
	bars, err := LoadBars(path, symbol, interval)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no history file for %s", symbol))
		}
		return nil, err
	}

	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s has no bars between %s and %s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	p.logger.Debug("loaded history",
		zap.String("symbol", symbol),
		zap.String("path", path),
		zap.Int("bars", len(out)),
	)
	return out, nil
}
