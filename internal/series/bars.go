// Package series reads price bars and return matrices from CSV files, the
// format historical data arrives in from outside the simulator.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

var barColumns = []string{"date", "open", "high", "low", "close", "volume"}

// ParseDate accepts ISO dates, RFC 3339 timestamps and a few common variants
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ReadBars parses CSV with a header naming at least date, open, high, low,
// close and volume (any order, case-insensitive; other columns are ignored).
// Bars are returned in ascending date order and each one is validated.
func ReadBars(r io.Reader, symbol, interval string) ([]core.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.ErrNoData
		}
		return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("reading header: %w", err))
	}
	idx, err := columnIndex(header, barColumns)
	if err != nil {
		return nil, err
	}

	var bars []core.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("line %d: %w", line, err))
		}

		bar, err := parseBar(rec, idx)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("line %d: %w", line, err))
		}
		bar.Symbol = symbol
		bar.Interval = interval
		if err := bar.Validate(); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, core.ErrNoData
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Equal(bars[i-1].Time) {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("duplicate bar for %s", bars[i].Time.Format("2006-01-02")))
		}
	}
	return bars, nil
}

// LoadBars reads bars from a CSV file
func LoadBars(path, symbol, interval string) ([]core.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ReadBars(f, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

func parseBar(rec []string, idx map[string]int) (core.OHLCV, error) {
	var bar core.OHLCV
	t, err := ParseDate(rec[idx["date"]])
	if err != nil {
		return bar, err
	}
	bar.Time = t

	prices := []struct {
		name string
		dst  *float64
	}{{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close}}
	for _, p := range prices {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[p.name]]), 64)
		if err != nil {
			return bar, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = v
	}

	// volume sometimes arrives as a float, e.g. "1200.0"
	vol, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["volume"]]), 64)
	if err != nil {
		return bar, fmt.Errorf("volume: %w", err)
	}
	bar.Volume = int64(vol)
	return bar, nil
}

func columnIndex(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("missing column %q", col))
		}
	}
	return idx, nil
}
