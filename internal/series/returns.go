package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/portfolio"
)

// ReadReturns parses a return matrix: one column per asset, one row per
// period, values as fractions (0.01 is 1%). A leading "date" column is
// skipped.
func ReadReturns(r io.Reader) (portfolio.Returns, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.ErrNoData
		}
		return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("reading header: %w", err))
	}

	first := 0
	if strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		first = 1
	}
	assets := make([]string, 0, len(header)-first)
	out := make(portfolio.Returns, len(header)-first)
	for _, h := range header[first:] {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("empty asset name in header"))
		}
		if _, dup := out[name]; dup {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("asset %s listed twice", name))
		}
		out[name] = nil
		assets = append(assets, name)
	}
	if len(assets) == 0 {
		return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("no asset columns"))
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("line %d: %w", line, err))
		}
		for i, asset := range assets {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[first+i]), 64)
			if err != nil {
				return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("line %d, %s: %w", line, asset, err))
			}
			out[asset] = append(out[asset], v)
		}
	}
	if len(out[assets[0]]) == 0 {
		return nil, core.ErrNoData
	}
	return out, nil
}

// LoadReturns reads a return matrix from a CSV file
func LoadReturns(path string) (portfolio.Returns, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	returns, err := ReadReturns(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return returns, nil
}

// SimpleReturns converts closing prices into period-over-period returns
func SimpleReturns(bars []core.OHLCV) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		out[i-1] = bars[i].Close/bars[i-1].Close - 1
	}
	return out
}
