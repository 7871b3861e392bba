package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/position"
)

func TestDefaultSizingConfig(t *testing.T) {
	config := position.DefaultSizingConfig()

	assert.Equal(t, 1.0, config.PositionSize, "PositionSize should be 1.0")
	assert.Equal(t, 1.0, config.MaxPositionPct, "MaxPositionPct should be 1.0")
	assert.NoError(t, config.Validate())
}

func TestSizer_Size(t *testing.T) {
	sizer := position.NewSizer(position.SizingConfig{PositionSize: 0.5, MaxPositionPct: 0.8})

	tests := []struct {
		name        string
		equity      float64
		cash        float64
		price       float64
		hint        float64
		wantAllowed bool
		wantQty     float64
	}{
		{"default fraction", 10000, 10000, 50, 0, true, 100},
		{"hint overrides fraction", 10000, 10000, 50, 0.2, true, 40},
		{"hint capped", 10000, 10000, 50, 1, true, 160},
		{"limited by cash", 10000, 1000, 50, 0, true, 20},
		{"no cash", 10000, 0, 50, 0, false, 0},
		{"no equity", 0, 100, 50, 0, false, 0},
		{"bad price", 10000, 10000, 0, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sizer.Size(tt.equity, tt.cash, tt.price, tt.hint)
			assert.Equal(t, tt.wantAllowed, res.Allowed)
			assert.InDelta(t, tt.wantQty, res.Quantity, 1e-9)
			if !tt.wantAllowed {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestSizingConfig_Validate(t *testing.T) {
	assert.True(t, core.IsConfigError(position.SizingConfig{PositionSize: 0}.Validate()))
	assert.True(t, core.IsConfigError(position.SizingConfig{PositionSize: 1.2}.Validate()))
	assert.True(t, core.IsConfigError(position.SizingConfig{PositionSize: 0.5, MaxPositionPct: -1}.Validate()))
}
