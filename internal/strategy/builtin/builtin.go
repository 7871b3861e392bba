// Package builtin registers the bundled strategies
package builtin

import (
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy/ma_crossover"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy/momentum"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy/turtle"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy/vwap"
)

// Register adds every bundled strategy factory to r
func Register(r *strategy.Registry) {
	r.Register(momentum.Name, momentum.Factory)
	r.Register(vwap.Name, vwap.Factory)
	r.Register(ma_crossover.Name, ma_crossover.Factory)
	r.Register(turtle.Name, turtle.Factory)
}
