package core

import (
	"math"
	"sort"
)

// ParameterSet maps parameter names to numeric values. It configures
// strategies and is the unit the optimizers search over.
type ParameterSet map[string]float64

// Clone returns an independent copy of the set
func (ps ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order
func (ps ParameterSet) Names() []string {
	names := make([]string, 0, len(ps))
	for k := range ps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Float returns the named value or def when absent
func (ps ParameterSet) Float(name string, def float64) float64 {
	if v, ok := ps[name]; ok {
		return v
	}
	return def
}

// Int returns the named value rounded to the nearest integer, or def when absent
func (ps ParameterSet) Int(name string, def int) int {
	if v, ok := ps[name]; ok {
		return int(math.Round(v))
	}
	return def
}

// Bool treats any non-zero value as true
func (ps ParameterSet) Bool(name string, def bool) bool {
	if v, ok := ps[name]; ok {
		return v != 0
	}
	return def
}

// Merge returns a copy of ps overlaid with the values from other
func (ps ParameterSet) Merge(other ParameterSet) ParameterSet {
	out := ps.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}
