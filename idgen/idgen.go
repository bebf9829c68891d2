// Package idgen provides deterministic-friendly ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// New returns a sequential generator whose first emitted ID is "1". IDs from
// a sequential generator are stable across runs, which keeps traces
// comparable.
func New() Generator {
	return &sequentialGenerator{}
}

// NewParallel returns a generator that can be shared by goroutines without
// coordination. The IDs are not deterministic.
func NewParallel() Generator {
	return parallelGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.next, 1), 10)
}

type parallelGenerator struct{}

func (parallelGenerator) Generate() string {
	return xid.New().String()
}
