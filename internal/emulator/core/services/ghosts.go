package services

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"ride-sim/internal/emulator/core/domain/model"

	"github.com/paulmach/orb"
)

const (
	DefaultGhostCount    = 100
	DefaultGhostInterval = time.Second
	DefaultGhostStep     = 2
)

// DefaultGhostBounds is the square ghosts are spawned in and kept inside.
// X is longitude, Y is latitude.
var DefaultGhostBounds = orb.Bound{Min: orb.Point{-500, -500}, Max: orb.Point{500, 500}}

// GhostLayer is a set of decorative chairs random-walking inside bounds.
// They never take rides; they only make the map look busy.
type GhostLayer struct {
	bounds   orb.Bound
	step     int
	interval time.Duration

	mu      sync.Mutex
	rnd     *rand.Rand
	ghosts  []model.Ghost
	enabled bool
	walk    *Task
}

func NewGhostLayer(count int, bounds orb.Bound, step int, interval time.Duration, rnd *rand.Rand) *GhostLayer {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g := &GhostLayer{bounds: bounds, step: step, interval: interval, rnd: rnd}
	g.ghosts = make([]model.Ghost, count)
	for i := range g.ghosts {
		g.ghosts[i] = model.Ghost{
			ID:    "simulate" + strconv.Itoa(i),
			Model: strconv.Itoa(i),
			Name:  "ghost",
			Coordinate: model.Coordinate{
				Latitude:  g.randomIn(int(bounds.Bottom()), int(bounds.Top())),
				Longitude: g.randomIn(int(bounds.Left()), int(bounds.Right())),
			},
		}
	}
	return g
}

// SetEnabled starts or stops the walk. Enabling walks once right away.
func (g *GhostLayer) SetEnabled(ctx context.Context, enabled bool) {
	g.mu.Lock()
	if g.enabled == enabled {
		g.mu.Unlock()
		return
	}
	g.enabled = enabled
	walk := g.walk
	g.walk = nil
	if enabled {
		g.stepLocked()
		g.walk = Every(ctx, g.interval, func(context.Context) { g.Walk() })
	}
	g.mu.Unlock()

	walk.Stop()
}

func (g *GhostLayer) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// Walk moves every ghost by up to step on each axis.
func (g *GhostLayer) Walk() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stepLocked()
}

func (g *GhostLayer) stepLocked() {
	for i := range g.ghosts {
		c := &g.ghosts[i].Coordinate
		c.Latitude = clamp(c.Latitude+g.randomIn(-g.step, g.step), int(g.bounds.Bottom()), int(g.bounds.Top()))
		c.Longitude = clamp(c.Longitude+g.randomIn(-g.step, g.step), int(g.bounds.Left()), int(g.bounds.Right()))
	}
}

// Ghosts returns a copy of the layer, or nothing while it is disabled.
func (g *GhostLayer) Ghosts() []model.Ghost {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.enabled {
		return nil
	}
	return append([]model.Ghost(nil), g.ghosts...)
}

func (g *GhostLayer) Stop() {
	g.mu.Lock()
	walk := g.walk
	g.walk = nil
	g.enabled = false
	g.mu.Unlock()
	walk.Stop()
}

// randomIn returns an int in [lo, hi].
func (g *GhostLayer) randomIn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.IntN(hi-lo+1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
