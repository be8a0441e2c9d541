// Package optim trains networks without gradients.
//
// LocalSearch follows "Derivative-Free Optimization of Neural Networks
// using Local Search": each step nudges a small batch of parameters by
// uniform noise, keeps the change if the loss improved and reverts it
// otherwise. A penalty added to the best loss after every step slowly
// lowers the bar so the search keeps moving.
package optim

import (
	"errors"
	"fmt"
	"math"

	"autopilot-ng/internal/nn"
)

var (
	ErrNotAllocated = errors.New("optim: memory not allocated")
	ErrNoParameters = errors.New("optim: net has no parameters")
)

// Rand is the randomness a step needs.
type Rand interface {
	// Intn returns a value in [lo, hi).
	Intn(lo, hi int) int
	// Float returns a value in [lo, hi).
	Float(lo, hi float32) float32
}

// LossFunc evaluates the net, typically by running a Runner over a batch
// of samples. Lower is better.
type LossFunc func(net *nn.Net[float32]) float32

// Options configures a LocalSearch.
type Options struct {
	// BatchSize is how many parameters each step perturbs.
	BatchSize int
	NoiseMin  float32
	NoiseMax  float32
	// Penalty is added to the best loss after every step.
	Penalty float32
}

func DefaultOptions() Options {
	return Options{BatchSize: 2, NoiseMin: -0.0625, NoiseMax: 0.0625, Penalty: 0}
}

// Stats counts steps since AllocMemory.
type Stats struct {
	Steps    uint64
	Accepted uint64
}

type LocalSearch struct {
	net  *nn.Net[float32]
	opts Options

	bestLoss float32
	best     []float32
	indices  []int
	batch    int

	lastAccepted bool
	stats        Stats
}

func New(net *nn.Net[float32], opts Options) *LocalSearch {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &LocalSearch{net: net, opts: opts, bestLoss: float32(math.Inf(1))}
}

// AllocMemory snapshots the current parameters as the best known and
// prepares the index permutation. It must succeed before Step is called.
func (o *LocalSearch) AllocMemory() error {
	params := o.net.Parameters()
	if len(params) == 0 {
		return ErrNoParameters
	}
	o.best = append(make([]float32, 0, len(params)), params...)
	o.indices = make([]int, len(params))
	for i := range o.indices {
		o.indices[i] = i
	}
	o.batch = 0
	o.bestLoss = float32(math.Inf(1))
	o.stats = Stats{}
	return nil
}

// ReleaseMemory drops the snapshot and permutation.
func (o *LocalSearch) ReleaseMemory() {
	o.best = nil
	o.indices = nil
}

// BestLoss returns the penalized best loss Step compares against.
func (o *LocalSearch) BestLoss() float32 { return o.bestLoss }

// LastAccepted reports whether the most recent step kept its change.
func (o *LocalSearch) LastAccepted() bool { return o.lastAccepted }

func (o *LocalSearch) Stats() Stats { return o.stats }

// Step perturbs the next batch of parameters, evaluates loss and either
// keeps the change or restores the best parameters. It returns the loss of
// the perturbed net.
func (o *LocalSearch) Step(rng Rand, loss LossFunc) (float32, error) {
	if o.best == nil {
		return 0, ErrNotAllocated
	}
	params := o.net.Parameters()
	if len(params) != len(o.best) {
		return 0, fmt.Errorf("optim: net has %d parameters, snapshot %d", len(params), len(o.best))
	}

	if o.batch == 0 {
		o.shuffle(rng)
	}

	lo := o.batch * o.opts.BatchSize
	hi := min(lo+o.opts.BatchSize, len(params))
	for _, idx := range o.indices[lo:hi] {
		params[idx] += rng.Float(o.opts.NoiseMin, o.opts.NoiseMax)
	}

	l := loss(o.net)
	o.stats.Steps++
	if l < o.bestLoss {
		o.bestLoss = l
		copy(o.best, params)
		o.lastAccepted = true
		o.stats.Accepted++
	} else {
		copy(params, o.best)
		o.lastAccepted = false
	}
	o.bestLoss += o.opts.Penalty

	o.batch++
	if o.batch*o.opts.BatchSize >= len(params) {
		o.batch = 0
	}
	return l, nil
}

// shuffle permutes the parameter indices.
func (o *LocalSearch) shuffle(rng Rand) {
	n := len(o.indices)
	for i := 0; i < n-1; i++ {
		j := rng.Intn(i, n)
		o.indices[i], o.indices[j] = o.indices[j], o.indices[i]
	}
}
