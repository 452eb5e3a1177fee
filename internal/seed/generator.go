// Package seed produces the integer seeds handed to the simulator.
//
// Two strategies are available. Stateful draws from a PRNG that is seeded
// once from the OS entropy source. Noise derives every seed from its
// position and a single run-level entropy value, so any position can be
// evaluated on its own, in any order, in parallel.
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync"

	"slimsweep/internal/errs"
)

// Width is the bit width of generated seeds.
type Width int

const (
	Bits32 Width = 32
	Bits64 Width = 64
)

// ParseWidth accepts 32 or 64.
func ParseWidth(bits int) (Width, error) {
	switch bits {
	case 32:
		return Bits32, nil
	case 64:
		return Bits64, nil
	default:
		return 0, errs.Configf("unsupported seed width %d (want 32 or 64)", bits)
	}
}

// Generator produces a sequence of n seeds.
type Generator interface {
	Name() string
	Width() Width
	Entropy() uint64
	Generate(n int) ([]uint64, error)
}

// Strategy names accepted by New.
const (
	StrategyStateful = "stateful"
	StrategyNoise    = "noise"
)

type options struct {
	entropy    uint64
	hasEntropy bool
}

// Option configures a Generator.
type Option func(*options)

// WithEntropy pins the run-level entropy value instead of reading it from
// the OS.
func WithEntropy(e uint64) Option {
	return func(o *options) {
		o.entropy = e
		o.hasEntropy = true
	}
}

var entropySource = func() (uint64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func resolveEntropy(opts []Option) (uint64, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasEntropy {
		return o.entropy, nil
	}
	e, err := entropySource()
	if err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return e, nil
}

// New builds the generator for the named strategy.
func New(strategy string, width Width, opts ...Option) (Generator, error) {
	if width != Bits32 && width != Bits64 {
		return nil, errs.Configf("unsupported seed width %d (want 32 or 64)", width)
	}
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case StrategyStateful:
		return NewStateful(width, opts...)
	case "", StrategyNoise:
		return NewNoise(width, opts...)
	default:
		return nil, errs.Configf("unknown seed strategy %q (want %s or %s)", strategy, StrategyStateful, StrategyNoise)
	}
}

// Stateful draws uniformly from [1, MAX-1] where MAX is the largest signed
// value of the width; 0 and MAX are never produced.
type Stateful struct {
	width   Width
	entropy uint64
	rng     *rand.Rand
}

func NewStateful(width Width, opts ...Option) (*Stateful, error) {
	e, err := resolveEntropy(opts)
	if err != nil {
		return nil, err
	}
	// Second PCG word is derived so a single 64-bit entropy value pins the
	// whole stream.
	src := rand.NewPCG(e, e^0x9E3779B97F4A7C15)
	return &Stateful{width: width, entropy: e, rng: rand.New(src)}, nil
}

func (s *Stateful) Name() string    { return StrategyStateful }
func (s *Stateful) Width() Width    { return s.width }
func (s *Stateful) Entropy() uint64 { return s.entropy }

// Max returns the exclusive sentinel upper bound for the width.
func (s *Stateful) Max() uint64 {
	if s.width == Bits64 {
		return math.MaxInt64
	}
	return math.MaxInt32
}

func (s *Stateful) Generate(n int) ([]uint64, error) {
	if n < 0 {
		return nil, errs.Configf("seed count must be >= 0, got %d", n)
	}
	span := s.Max() - 1 // values 1..MAX-1
	out := make([]uint64, n)
	for i := range out {
		out[i] = 1 + s.rng.Uint64N(span)
	}
	return out, nil
}

// Noise evaluates NoiseAt for each position. It holds no mutable state.
type Noise struct {
	width   Width
	entropy uint64
	workers int
}

func NewNoise(width Width, opts ...Option) (*Noise, error) {
	e, err := resolveEntropy(opts)
	if err != nil {
		return nil, err
	}
	if width == Bits32 {
		e = uint64(uint32(e))
	}
	return &Noise{width: width, entropy: e, workers: runtime.GOMAXPROCS(0)}, nil
}

func (g *Noise) Name() string    { return StrategyNoise }
func (g *Noise) Width() Width    { return g.width }
func (g *Noise) Entropy() uint64 { return g.entropy }

// At returns the seed for position i.
func (g *Noise) At(i int) uint64 {
	return NoiseAt(g.width, i, g.entropy)
}

const noiseChunk = 4096

func (g *Noise) Generate(n int) ([]uint64, error) {
	if n < 0 {
		return nil, errs.Configf("seed count must be >= 0, got %d", n)
	}
	out := make([]uint64, n)
	if n <= noiseChunk || g.workers <= 1 {
		for i := range out {
			out[i] = g.At(i)
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += noiseChunk {
		end := min(start+noiseChunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i] = g.At(i)
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}
