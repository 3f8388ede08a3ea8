package rules

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/roboos-network/roboos/internal/domain"
)

// NewSeeded returns a deterministic source. Equal seeds give equal streams.
func NewSeeded(seed uint64) domain.RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewEntropy returns a source seeded from the operating system.
func NewEntropy() domain.RandomSource {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// Scripted replays a fixed sequence of draws, then yields 0 forever.
// Not safe for concurrent use.
type Scripted struct {
	draws []float64
	next  int
}

// NewScripted returns a source that yields draws in order.
func NewScripted(draws ...float64) *Scripted {
	return &Scripted{draws: draws}
}

// Float64 returns the next scripted draw.
func (s *Scripted) Float64() float64 {
	if s.next >= len(s.draws) {
		return 0
	}
	v := s.draws[s.next]
	s.next++
	return v
}

// Used returns how many draws have been consumed.
func (s *Scripted) Used() int { return s.next }

// Replay records the draws it passes through so a computation can be
// redone against a newer base with the very same randomness.
type Replay struct {
	src  domain.RandomSource
	log  []float64
	head int
}

// NewReplay wraps src.
func NewReplay(src domain.RandomSource) *Replay {
	return &Replay{src: src}
}

// Float64 returns a recorded draw when rewound, else a fresh one.
func (r *Replay) Float64() float64 {
	if r.head < len(r.log) {
		v := r.log[r.head]
		r.head++
		return v
	}
	v := r.src.Float64()
	r.log = append(r.log, v)
	r.head++
	return v
}

// Rewind restarts playback from the first recorded draw.
func (r *Replay) Rewind() { r.head = 0 }

// Reset forgets recorded draws; the next computation draws fresh.
func (r *Replay) Reset() {
	r.log = r.log[:0]
	r.head = 0
}
