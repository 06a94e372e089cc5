/*
Package qureg simulates an n-qubit register by holding all 2^n complex
amplitudes, split into equal contiguous shards across P cooperating ranks.

Every rank builds its own Register over its own Communicator and then runs
the exact same sequence of calls. Gates on local qubits touch only the
local shard; gates on global qubits swap shards with one partner rank, and
statistics finish with an all-reduce. Nothing checks that ranks stay in
step unless Config.LockstepCheck is on; a rank that skips a call leaves its
peers blocked or computing garbage.
*/
package qureg

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
)

const (
	StyleBase    = "base"
	StyleRandom  = "rand"
	StyleUniform = "++++"

	maxQubits = 62
)

/*
Register is one rank's share of a distributed qubit register.

The local shard holds global indices [rank·D/P, (rank+1)·D/P). Qubit q is
local when q < localBits; otherwise bit q−localBits of the rank number
gives its value for every amplitude on this rank.
*/
type Register struct {
	id        string
	numQubits int
	localBits int
	rank      int
	size      int

	comm    Communicator
	config  *Config
	state   []complex128
	scratch []complex128

	baseIndex uint64
	seed      uint64
}

// Option configures a Register at construction.
type Option func(*Register)

// WithConfig sets the tunables. Every rank must pass an identical Config.
func WithConfig(config *Config) Option {
	return func(r *Register) {
		if config != nil {
			r.config = config
		}
	}
}

// WithBaseIndex selects the basis state for the "base" style.
func WithBaseIndex(index uint64) Option {
	return func(r *Register) {
		r.baseIndex = index
	}
}

// WithSeed seeds the "rand" style at construction. Without it the seed is drawn at random.
func WithSeed(seed uint64) Option {
	return func(r *Register) {
		r.seed = seed
	}
}

/*
	NewRegister constructs this rank's shard of an n-qubit register.

Parameters:
  - numQubits: n, between 1 and 62
  - style: "base", "rand" or "++++"; empty means "base"
  - comm: this rank's Communicator, nil for a single-process register
  - opts: WithConfig, WithBaseIndex, WithSeed

Returns:
  - *Register: the initialized register
  - error: ErrInvalidConfig when the partitioning or style is unusable

Construction of a "rand" register performs a collective reduction, so all
ranks must construct together.
*/
func NewRegister(numQubits int, style string, comm Communicator, opts ...Option) (*Register, error) {
	if comm == nil {
		comm = NewLocalCommunicator()
	}

	r := &Register{
		id:        uuid.NewString(),
		numQubits: numQubits,
		rank:      comm.Rank(),
		size:      comm.Size(),
		comm:      comm,
		config:    NewConfig(),
		seed:      rand.Uint64(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.validatePartition(); err != nil {
		return nil, err
	}

	localSize := uint64(1) << r.localBits
	r.state = make([]complex128, localSize)
	r.scratch = make([]complex128, localSize)

	arg := r.baseIndex
	if style == StyleRandom {
		arg = r.seed
	}

	if err := r.Initialize(style, arg); err != nil {
		return nil, err
	}

	registersLive.Inc()
	errnie.Info(
		"NewRegister - id %s, qubits %d, rank %d/%d, local qubits %d, style %q",
		r.id, r.numQubits, r.rank, r.size, r.localBits, style,
	)

	return r, nil
}

func (r *Register) validatePartition() error {
	if r.numQubits < 1 || r.numQubits > maxQubits {
		return fmt.Errorf("qubit count %d outside [1, %d]: %w", r.numQubits, maxQubits, ErrInvalidConfig)
	}

	if r.size < 1 || r.size&(r.size-1) != 0 {
		return fmt.Errorf("process count %d is not a power of two: %w", r.size, ErrInvalidConfig)
	}

	globalBits := bits.TrailingZeros(uint(r.size))
	if globalBits > r.numQubits {
		return fmt.Errorf(
			"process count %d exceeds dimension 2^%d: %w", r.size, r.numQubits, ErrInvalidConfig,
		)
	}

	if r.rank < 0 || r.rank >= r.size {
		return fmt.Errorf("rank %d outside [0, %d): %w", r.rank, r.size, ErrInvalidConfig)
	}

	r.localBits = r.numQubits - globalBits
	return nil
}

/*
Initialize resets the register in place. "base" puts all weight on the
basis state index, "rand" draws a Haar-random normalized state seeded by
index, and "++++" is the uniform superposition, which ignores index. Each
rank seeds its stream with (index, rank). The "rand" style performs one
reduction.
*/
func (r *Register) Initialize(style string, index uint64) error {
	if err := r.alive(); err != nil {
		return err
	}

	switch style {
	case "", StyleBase:
		if index >= r.Dimension() {
			return fmt.Errorf("base index %d >= dimension %d: %w", index, r.Dimension(), ErrInvalidConfig)
		}

		clear(r.state)
		owner, offset := r.Locate(index)
		if owner == r.rank {
			r.state[offset] = 1
		}
		r.baseIndex = index

	case StyleUniform:
		amp := complex(1/math.Sqrt(float64(r.Dimension())), 0)
		for i := range r.state {
			r.state[i] = amp
		}

	case StyleRandom:
		// Gaussian components make the normalized state uniform on the sphere.
		rng := rand.New(rand.NewPCG(index, uint64(r.rank)))
		for i := range r.state {
			r.state[i] = complex(rng.NormFloat64(), rng.NormFloat64())
		}
		r.seed = index

		if err := r.Normalize(); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown initialization style %q: %w", style, ErrInvalidConfig)
	}

	return nil
}

// Destroy releases the shard. Calling it again does nothing.
func (r *Register) Destroy() {
	if r == nil || r.state == nil {
		return
	}

	r.state = nil
	r.scratch = nil
	registersLive.Dec()

	errnie.Info("Register.Destroy - id %s, rank %d", r.id, r.rank)
}

func (r *Register) alive() error {
	if r == nil || r.state == nil {
		return ErrRegisterDestroyed
	}
	return nil
}

func (r *Register) ID() string        { return r.id }
func (r *Register) NumQubits() int    { return r.numQubits }
func (r *Register) Rank() int         { return r.rank }
func (r *Register) Size() int         { return r.size }
func (r *Register) Dimension() uint64 { return uint64(1) << r.numQubits }

// LocalSize is the number of amplitudes held by this rank, D/P.
func (r *Register) LocalSize() uint64 { return uint64(1) << r.localBits }

/*
ElementAt returns the amplitude of a basis state held on this rank.
Amplitudes owned by another rank yield ErrWrongLocality.
*/
func (r *Register) ElementAt(globalIndex uint64) (complex128, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}

	if globalIndex >= r.Dimension() {
		return 0, fmt.Errorf("index %d >= dimension %d: %w", globalIndex, r.Dimension(), ErrIndexOutOfRange)
	}

	owner, offset := r.Locate(globalIndex)
	if owner != r.rank {
		return 0, fmt.Errorf("index %d lives on rank %d, not %d: %w", globalIndex, owner, r.rank, ErrWrongLocality)
	}

	return r.state[offset], nil
}

// Shard returns the global index of the first local amplitude and a copy of the shard.
func (r *Register) Shard() (uint64, []complex128) {
	if r.alive() != nil {
		return 0, nil
	}
	return uint64(r.rank) << r.localBits, append([]complex128(nil), r.state...)
}

/*
Clone copies this rank's shard into a new Register that shares the same
Communicator. It does not communicate, but every rank has to clone so that
later collective calls on the copy line up.
*/
func (r *Register) Clone() (*Register, error) {
	if err := r.alive(); err != nil {
		return nil, err
	}

	clone := *r
	clone.id = uuid.NewString()
	clone.state = append([]complex128(nil), r.state...)
	clone.scratch = make([]complex128, len(r.scratch))

	registersLive.Inc()
	return &clone, nil
}

/*
Print writes description, a header naming this rank, and one line per
local amplitude labeled with its basis state. Ranks print only their own
shard; gathering a full dump is the caller's business.
*/
func (r *Register) Print(w io.Writer, description string) error {
	if err := r.alive(); err != nil {
		return err
	}

	defer observe("print", time.Now())

	var b strings.Builder

	b.WriteString(description)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "# rank %d of %d, %d qubits, %d local amplitudes\n", r.rank, r.size, r.numQubits, len(r.state))

	base := uint64(r.rank) << r.localBits
	for offset, amp := range r.state {
		label := strconv.FormatUint(base+uint64(offset), 2)
		if pad := r.numQubits - len(label); pad > 0 {
			label = strings.Repeat("0", pad) + label
		}
		fmt.Fprintf(&b, "|%s> : (%.6g, %.6g)\n", label, real(amp), imag(amp))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
