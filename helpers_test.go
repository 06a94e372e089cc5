package qureg

import (
	"context"
	"fmt"
	"math/cmplx"
	"sync"

	"github.com/davecgh/go-spew/spew"
)

const tolerance = 1e-9

// ShouldApproximate compares two complex128 values within tolerance.
func ShouldApproximate(actual any, expected ...any) string {
	a, ok := actual.(complex128)
	if !ok {
		return fmt.Sprintf("expected a complex128, got %T", actual)
	}

	e, ok := expected[0].(complex128)
	if !ok {
		return fmt.Sprintf("expected value must be complex128, got %T", expected[0])
	}

	if cmplx.Abs(a-e) > tolerance {
		return fmt.Sprintf("expected %v to be within %g of %v", a, tolerance, e)
	}
	return ""
}

// ShouldMatchState compares two amplitude vectors element by element.
func ShouldMatchState(actual any, expected ...any) string {
	a, ok := actual.([]complex128)
	if !ok {
		return fmt.Sprintf("expected []complex128, got %T", actual)
	}

	e, ok := expected[0].([]complex128)
	if !ok {
		return fmt.Sprintf("expected value must be []complex128, got %T", expected[0])
	}

	if len(a) != len(e) {
		return fmt.Sprintf("length %d != %d", len(a), len(e))
	}

	for i := range a {
		if cmplx.Abs(a[i]-e[i]) > tolerance {
			return fmt.Sprintf("amplitude %d: %v != %v\nactual:\n%s\nexpected:\n%s", i, a[i], e[i], spew.Sdump(a), spew.Sdump(e))
		}
	}
	return ""
}

// fakeComm reports an arbitrary rank and size and cannot communicate.
type fakeComm struct {
	rank, size int
}

func (f fakeComm) Rank() int { return f.rank }
func (f fakeComm) Size() int { return f.size }

func (f fakeComm) Exchange(int, []complex128, []complex128) error {
	return ErrClusterClosed
}

func (f fakeComm) AllReduceSum(v complex128) (complex128, error) {
	return v, nil
}

/*
runDistributed builds an n-qubit "base" register on every rank of a fresh
cluster, runs fn on each, and assembles the full state from the shards.
*/
func runDistributed(size, n int, config *Config, fn func(r *Register) error) ([]complex128, error) {
	cluster, err := NewCluster(size, config)
	if err != nil {
		return nil, err
	}
	defer cluster.Close()

	full := make([]complex128, 1<<n)

	err = cluster.Run(context.Background(), func(comm Communicator) error {
		r, err := NewRegister(n, StyleBase, comm, WithConfig(config))
		if err != nil {
			return err
		}
		defer r.Destroy()

		if err := fn(r); err != nil {
			return err
		}

		offset, amps := r.Shard()
		copy(full[offset:], amps)
		return nil
	})

	return full, err
}

// perRank collects one value per rank from concurrent goroutines.
type perRank[T any] struct {
	mu     sync.Mutex
	values map[int]T
}

func newPerRank[T any]() *perRank[T] {
	return &perRank[T]{values: make(map[int]T)}
}

func (p *perRank[T]) set(rank int, v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[rank] = v
}

/*
Dense reference kernels, written without sharding, used to check the
engine. Every gate is "apply m to target where all controls are 1".
*/
func refControlled(state []complex128, controls []int, target int, m Matrix) {
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}

	bit := 1 << target
	for i := range state {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		state[i], state[i|bit] = m.apply(state[i], state[i|bit])
	}
}

func refSwap(state []complex128, a, b int) {
	out := make([]complex128, len(state))
	for i := range state {
		bitA, bitB := (i>>a)&1, (i>>b)&1
		j := i &^ (1 << a) &^ (1 << b)
		j |= bitB<<a | bitA<<b
		out[j] = state[i]
	}
	copy(state, out)
}

func basis(n int, index int) []complex128 {
	s := make([]complex128, 1<<n)
	s[index] = 1
	return s
}

// step is one gate of a test circuit, run on both the engine and the reference.
type step struct {
	name     string
	apply    func(r *Register) error
	controls []int
	target   int
	matrix   Matrix
	swap     [2]int
}

func (s step) ref(state []complex128) {
	if s.name == "swap" {
		refSwap(state, s.swap[0], s.swap[1])
		return
	}
	refControlled(state, s.controls, s.target, s.matrix)
}

// circuit exercises every gate on a 4-qubit register, mixing low and high qubits
// so that with 2 or 4 ranks both local and global operands show up.
func circuit() []step {
	custom := NewMatrix(
		complex(0.6, 0), complex(0, 0.8),
		complex(0, 0.8), complex(0.6, 0),
	)

	return []step{
		{name: "h0", apply: func(r *Register) error { return r.ApplyHadamard(0) }, target: 0, matrix: HadamardMatrix},
		{name: "h1", apply: func(r *Register) error { return r.ApplyHadamard(1) }, target: 1, matrix: HadamardMatrix},
		{name: "h2", apply: func(r *Register) error { return r.ApplyHadamard(2) }, target: 2, matrix: HadamardMatrix},
		{name: "h3", apply: func(r *Register) error { return r.ApplyHadamard(3) }, target: 3, matrix: HadamardMatrix},
		{name: "rx3", apply: func(r *Register) error { return r.ApplyRotationX(3, 0.3) }, target: 3, matrix: RotationXMatrix(0.3)},
		{name: "ry2", apply: func(r *Register) error { return r.ApplyRotationY(2, 0.7) }, target: 2, matrix: RotationYMatrix(0.7)},
		{name: "rz1", apply: func(r *Register) error { return r.ApplyRotationZ(1, 1.1) }, target: 1, matrix: RotationZMatrix(1.1)},
		{name: "t3", apply: func(r *Register) error { return r.ApplyT(3) }, target: 3, matrix: TMatrix},
		{name: "sx2", apply: func(r *Register) error { return r.ApplyPauliSqrtX(2) }, target: 2, matrix: PauliSqrtXMatrix},
		{name: "sy3", apply: func(r *Register) error { return r.ApplyPauliSqrtY(3) }, target: 3, matrix: PauliSqrtYMatrix},
		{name: "sz0", apply: func(r *Register) error { return r.ApplyPauliSqrtZ(0) }, target: 0, matrix: PauliSqrtZMatrix},
		{name: "y3", apply: func(r *Register) error { return r.ApplyPauliY(3) }, target: 3, matrix: PauliYMatrix},
		{name: "z2", apply: func(r *Register) error { return r.ApplyPauliZ(2) }, target: 2, matrix: PauliZMatrix},
		{name: "x1", apply: func(r *Register) error { return r.ApplyPauliX(1) }, target: 1, matrix: PauliXMatrix},
		{name: "cx30", apply: func(r *Register) error { return r.ApplyCPauliX(3, 0) }, controls: []int{3}, target: 0, matrix: PauliXMatrix},
		{name: "cx03", apply: func(r *Register) error { return r.ApplyCPauliX(0, 3) }, controls: []int{0}, target: 3, matrix: PauliXMatrix},
		{name: "cx23", apply: func(r *Register) error { return r.ApplyCPauliX(2, 3) }, controls: []int{2}, target: 3, matrix: PauliXMatrix},
		{name: "crx32", apply: func(r *Register) error { return r.ApplyCRotationX(3, 2, 0.4) }, controls: []int{3}, target: 2, matrix: RotationXMatrix(0.4)},
		{name: "cry13", apply: func(r *Register) error { return r.ApplyCRotationY(1, 3, 0.9) }, controls: []int{1}, target: 3, matrix: RotationYMatrix(0.9)},
		{name: "crz20", apply: func(r *Register) error { return r.ApplyCRotationZ(2, 0, 1.3) }, controls: []int{2}, target: 0, matrix: RotationZMatrix(1.3)},
		{name: "cy02", apply: func(r *Register) error { return r.ApplyCPauliY(0, 2) }, controls: []int{0}, target: 2, matrix: PauliYMatrix},
		{name: "cz31", apply: func(r *Register) error { return r.ApplyCPauliZ(3, 1) }, controls: []int{3}, target: 1, matrix: PauliZMatrix},
		{name: "csz23", apply: func(r *Register) error { return r.ApplyCPauliSqrtZ(2, 3) }, controls: []int{2}, target: 3, matrix: PauliSqrtZMatrix},
		{name: "ch32", apply: func(r *Register) error { return r.ApplyCHadamard(3, 2) }, controls: []int{3}, target: 2, matrix: HadamardMatrix},
		{name: "ch13", apply: func(r *Register) error { return r.ApplyCHadamard(1, 3) }, controls: []int{1}, target: 3, matrix: HadamardMatrix},
		{name: "ccx320", apply: func(r *Register) error { return r.ApplyToffoli(3, 2, 0) }, controls: []int{3, 2}, target: 0, matrix: PauliXMatrix},
		{name: "ccx013", apply: func(r *Register) error { return r.ApplyToffoli(0, 1, 3) }, controls: []int{0, 1}, target: 3, matrix: PauliXMatrix},
		{name: "ccx201", apply: func(r *Register) error { return r.ApplyToffoli(2, 0, 1) }, controls: []int{2, 0}, target: 1, matrix: PauliXMatrix},
		{name: "ccx232", apply: func(r *Register) error { return r.ApplyToffoli(3, 1, 2) }, controls: []int{3, 1}, target: 2, matrix: PauliXMatrix},
		{name: "u3", apply: func(r *Register) error { return r.Apply1QubitGate(3, custom) }, target: 3, matrix: custom},
		{name: "cu30", apply: func(r *Register) error { return r.ApplyControlled1QubitGate(3, 0, custom) }, controls: []int{3}, target: 0, matrix: custom},
		{name: "swap", apply: func(r *Register) error { return r.ApplySwap(0, 3) }, swap: [2]int{0, 3}},
		{name: "swap", apply: func(r *Register) error { return r.ApplySwap(2, 3) }, swap: [2]int{2, 3}},
		{name: "swap", apply: func(r *Register) error { return r.ApplySwap(1, 2) }, swap: [2]int{1, 2}},
		{name: "swap", apply: func(r *Register) error { return r.ApplySwap(3, 1) }, swap: [2]int{3, 1}},
	}
}

func referenceState(n int, steps []step) []complex128 {
	state := basis(n, 0)
	for _, s := range steps {
		s.ref(state)
	}
	return state
}

func applySteps(r *Register, steps []step) error {
	for _, s := range steps {
		if err := s.apply(r); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
