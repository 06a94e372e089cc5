package qureg

import (
	"time"
)

/*
applyControlled is the one kernel behind every matrix gate. It applies m to
target on the subspace where all controls are 1.

Global controls are settled per rank: their value is fixed by the rank
number, so a rank whose bit is 0 has nothing to do. The exchange partner
across a global target differs only in that target bit, so both members
of a pair reach the same decision and either both exchange or neither does.
Local controls become a mask over shard offsets.
*/
func (r *Register) applyControlled(gate string, controls []int, target int, m Matrix) error {
	if err := r.alive(); err != nil {
		return err
	}

	if err := r.checkQubits(append(append([]int(nil), controls...), target)...); err != nil {
		return err
	}

	defer observe(gate, time.Now())

	var mask int
	for _, c := range controls {
		if r.IsLocalQubit(c) {
			mask |= 1 << c
			continue
		}

		if !r.rankBit(c) {
			return nil
		}
	}

	global := !r.IsLocalQubit(target)
	gateApplications.WithLabelValues(gate, locality(global)).Inc()

	if !global {
		bit := 1 << target
		r.config.parallelFor(len(r.state), func(lo, hi int) {
			for j := lo; j < hi; j++ {
				if j&bit != 0 || j&mask != mask {
					continue
				}
				k := j | bit
				r.state[j], r.state[k] = m.apply(r.state[j], r.state[k])
			}
		})
		return nil
	}

	view, err := r.exchangeForGate(gate, target)
	if err != nil {
		return err
	}

	r.config.parallelFor(len(r.state), func(lo, hi int) {
		for j := lo; j < hi; j++ {
			if j&mask != mask {
				continue
			}

			b0, b1 := m.apply(view.pair(j))
			if view.BitSet {
				r.state[j] = b1
			} else {
				r.state[j] = b0
			}
		}
	})

	return nil
}

// Apply1QubitGate applies an arbitrary 2x2 matrix. Unitarity is the caller's concern.
func (r *Register) Apply1QubitGate(qubit int, m Matrix) error {
	return r.applyControlled("custom", nil, qubit, m)
}

// ApplyControlled1QubitGate applies m to target where control is 1.
func (r *Register) ApplyControlled1QubitGate(control, target int, m Matrix) error {
	return r.applyControlled("ccustom", []int{control}, target, m)
}

func (r *Register) ApplyRotationX(qubit int, theta float64) error {
	return r.applyControlled("rx", nil, qubit, RotationXMatrix(theta))
}

func (r *Register) ApplyRotationY(qubit int, theta float64) error {
	return r.applyControlled("ry", nil, qubit, RotationYMatrix(theta))
}

func (r *Register) ApplyRotationZ(qubit int, theta float64) error {
	return r.applyControlled("rz", nil, qubit, RotationZMatrix(theta))
}

func (r *Register) ApplyPauliX(qubit int) error {
	return r.applyControlled("x", nil, qubit, PauliXMatrix)
}

func (r *Register) ApplyPauliY(qubit int) error {
	return r.applyControlled("y", nil, qubit, PauliYMatrix)
}

func (r *Register) ApplyPauliZ(qubit int) error {
	return r.applyControlled("z", nil, qubit, PauliZMatrix)
}

func (r *Register) ApplyPauliSqrtX(qubit int) error {
	return r.applyControlled("sqrtx", nil, qubit, PauliSqrtXMatrix)
}

func (r *Register) ApplyPauliSqrtY(qubit int) error {
	return r.applyControlled("sqrty", nil, qubit, PauliSqrtYMatrix)
}

func (r *Register) ApplyPauliSqrtZ(qubit int) error {
	return r.applyControlled("sqrtz", nil, qubit, PauliSqrtZMatrix)
}

func (r *Register) ApplyHadamard(qubit int) error {
	return r.applyControlled("h", nil, qubit, HadamardMatrix)
}

func (r *Register) ApplyT(qubit int) error {
	return r.applyControlled("t", nil, qubit, TMatrix)
}

func (r *Register) ApplyCRotationX(control, target int, theta float64) error {
	return r.applyControlled("crx", []int{control}, target, RotationXMatrix(theta))
}

func (r *Register) ApplyCRotationY(control, target int, theta float64) error {
	return r.applyControlled("cry", []int{control}, target, RotationYMatrix(theta))
}

func (r *Register) ApplyCRotationZ(control, target int, theta float64) error {
	return r.applyControlled("crz", []int{control}, target, RotationZMatrix(theta))
}

func (r *Register) ApplyCPauliX(control, target int) error {
	return r.applyControlled("cx", []int{control}, target, PauliXMatrix)
}

func (r *Register) ApplyCPauliY(control, target int) error {
	return r.applyControlled("cy", []int{control}, target, PauliYMatrix)
}

func (r *Register) ApplyCPauliZ(control, target int) error {
	return r.applyControlled("cz", []int{control}, target, PauliZMatrix)
}

func (r *Register) ApplyCPauliSqrtZ(control, target int) error {
	return r.applyControlled("csqrtz", []int{control}, target, PauliSqrtZMatrix)
}

func (r *Register) ApplyCHadamard(control, target int) error {
	return r.applyControlled("ch", []int{control}, target, HadamardMatrix)
}

// ApplyToffoli flips target where both controls are 1.
func (r *Register) ApplyToffoli(control1, control2, target int) error {
	return r.applyControlled("toffoli", []int{control1, control2}, target, PauliXMatrix)
}

/*
ApplySwap exchanges the values of two qubits. Depending on where a and b
live it is a pure local permutation, a half-shard pull from one partner,
or a whole-shard trade between the two ranks whose bits for a and b differ.
*/
func (r *Register) ApplySwap(a, b int) error {
	if err := r.alive(); err != nil {
		return err
	}

	if err := r.checkQubits(a, b); err != nil {
		return err
	}

	defer observe("swap", time.Now())

	localA, localB := r.IsLocalQubit(a), r.IsLocalQubit(b)
	gateApplications.WithLabelValues("swap", locality(!localA || !localB)).Inc()

	switch {
	case localA && localB:
		bitA, bitB := 1<<a, 1<<b
		r.config.parallelFor(len(r.state), func(lo, hi int) {
			for j := lo; j < hi; j++ {
				if j&bitA != 0 && j&bitB == 0 {
					k := j ^ bitA ^ bitB
					r.state[j], r.state[k] = r.state[k], r.state[j]
				}
			}
		})

	case localA != localB:
		local, global := a, b
		if localB {
			local, global = b, a
		}

		view, err := r.exchangeForGate("swap", global)
		if err != nil {
			return err
		}

		// The amplitude with (local=x, global=g) takes the old value of
		// (local=g, global=x), which is on the partner at the flipped offset.
		bit := 1 << local
		r.config.parallelFor(len(r.state), func(lo, hi int) {
			for j := lo; j < hi; j++ {
				if (j&bit != 0) != view.BitSet {
					r.state[j] = view.Remote[j^bit]
				}
			}
		})

	default:
		if r.rankBit(a) == r.rankBit(b) {
			return nil
		}

		partner := r.rank ^ (1 << (a - r.localBits)) ^ (1 << (b - r.localBits))
		if err := r.exchangeWith("swap", partner); err != nil {
			return err
		}
		copy(r.state, r.scratch)
	}

	return nil
}
