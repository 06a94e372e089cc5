package qureg

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/theapemachine/errnie"
)

func norm2(a complex128) float64 {
	return real(a)*real(a) + imag(a)*imag(a)
}

// sumNorm2 is the local partial of Σ|amp|² over offsets whose mask bits are all set.
func (r *Register) sumNorm2(mask int) float64 {
	return real(r.config.parallelSum(len(r.state), func(lo, hi int) complex128 {
		var s float64
		for j := lo; j < hi; j++ {
			if j&mask == mask {
				s += norm2(r.state[j])
			}
		}
		return complex(s, 0)
	}))
}

// GetProbability returns the probability of measuring qubit as 1.
func (r *Register) GetProbability(qubit int) (float64, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}

	if err := r.checkQubits(qubit); err != nil {
		return 0, err
	}

	defer observe("probability", time.Now())

	var local float64
	switch {
	case r.IsLocalQubit(qubit):
		local = r.sumNorm2(1 << qubit)
	case r.rankBit(qubit):
		local = r.sumNorm2(0)
	}

	sum, err := r.reduce("probability", complex(local, 0))
	if err != nil {
		return 0, err
	}
	return real(sum), nil
}

/*
CollapseQubit zeroes every amplitude where qubit disagrees with outcome.
The state is left unnormalized; call Normalize before relying on the
unit-norm invariant again.
*/
func (r *Register) CollapseQubit(qubit int, outcome bool) error {
	if err := r.alive(); err != nil {
		return err
	}

	if err := r.checkQubits(qubit); err != nil {
		return err
	}

	defer observe("collapse", time.Now())

	if !r.IsLocalQubit(qubit) {
		if r.rankBit(qubit) != outcome {
			clear(r.state)
		}
		return nil
	}

	bit := 1 << qubit
	r.config.parallelFor(len(r.state), func(lo, hi int) {
		for j := lo; j < hi; j++ {
			if (j&bit != 0) != outcome {
				r.state[j] = 0
			}
		}
	})

	return nil
}

// ComputeNorm returns sqrt(Σ|amp|²) over the whole register.
func (r *Register) ComputeNorm() (float64, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}

	defer observe("norm", time.Now())

	sum, err := r.reduce("norm", complex(r.sumNorm2(0), 0))
	if err != nil {
		return 0, err
	}
	return math.Sqrt(real(sum)), nil
}

/*
Normalize rescales the state to unit norm. A norm at or below
Config.Tolerance yields ErrDegenerateState and leaves the state untouched;
every rank sees the same reduced norm, so every rank fails together.
*/
func (r *Register) Normalize() error {
	norm, err := r.ComputeNorm()
	if err != nil {
		return err
	}

	if norm <= r.config.tolerance() {
		errnie.Warn("Register.Normalize - id %s, rank %d, norm %g is degenerate", r.id, r.rank, norm)
		return fmt.Errorf("norm %g <= tolerance %g: %w", norm, r.config.tolerance(), ErrDegenerateState)
	}

	scale := complex(1/norm, 0)
	r.config.parallelFor(len(r.state), func(lo, hi int) {
		for j := lo; j < hi; j++ {
			r.state[j] *= scale
		}
	})

	return nil
}

// ComputeOverlap returns ⟨r|other⟩. Both registers must share communicator fabric, qubit count, rank count and rank.
func (r *Register) ComputeOverlap(other *Register) (complex128, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}

	if err := other.alive(); err != nil {
		return 0, err
	}

	if !sameFabric(r.comm, other.comm) {
		return 0, fmt.Errorf("registers %s and %s use different communicators: %w", r.id, other.id, ErrIncompatibleRegister)
	}

	if r.numQubits != other.numQubits || r.size != other.size || r.rank != other.rank {
		return 0, fmt.Errorf(
			"%d qubits on rank %d/%d vs %d qubits on rank %d/%d: %w",
			r.numQubits, r.rank, r.size, other.numQubits, other.rank, other.size, ErrIncompatibleRegister,
		)
	}

	defer observe("overlap", time.Now())

	local := r.config.parallelSum(len(r.state), func(lo, hi int) complex128 {
		var s complex128
		for j := lo; j < hi; j++ {
			a := r.state[j]
			s += complex(real(a), -imag(a)) * other.state[j]
		}
		return s
	})

	return r.reduce("overlap", local)
}

/*
ExpectationValue returns coeff·⟨ψ|O|ψ⟩ for a Pauli string O. The operator
is applied to a scratch clone, so the register itself is not modified.
Pauli strings are Hermitian, so the result is real.
*/
func (r *Register) ExpectationValue(observable PauliString, coeff float64) (float64, error) {
	scratch, err := r.Clone()
	if err != nil {
		return 0, err
	}
	defer scratch.Destroy()

	if err := observable.applyTo(scratch); err != nil {
		return 0, err
	}

	overlap, err := r.ComputeOverlap(scratch)
	if err != nil {
		return 0, err
	}

	return coeff * real(overlap), nil
}

/*
MeasureQubit samples an outcome for qubit, collapses onto it and
normalizes. Only rank 0's rng is consulted; its draw reaches the other
ranks through a reduction, so all ranks collapse the same way. Other ranks
may pass nil.
*/
func (r *Register) MeasureQubit(qubit int, rng *rand.Rand) (bool, error) {
	prob, err := r.GetProbability(qubit)
	if err != nil {
		return false, err
	}

	var draw float64
	if r.rank == 0 {
		if rng == nil {
			draw = rand.Float64()
		} else {
			draw = rng.Float64()
		}
	}

	shared, err := r.reduce("measure", complex(draw, 0))
	if err != nil {
		return false, err
	}

	outcome := real(shared) < prob

	if err := r.CollapseQubit(qubit, outcome); err != nil {
		return false, err
	}

	if err := r.Normalize(); err != nil {
		return false, err
	}

	return outcome, nil
}
