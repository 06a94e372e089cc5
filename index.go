package qureg

import (
	"fmt"
	"time"
)

// Locate maps a global basis index to its owning rank and offset in that rank's shard.
func (r *Register) Locate(globalIndex uint64) (int, uint64) {
	return int(globalIndex >> r.localBits), globalIndex & (r.LocalSize() - 1)
}

// IsLocalQubit reports whether flipping qubit never moves an amplitude to another rank.
func (r *Register) IsLocalQubit(qubit int) bool {
	return qubit < r.localBits
}

// rankBit is the value a global qubit takes for every amplitude on this rank.
func (r *Register) rankBit(qubit int) bool {
	return (r.rank>>(qubit-r.localBits))&1 == 1
}

// partner is the rank whose shard differs from ours only in the given global qubit.
func (r *Register) partner(qubit int) int {
	return r.rank ^ (1 << (qubit - r.localBits))
}

/*
PairedView is the result of an exchange on a global qubit. Local is this
rank's shard, Remote the partner's shard at the same offsets, and BitSet the
value the exchanged qubit has on this rank. For offset j the pair of
amplitudes differing only in that qubit is (Local[j], Remote[j]) when
BitSet is false and (Remote[j], Local[j]) otherwise.
*/
type PairedView struct {
	Local  []complex128
	Remote []complex128
	BitSet bool
}

// pair orders the two amplitudes at offset j as (bit 0, bit 1).
func (v PairedView) pair(j int) (complex128, complex128) {
	if v.BitSet {
		return v.Remote[j], v.Local[j]
	}
	return v.Local[j], v.Remote[j]
}

/*
ExchangeForGate swaps full shards with the partner rank for a global
qubit. It blocks until the partner issues the matching call. The Remote
side of the returned view is the register's scratch buffer and is only
valid until the next exchange.
*/
func (r *Register) ExchangeForGate(qubit int) (PairedView, error) {
	return r.exchangeForGate("exchange", qubit)
}

func (r *Register) exchangeForGate(op string, qubit int) (PairedView, error) {
	if err := r.alive(); err != nil {
		return PairedView{}, err
	}

	if err := r.checkQubits(qubit); err != nil {
		return PairedView{}, err
	}

	if r.IsLocalQubit(qubit) {
		return PairedView{}, fmt.Errorf("qubit %d with %d local qubits: %w", qubit, r.localBits, ErrNotGlobalQubit)
	}

	if err := r.exchangeWith(op, r.partner(qubit)); err != nil {
		return PairedView{}, err
	}

	return PairedView{
		Local:  r.state,
		Remote: r.scratch,
		BitSet: r.rankBit(qubit),
	}, nil
}

// tagger is implemented by communicators that verify lockstep order.
type tagger interface {
	setTag(op string)
}

func (r *Register) tag(op string) {
	if t, ok := r.comm.(tagger); ok {
		t.setTag(op)
	}
}

// exchangeWith ships the whole local shard to partner and receives its shard into scratch.
func (r *Register) exchangeWith(op string, partner int) error {
	defer observe("exchange", time.Now())

	r.tag(op)

	if err := r.comm.Exchange(partner, r.state, r.scratch); err != nil {
		return fmt.Errorf("exchange rank %d <-> %d: %w", r.rank, partner, err)
	}

	exchanges.Inc()
	exchangeAmplitudes.Add(float64(len(r.state)))
	return nil
}

// AllReduceSum sums v over all ranks. Every rank must call it in the same order.
func (r *Register) AllReduceSum(v complex128) (complex128, error) {
	return r.reduce("allreduce", v)
}

func (r *Register) reduce(op string, v complex128) (complex128, error) {
	defer observe("allreduce", time.Now())

	r.tag(op)

	sum, err := r.comm.AllReduceSum(v)
	if err != nil {
		return 0, fmt.Errorf("allreduce on rank %d: %w", r.rank, err)
	}

	reductions.Inc()
	return sum, nil
}

// checkQubits validates range and distinctness of the given qubits.
func (r *Register) checkQubits(qubits ...int) error {
	for i, q := range qubits {
		if q < 0 || q >= r.numQubits {
			return fmt.Errorf("qubit %d not in [0, %d): %w", q, r.numQubits, ErrInvalidQubitIndex)
		}

		for _, p := range qubits[:i] {
			if p == q {
				return fmt.Errorf("qubit %d given twice: %w", q, ErrDuplicateQubitIndex)
			}
		}
	}
	return nil
}
