package qureg

import (
	"fmt"
	"reflect"
)

/*
Communicator is the narrow message-passing surface a Register needs from
its environment. One Communicator exists per rank, and every rank of a
register issues the same ordered sequence of collective calls.

Exchange swaps a buffer with one partner rank: send is shipped to the
partner, and the partner's send buffer is copied into recv. Both sides must
call Exchange naming each other, otherwise the caller blocks.

AllReduceSum contributes v to a sum over all ranks and returns that sum,
identical on every rank. Every rank calls it exactly once per logical
reduction.
*/
type Communicator interface {
	Rank() int
	Size() int
	Exchange(partner int, send, recv []complex128) error
	AllReduceSum(v complex128) (complex128, error)
}

// localCommunicator is the single-rank Communicator.
type localCommunicator struct{}

/*
NewLocalCommunicator returns the trivial Communicator for a register that
lives entirely in one process. Its only valid exchange partner is itself.
*/
func NewLocalCommunicator() Communicator {
	return localCommunicator{}
}

func (localCommunicator) Rank() int { return 0 }
func (localCommunicator) Size() int { return 1 }

func (localCommunicator) Exchange(partner int, send, recv []complex128) error {
	if partner != 0 {
		return fmt.Errorf("exchange with rank %d on a single-rank communicator: %w", partner, ErrInvalidConfig)
	}
	copy(recv, send)
	return nil
}

func (localCommunicator) AllReduceSum(v complex128) (complex128, error) {
	return v, nil
}

// fabric is implemented by communicators that belong to a named group of ranks.
type fabric interface {
	fabricID() string
}

/*
sameFabric reports whether two communicators route to the same group of
ranks. Cluster endpoints compare by cluster ID. Other communicators must
have the same dynamic type and, when that type is comparable, be equal.
*/
func sameFabric(a, b Communicator) bool {
	fa, okA := a.(fabric)
	fb, okB := b.(fabric)
	if okA || okB {
		return okA && okB && fa.fabricID() == fb.fabricID()
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	return !ta.Comparable() || a == b
}
