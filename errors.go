package qureg

import "errors"

var (
	// ErrInvalidConfig is returned for bad construction parameters.
	ErrInvalidConfig = errors.New("invalid register configuration")

	// ErrInvalidQubitIndex is returned when a qubit index is negative or >= n.
	ErrInvalidQubitIndex = errors.New("invalid qubit index")

	// ErrDuplicateQubitIndex is returned when two qubits that must differ coincide.
	ErrDuplicateQubitIndex = errors.New("duplicate qubit index")

	// ErrWrongLocality is returned when a direct element read targets an
	// amplitude that lives on another rank.
	ErrWrongLocality = errors.New("amplitude is not resident on this rank")

	// ErrIncompatibleRegister is returned when a binary operation mixes
	// registers with different partitioning.
	ErrIncompatibleRegister = errors.New("incompatible register")

	// ErrDegenerateState is returned when normalizing a state whose norm is zero.
	ErrDegenerateState = errors.New("degenerate state")

	ErrRegisterDestroyed = errors.New("register has been destroyed")
	ErrIndexOutOfRange   = errors.New("basis index out of range")
	ErrNotGlobalQubit    = errors.New("qubit is local, no exchange required")

	// ErrLockstepViolation is only produced when Config.LockstepCheck is on.
	ErrLockstepViolation = errors.New("ranks diverged from lockstep call order")

	ErrClusterClosed = errors.New("cluster closed")
)
