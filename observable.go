package qureg

import "fmt"

// PauliOp selects one Pauli operator. The numbering matches the usual 0..3 = I, X, Y, Z.
type PauliOp int

const (
	PauliI PauliOp = iota
	PauliX
	PauliY
	PauliZ
)

func (p PauliOp) String() string {
	switch p {
	case PauliI:
		return "I"
	case PauliX:
		return "X"
	case PauliY:
		return "Y"
	case PauliZ:
		return "Z"
	default:
		return fmt.Sprintf("PauliOp(%d)", int(p))
	}
}

// PauliTerm places one Pauli operator on one qubit.
type PauliTerm struct {
	Qubit int
	Op    PauliOp
}

// PauliString is a tensor product of single-qubit Pauli operators.
type PauliString []PauliTerm

// NewPauliString zips qubit indices with operator codes (1 = X, 2 = Y, 3 = Z).
func NewPauliString(qubits []int, ops []int) (PauliString, error) {
	if len(qubits) != len(ops) {
		return nil, fmt.Errorf("%d qubits but %d operators: %w", len(qubits), len(ops), ErrInvalidConfig)
	}

	ps := make(PauliString, len(qubits))
	for i, q := range qubits {
		if ops[i] < int(PauliI) || ops[i] > int(PauliZ) {
			return nil, fmt.Errorf("operator code %d for qubit %d: %w", ops[i], q, ErrInvalidConfig)
		}
		ps[i] = PauliTerm{Qubit: q, Op: PauliOp(ops[i])}
	}
	return ps, nil
}

func (ps PauliString) String() string {
	out := ""
	for _, t := range ps {
		out += fmt.Sprintf("%s%d", t.Op, t.Qubit)
	}
	return out
}

// applyTo applies every term to r in order.
func (ps PauliString) applyTo(r *Register) error {
	qubits := make([]int, len(ps))
	for i, t := range ps {
		qubits[i] = t.Qubit
	}

	if err := r.checkQubits(qubits...); err != nil {
		return err
	}

	for _, t := range ps {
		var err error

		switch t.Op {
		case PauliI:
		case PauliX:
			err = r.ApplyPauliX(t.Qubit)
		case PauliY:
			err = r.ApplyPauliY(t.Qubit)
		case PauliZ:
			err = r.ApplyPauliZ(t.Qubit)
		default:
			err = fmt.Errorf("operator %s on qubit %d: %w", t.Op, t.Qubit, ErrInvalidConfig)
		}

		if err != nil {
			return err
		}
	}
	return nil
}
