package qureg

import (
	"math"
	"math/cmplx"
)

// Matrix is a 2x2 complex gate matrix, indexed [row][column].
type Matrix [2][2]complex128

// NewMatrix builds a Matrix from four entries in row-major order.
func NewMatrix(m00, m01, m10, m11 complex128) Matrix {
	return Matrix{{m00, m01}, {m10, m11}}
}

// apply returns M·(a0, a1).
func (m Matrix) apply(a0, a1 complex128) (complex128, complex128) {
	return m[0][0]*a0 + m[0][1]*a1, m[1][0]*a0 + m[1][1]*a1
}

var (
	PauliXMatrix = NewMatrix(0, 1, 1, 0)
	PauliYMatrix = NewMatrix(0, -1i, 1i, 0)
	PauliZMatrix = NewMatrix(1, 0, 0, -1)

	// H = 1/√2 * [1  1]
	//           [1 -1]
	HadamardMatrix = NewMatrix(
		complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0),
		complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0),
	)

	PauliSqrtXMatrix = NewMatrix(
		complex(0.5, 0.5), complex(0.5, -0.5),
		complex(0.5, -0.5), complex(0.5, 0.5),
	)
	PauliSqrtYMatrix = NewMatrix(
		complex(0.5, 0.5), complex(-0.5, -0.5),
		complex(0.5, 0.5), complex(0.5, 0.5),
	)
	PauliSqrtZMatrix = NewMatrix(1, 0, 0, 1i)

	TMatrix = NewMatrix(1, 0, 0, cmplx.Exp(complex(0, math.Pi/4)))
)

// RotationXMatrix is exp(-iθX/2).
func RotationXMatrix(theta float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return NewMatrix(c, s, s, c)
}

// RotationYMatrix is exp(-iθY/2).
func RotationYMatrix(theta float64) Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return NewMatrix(c, -s, s, c)
}

// RotationZMatrix is exp(-iθZ/2).
func RotationZMatrix(theta float64) Matrix {
	return NewMatrix(cmplx.Exp(complex(0, -theta/2)), 0, 0, cmplx.Exp(complex(0, theta/2)))
}
