// Package linalg holds the linear-algebra pieces used to rewrite edge
// transforms: a tagged scalar-or-matrix Transform and a handful of helpers
// over gonum dense matrices.
package linalg

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnsupportedTransform is returned for transforms that are neither a
	// scalar nor a 2-D matrix.
	ErrUnsupportedTransform = errors.New("unsupported transform shape")

	// ErrShapeMismatch is returned when a transform cannot map the widths an
	// edge declares.
	ErrShapeMismatch = errors.New("transform shape mismatch")
)

type transformKind int

const (
	kindScalar transformKind = iota
	kindMatrix
)

// Transform is either a scalar standing for a scaled identity, or an explicit
// rows x cols matrix. The zero value is the scalar 0.
type Transform struct {
	kind   transformKind
	scalar float64
	m      *mat.Dense
}

// Scalar returns a transform equal to v times the identity.
func Scalar(v float64) Transform {
	return Transform{kind: kindScalar, scalar: v}
}

// Identity is Scalar(1), the default transform of a connection.
func Identity() Transform {
	return Scalar(1)
}

// Matrix wraps m. The matrix is copied so later writes to m are not visible.
func Matrix(m mat.Matrix) Transform {
	return Transform{kind: kindMatrix, m: mat.DenseCopyOf(m)}
}

// FromRows builds a matrix transform from row slices. All rows must have the
// same non-zero length.
func FromRows(rows [][]float64) (Transform, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Transform{}, fmt.Errorf("%w: empty matrix", ErrUnsupportedTransform)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Transform{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrUnsupportedTransform, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return Transform{kind: kindMatrix, m: mat.NewDense(len(rows), cols, data)}, nil
}

// IsScalar reports whether t is the scalar variant.
func (t Transform) IsScalar() bool {
	return t.kind == kindScalar
}

// ScalarValue returns the scalar value. It is only meaningful when IsScalar.
func (t Transform) ScalarValue() float64 {
	return t.scalar
}

// Dims returns the matrix shape, or (0, 0) for a scalar.
func (t Transform) Dims() (rows, cols int) {
	if t.kind == kindScalar || t.m == nil {
		return 0, 0
	}
	return t.m.Dims()
}

// Rows returns the matrix as row slices, or nil for a scalar.
func (t Transform) Rows() [][]float64 {
	if t.kind == kindScalar || t.m == nil {
		return nil
	}
	r, c := t.m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, t.m)
	}
	return out
}

// Materialize returns t as an explicit rows x cols matrix. A scalar expands to
// a scaled identity, which requires rows == cols. A matrix must already have
// the requested shape. The result is always a fresh copy.
func (t Transform) Materialize(rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: cannot materialize %dx%d", ErrShapeMismatch, rows, cols)
	}
	switch t.kind {
	case kindScalar:
		if rows != cols {
			return nil, fmt.Errorf("%w: scalar transform needs a square shape, got %dx%d", ErrShapeMismatch, rows, cols)
		}
		out := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			out.Set(i, i, t.scalar)
		}
		return out, nil
	case kindMatrix:
		if t.m == nil {
			return nil, fmt.Errorf("%w: nil matrix", ErrUnsupportedTransform)
		}
		r, c := t.m.Dims()
		if r != rows || c != cols {
			return nil, fmt.Errorf("%w: have %dx%d, want %dx%d", ErrShapeMismatch, r, c, rows, cols)
		}
		return mat.DenseCopyOf(t.m), nil
	default:
		return nil, ErrUnsupportedTransform
	}
}

// Equal reports whether two transforms are the same variant with the same values.
func (t Transform) Equal(o Transform) bool {
	if t.kind != o.kind {
		return false
	}
	if t.kind == kindScalar {
		return t.scalar == o.scalar
	}
	if t.m == nil || o.m == nil {
		return t.m == o.m
	}
	return mat.Equal(t.m, o.m)
}

func (t Transform) String() string {
	if t.kind == kindScalar {
		return fmt.Sprintf("scalar(%g)", t.scalar)
	}
	r, c := t.Dims()
	return fmt.Sprintf("matrix(%dx%d)", r, c)
}
