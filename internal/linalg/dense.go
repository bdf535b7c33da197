package linalg

import "gonum.org/v1/gonum/mat"

// IsZero reports whether every entry of m is exactly zero.
func IsZero(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// CountNonZero returns the number of non-zero entries of m.
func CountNonZero(m mat.Matrix) int {
	r, c := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				n++
			}
		}
	}
	return n
}

// Embed returns a rows x cols zero matrix with block placed at (r0, c0).
func Embed(rows, cols, r0, c0 int, block mat.Matrix) *mat.Dense {
	out := mat.NewDense(rows, cols, nil)
	br, bc := block.Dims()
	out.Slice(r0, r0+br, c0, c0+bc).(*mat.Dense).Copy(block)
	return out
}

// RowBlock copies rows [start, stop) of m.
func RowBlock(m *mat.Dense, start, stop int) *mat.Dense {
	_, c := m.Dims()
	return mat.DenseCopyOf(m.Slice(start, stop, 0, c))
}

// ColBlock copies columns [start, stop) of m.
func ColBlock(m *mat.Dense, start, stop int) *mat.Dense {
	r, _ := m.Dims()
	return mat.DenseCopyOf(m.Slice(0, r, start, stop))
}

// Block copies the sub-matrix rows [r0, r1) x columns [c0, c1) of m.
func Block(m *mat.Dense, r0, r1, c0, c1 int) *mat.Dense {
	return mat.DenseCopyOf(m.Slice(r0, r1, c0, c1))
}
