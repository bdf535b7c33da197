package linalg

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMaterialize(t *testing.T) {
	square, err := FromRows([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	wide, err := FromRows([][]float64{{1, 2, 3}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}

	tests := []struct {
		name       string
		tr         Transform
		rows, cols int
		want       *mat.Dense
		wantErr    error
	}{
		{
			name: "scalar expands to scaled identity",
			tr:   Scalar(0.5),
			rows: 3, cols: 3,
			want: mat.NewDense(3, 3, []float64{0.5, 0, 0, 0, 0.5, 0, 0, 0, 0.5}),
		},
		{
			name: "zero value is scalar zero",
			tr:   Transform{},
			rows: 2, cols: 2,
			want: mat.NewDense(2, 2, nil),
		},
		{
			name: "scalar needs square shape",
			tr:   Scalar(1),
			rows: 2, cols: 3,
			wantErr: ErrShapeMismatch,
		},
		{
			name: "matrix with matching shape",
			tr:   square,
			rows: 2, cols: 2,
			want: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		},
		{
			name: "matrix with wrong shape",
			tr:   wide,
			rows: 3, cols: 1,
			wantErr: ErrShapeMismatch,
		},
		{
			name: "non-positive shape",
			tr:   Scalar(1),
			rows: 0, cols: 0,
			wantErr: ErrShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tr.Materialize(tt.rows, tt.cols)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Materialize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Materialize() unexpected error: %v", err)
			}
			if !mat.Equal(got, tt.want) {
				t.Errorf("Materialize() = %v, want %v", mat.Formatted(got), mat.Formatted(tt.want))
			}
		})
	}
}

func TestMaterializeReturnsCopy(t *testing.T) {
	tr, err := FromRows([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	m, err := tr.Materialize(2, 2)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	m.Set(0, 0, 99)

	if tr.Rows()[0][0] != 1 {
		t.Errorf("writing to the materialized matrix changed the transform")
	}
}

func TestFromRowsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	if !errors.Is(err, ErrUnsupportedTransform) {
		t.Errorf("FromRows(ragged) error = %v, want ErrUnsupportedTransform", err)
	}
	_, err = FromRows(nil)
	if !errors.Is(err, ErrUnsupportedTransform) {
		t.Errorf("FromRows(nil) error = %v, want ErrUnsupportedTransform", err)
	}
}

func TestTransformEqual(t *testing.T) {
	a, _ := FromRows([][]float64{{1, 0}})
	b, _ := FromRows([][]float64{{1, 0}})
	c, _ := FromRows([][]float64{{0, 1}})

	if !a.Equal(b) {
		t.Error("identical matrices should be equal")
	}
	if a.Equal(c) {
		t.Error("different matrices should not be equal")
	}
	if Scalar(1).Equal(a) {
		t.Error("scalar and matrix should not be equal")
	}
	if !Identity().Equal(Scalar(1)) {
		t.Error("Identity should equal Scalar(1)")
	}
}

func TestDenseHelpers(t *testing.T) {
	m := mat.NewDense(3, 4, []float64{
		1, 2, 0, 0,
		0, 0, 0, 0,
		0, 0, 5, 6,
	})

	if IsZero(m) {
		t.Error("IsZero() = true for non-zero matrix")
	}
	if !IsZero(RowBlock(m, 1, 2)) {
		t.Error("middle row should be zero")
	}
	if got := CountNonZero(m); got != 4 {
		t.Errorf("CountNonZero() = %d, want 4", got)
	}
	if got := mat.Sum(ColBlock(m, 2, 4)); got != 11 {
		t.Errorf("sum of right columns = %v, want 11", got)
	}
	if got := Block(m, 2, 3, 2, 4); !mat.Equal(got, mat.NewDense(1, 2, []float64{5, 6})) {
		t.Errorf("Block() = %v", mat.Formatted(got))
	}

	e := Embed(4, 5, 1, 2, mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	want := mat.NewDense(4, 5, []float64{
		0, 0, 0, 0, 0,
		0, 0, 1, 2, 0,
		0, 0, 3, 4, 0,
		0, 0, 0, 0, 0,
	})
	if !mat.Equal(e, want) {
		t.Errorf("Embed() = %v", mat.Formatted(e))
	}
}
