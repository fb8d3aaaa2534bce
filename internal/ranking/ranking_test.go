package ranking

import (
	"reflect"
	"testing"
)

func TestMinMaxNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect []float64
	}{
		{
			name:   "spread rescales to unit interval",
			input:  []float64{0.2, 0.6, 1.0},
			expect: []float64{0, 0.5, 1},
		},
		{
			name:   "all equal maps to neutral",
			input:  []float64{0.7, 0.7, 0.7},
			expect: []float64{0.5, 0.5, 0.5},
		},
		{
			name:   "single value maps to neutral",
			input:  []float64{0.9},
			expect: []float64{0.5},
		},
		{
			name:   "empty",
			input:  nil,
			expect: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinMaxNormalize(tt.input)
			if len(got) != len(tt.expect) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.expect))
			}
			for i := range got {
				if got[i] != tt.expect[i] {
					t.Fatalf("MinMaxNormalize(%v) = %v, want %v", tt.input, got, tt.expect)
				}
			}
		})
	}
}

func TestDenseRank(t *testing.T) {
	tests := []struct {
		name   string
		input  []float64
		expect []int
	}{
		{
			name:   "descending scores",
			input:  []float64{0.9, 0.5, 0.7},
			expect: []int{1, 3, 2},
		},
		{
			name:   "ties keep input order",
			input:  []float64{0.5, 0.9, 0.5, 0.5},
			expect: []int{2, 1, 3, 4},
		},
		{
			name:   "all equal ranked by position",
			input:  []float64{0.5, 0.5, 0.5},
			expect: []int{1, 2, 3},
		},
		{
			name:   "empty",
			input:  nil,
			expect: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DenseRank(tt.input)
			if len(got) == 0 && len(tt.expect) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("DenseRank(%v) = %v, want %v", tt.input, got, tt.expect)
			}
		})
	}
}

func TestDenseRankDeterministic(t *testing.T) {
	input := []float64{0.3, 0.3, 0.8, 0.3, 0.8}

	first := DenseRank(input)
	for i := 0; i < 10; i++ {
		if got := DenseRank(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("rank changed between runs: %v vs %v", got, first)
		}
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		input  float64
		expect float64
	}{
		{-0.2, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.3, 1},
	}

	for _, tt := range tests {
		if got := Clamp01(tt.input); got != tt.expect {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.input, got, tt.expect)
		}
	}
}
