package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThinkTime_Range(t *testing.T) {
	tt := ThinkTime{Min: 500 * time.Millisecond, Max: 2500 * time.Millisecond}
	r := NewRand(11)

	for range 1000 {
		d := tt.Next(r)
		assert.GreaterOrEqual(t, d, tt.Min)
		assert.Less(t, d, tt.Max)
	}
}

func TestThinkTime_Edges(t *testing.T) {
	tests := []struct {
		name string
		tt   ThinkTime
		f    float64
		want time.Duration
	}{
		{"empty range", ThinkTime{Min: time.Second, Max: time.Second}, 0.5, time.Second},
		{"inverted range", ThinkTime{Min: 2 * time.Second, Max: time.Second}, 0.5, 2 * time.Second},
		{"zero", ThinkTime{}, 0.9, 0},
		{"midpoint", ThinkTime{Min: 0, Max: 2 * time.Second}, 0.5, time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.tt.Next(fixedRand{f: tc.f}))
		})
	}
}
