package spin

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlan(t *testing.T) {
	p := DefaultPlan()
	require.Len(t, p, 5)
	assert.Equal(t, 19, p.Ticks())
	assert.Equal(t, 250*time.Millisecond+500*time.Millisecond+800*time.Millisecond+900*time.Millisecond+time.Second, p.Duration())
}

func TestPlanClone(t *testing.T) {
	p := DefaultPlan()
	c := p.Clone()
	c[0].Count = 0
	assert.Equal(t, 5, p[0].Count)
	assert.Equal(t, 14, c.Ticks())
}

func TestParseRequestedCount(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 12 ", 12, false},
		{"1", 1, false},
		{"0", 1, true},
		{"-2", 1, true},
		{"abc", 1, true},
		{"2.5", 1, true},
		{"", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			n, err := ParseRequestedCount(tt.raw)
			assert.Equal(t, tt.want, n)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidCount))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
