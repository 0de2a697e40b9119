package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeeds = Seeds{Server: "test_server_seed", Client: "test_client_seed"}

func TestFloats(t *testing.T) {
	tests := []struct {
		name  string
		nonce uint64
		count int
	}{
		{name: "single float", nonce: 1, count: 1},
		{name: "one round", nonce: 1, count: 8},
		{name: "crosses round boundary", nonce: 7, count: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floats := Floats(testSeeds, tt.nonce, tt.count)
			require.Len(t, floats, tt.count)
			for i, f := range floats {
				assert.GreaterOrEqual(t, f, 0.0, "float %d", i)
				assert.Less(t, f, 1.0, "float %d", i)
			}
		})
	}
}

func TestFloatsDeterministic(t *testing.T) {
	a := Floats(testSeeds, 42, 16)
	b := Floats(testSeeds, 42, 16)
	assert.Equal(t, a, b)

	other := Floats(testSeeds, 43, 16)
	assert.NotEqual(t, a, other, "different nonces must produce different streams")

	swapped := Floats(Seeds{Server: testSeeds.Client, Client: testSeeds.Server}, 42, 16)
	assert.NotEqual(t, a, swapped)
}

func TestStreamCursor(t *testing.T) {
	ref := Floats(testSeeds, 3, 10)

	// Float i starts at byte 4*i, including across the 32-byte round edge.
	for _, i := range []int{1, 7, 8, 9} {
		s := NewStreamAt(testSeeds, 3, uint64(4*i))
		assert.Equal(t, ref[i], s.NextFloat(), "float at index %d", i)
	}
}

func TestFloatsInto(t *testing.T) {
	dst := make([]float64, 10)
	got := FloatsInto(dst, testSeeds, 1, 5)
	require.Len(t, got, 5)
	assert.Equal(t, Floats(testSeeds, 1, 5), got)

	small := make([]float64, 2)
	got = FloatsInto(small, testSeeds, 1, 5)
	assert.Len(t, got, 5)
}

func TestBytesToFloat(t *testing.T) {
	assert.Equal(t, 0.0, bytesToFloat([4]byte{0, 0, 0, 0}))
	assert.Equal(t, 0.5, bytesToFloat([4]byte{128, 0, 0, 0}))
	assert.Less(t, bytesToFloat([4]byte{255, 255, 255, 255}), 1.0)
}

func TestHashServerSeed(t *testing.T) {
	assert.Empty(t, HashServerSeed(""))
	h := HashServerSeed("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
}

func TestNewSeeds(t *testing.T) {
	a, err := NewSeeds()
	require.NoError(t, err)
	b, err := NewSeeds()
	require.NoError(t, err)

	assert.Len(t, a.Server, 64)
	assert.Len(t, a.Client, 10)
	assert.NotEqual(t, a.Server, b.Server)
}
