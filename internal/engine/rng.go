package engine

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Seeds identify a provably fair stream. The server seed is used verbatim as
// the HMAC key; do NOT hex-decode it.
type Seeds struct {
	Server string `json:"server"`
	Client string `json:"client"`
}

// Stream yields bytes and floats from HMAC-SHA256(server, "client:nonce:round").
// Each round produces 32 bytes; the cursor advances across rounds without bound.
type Stream struct {
	seeds Seeds
	nonce uint64
	round uint64
	pos   int
	buf   [32]byte
}

// NewStream starts a stream for the given seeds and nonce at cursor 0.
func NewStream(seeds Seeds, nonce uint64) *Stream {
	return NewStreamAt(seeds, nonce, 0)
}

// NewStreamAt starts a stream at an arbitrary byte cursor.
func NewStreamAt(seeds Seeds, nonce uint64, cursor uint64) *Stream {
	s := &Stream{
		seeds: seeds,
		nonce: nonce,
		round: cursor / 32,
		pos:   int(cursor % 32),
	}
	s.fill()
	return s
}

// Nonce returns the nonce the stream was created with.
func (s *Stream) Nonce() uint64 { return s.nonce }

// NextByte returns the next byte, rolling over to the next round when needed.
func (s *Stream) NextByte() byte {
	if s.pos >= len(s.buf) {
		s.round++
		s.pos = 0
		s.fill()
	}
	b := s.buf[s.pos]
	s.pos++
	return b
}

// NextFloat consumes exactly 4 bytes and returns a float in [0, 1).
func (s *Stream) NextFloat() float64 {
	var b [4]byte
	for i := range b {
		b[i] = s.NextByte()
	}
	return bytesToFloat(b)
}

func (s *Stream) fill() {
	h := hmac.New(sha256.New, []byte(s.seeds.Server))
	fmt.Fprintf(h, "%s:%d:%d", s.seeds.Client, s.nonce, s.round)
	copy(s.buf[:], h.Sum(nil))
}

func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		result += float64(b) / math.Pow(256, float64(i+1))
	}
	return result
}

// Floats returns count floats for (seeds, nonce) starting at cursor 0.
func Floats(seeds Seeds, nonce uint64, count int) []float64 {
	return FloatsInto(nil, seeds, nonce, count)
}

// FloatsInto fills dst (growing it when too small) and returns dst[:count].
func FloatsInto(dst []float64, seeds Seeds, nonce uint64, count int) []float64 {
	if len(dst) < count {
		dst = make([]float64, count)
	}
	s := NewStream(seeds, nonce)
	for i := 0; i < count; i++ {
		dst[i] = s.NextFloat()
	}
	return dst[:count]
}

// HashServerSeed returns the hex SHA-256 of the server seed, the value that is
// safe to show before the seed itself is revealed.
func HashServerSeed(server string) string {
	if server == "" {
		return ""
	}
	h := sha256.Sum256([]byte(server))
	return hex.EncodeToString(h[:])
}

// NewSeeds generates a random 64-char hex server seed and a 10-char client seed.
func NewSeeds() (Seeds, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return Seeds{}, fmt.Errorf("generate server seed: %w", err)
	}
	client := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return Seeds{Server: hex.EncodeToString(b), Client: client}, nil
}
