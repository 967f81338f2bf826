package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
)

// Rand is the randomness every strategy draws from. Float64 returns a value in [0, 1).
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// SeededRand streams floats from HMAC-SHA256(serverSeed, "client:nonce:round"),
// so a playthrough can be replayed and verified once the server seed is revealed.
type SeededRand struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	round      uint64
	pos        int
	buffer     [32]byte
}

// NewSeededRand creates a stream positioned at the first byte of round 0.
func NewSeededRand(serverSeed, clientSeed string, nonce uint64) *SeededRand {
	r := &SeededRand{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
	}
	r.generateRound()
	return r
}

func (r *SeededRand) next() byte {
	if r.pos >= len(r.buffer) {
		r.round++
		r.pos = 0
		r.generateRound()
	}
	b := r.buffer[r.pos]
	r.pos++
	return b
}

func (r *SeededRand) generateRound() {
	h := hmac.New(sha256.New, []byte(r.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", r.clientSeed, r.nonce, r.round)
	copy(r.buffer[:], h.Sum(nil))
}

// Float64 consumes exactly 4 bytes.
func (r *SeededRand) Float64() float64 {
	return bytesToFloat([4]byte{r.next(), r.next(), r.next(), r.next()})
}

// Intn returns a value in [0, n). It panics if n <= 0, like math/rand.
func (r *SeededRand) Intn(n int) int {
	if n <= 0 {
		panic("engine: invalid argument to Intn")
	}
	return int(r.Float64() * float64(n))
}

// bytesToFloat maps 4 bytes onto [0, 1) as sum(b[i] / 256^(i+1)).
func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		result += float64(b) / math.Pow(256, float64(i+1))
	}
	return result
}

// Floats returns the first count floats of a seeded stream.
func Floats(serverSeed, clientSeed string, nonce uint64, count int) []float64 {
	r := NewSeededRand(serverSeed, clientSeed, nonce)
	out := make([]float64, count)
	for i := range out {
		out[i] = r.Float64()
	}
	return out
}

// HashSeed returns the hex SHA-256 of a server seed. Only the hash is shown
// before a playthrough completes.
func HashSeed(serverSeed string) string {
	if serverSeed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// NewMathRand wraps math/rand for simulations that do not need verifiable output.
func NewMathRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// RandomMove draws a move uniformly.
func RandomMove(r Rand) Move {
	return Moves[r.Intn(len(Moves))]
}

// Pick draws one element uniformly. items must not be empty.
func Pick[T any](r Rand, items []T) T {
	return items[r.Intn(len(items))]
}

// IntRange draws an integer uniformly from [lo, hi].
func IntRange(r Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}

// Shuffle permutes items in place (Fisher-Yates).
func Shuffle[T any](r Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
