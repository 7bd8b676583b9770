package lockstep

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// DeriveSeed derives the shared match seed from the match id and host-side
// entropy. The host derives once at match creation; joiners always adopt the
// stored value, never derive their own. The result is non-negative so it
// survives backends that reject negative bigints.
func DeriveSeed(matchID uuid.UUID, entropy []byte) int64 {
	h, _ := blake2b.New256(nil)
	h.Write(matchID[:])
	h.Write(entropy)
	sum := h.Sum(nil)
	v := binary.BigEndian.Uint64(sum[:8])
	return int64(v & math.MaxInt64)
}

// NewSeedEntropy returns 8 bytes of host-side creation entropy. This is the
// only place the sync core touches non-deterministic randomness; the derived
// seed itself is then fixed for the match lifetime.
func NewSeedEntropy() []byte {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Deterministic fallback keeps match creation working; uniqueness
		// already comes from the match id mixed into DeriveSeed.
		binary.BigEndian.PutUint64(b, 0x5eed0fda7a5eed)
	}
	return b
}
