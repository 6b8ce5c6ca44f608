package dontorrent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

func TestSolvePoW(t *testing.T) {
	for _, difficulty := range []int{0, 1, 2, 3} {
		t.Run("difficulty "+strconv.Itoa(difficulty), func(t *testing.T) {
			ch := types.Challenge{Token: "abc123", Difficulty: difficulty}

			nonce, err := SolvePoW(context.Background(), ch)
			if err != nil {
				t.Fatalf("SolvePoW() error = %v", err)
			}

			prefix := strings.Repeat("0", difficulty)
			sum := sha256.Sum256([]byte(ch.Token + strconv.Itoa(nonce)))
			if !strings.HasPrefix(hex.EncodeToString(sum[:]), prefix) {
				t.Fatalf("SolvePoW() = %d, digest %x does not start with %q", nonce, sum, prefix)
			}

			for n := 0; n < nonce; n++ {
				sum := sha256.Sum256([]byte(ch.Token + strconv.Itoa(n)))
				if strings.HasPrefix(hex.EncodeToString(sum[:]), prefix) {
					t.Fatalf("SolvePoW() = %d, but smaller nonce %d also solves", nonce, n)
				}
			}
		})
	}
}

func TestSolvePoWCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SolvePoW(ctx, types.Challenge{Token: "abc123", Difficulty: 10})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("SolvePoW() error = %v, want context.Canceled", err)
	}
}

func TestSolvePoWInfeasibleDifficulty(t *testing.T) {
	_, err := SolvePoW(context.Background(), types.Challenge{Token: "abc123", Difficulty: sha256.Size*2 + 1})
	if !errors.Is(err, errInfeasibleDifficulty) {
		t.Errorf("SolvePoW() error = %v, want errInfeasibleDifficulty", err)
	}
}

func TestLeadingZeroHex(t *testing.T) {
	var zero [sha256.Size]byte
	if !leadingZeroHex(zero, sha256.Size*2) {
		t.Error("leadingZeroHex(zero digest, 64) = false, want true")
	}

	var d [sha256.Size]byte
	d[0] = 0x0f
	if !leadingZeroHex(d, 1) {
		t.Error("leadingZeroHex(0x0f..., 1) = false, want true")
	}
	if leadingZeroHex(d, 2) {
		t.Error("leadingZeroHex(0x0f..., 2) = true, want false")
	}

	d[0] = 0xf0
	if leadingZeroHex(d, 1) {
		t.Error("leadingZeroHex(0xf0..., 1) = true, want false")
	}
	if !leadingZeroHex(d, 0) {
		t.Error("leadingZeroHex(0xf0..., 0) = false, want true")
	}
}
