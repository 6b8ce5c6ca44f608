package dontorrent

import (
	"context"
	"crypto/sha256"
	"errors"
	"strconv"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

// powPollInterval is how many nonces are tried between context checks.
const powPollInterval = 4096

var errInfeasibleDifficulty = errors.New("pow difficulty exceeds digest length")

// SolvePoW brute-forces the smallest nonce whose sha256 digest of the
// challenge token concatenated with the decimal nonce starts with the
// required count of zero hex characters. The search is unbounded, so
// ctx is polled periodically to stop a cancelled request from burning
// CPU. A difficulty above the digest length can never match and fails
// immediately; zero or negative difficulty matches the first nonce.
func SolvePoW(ctx context.Context, ch types.Challenge) (int, error) {
	if ch.Difficulty > sha256.Size*2 {
		return 0, errInfeasibleDifficulty
	}

	for nonce := 0; ; nonce++ {
		if nonce%powPollInterval == 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}

		sum := sha256.Sum256([]byte(ch.Token + strconv.Itoa(nonce)))
		if leadingZeroHex(sum, ch.Difficulty) {
			return nonce, nil
		}
	}
}

// leadingZeroHex reports whether the first n hex characters of the
// digest are all zero, checked on raw nibbles to avoid encoding the
// digest on every attempt.
func leadingZeroHex(sum [sha256.Size]byte, n int) bool {
	for i := 0; i < n/2; i++ {
		if sum[i] != 0 {
			return false
		}
	}
	if n%2 == 1 && sum[n/2]>>4 != 0 {
		return false
	}
	return true
}
