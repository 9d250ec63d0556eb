package engine

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// DrawQuestions selects and orders the question set for a new session from
// the deck's question pool. When shuffle is set it applies an unbiased
// Fisher-Yates shuffle driven by crypto/rand; a predictable PRNG here
// would make exam ordering guessable. The result is truncated to count;
// when the pool holds fewer questions than requested the whole pool is
// used and the session's effective question count is simply smaller.
func DrawQuestions(pool []uuid.UUID, shuffle bool, count int) ([]uuid.UUID, error) {
	drawn := make([]uuid.UUID, len(pool))
	copy(drawn, pool)

	if shuffle {
		if err := cryptoShuffle(drawn); err != nil {
			return nil, fmt.Errorf("shuffle questions: %w", err)
		}
	}

	if count > 0 && count < len(drawn) {
		drawn = drawn[:count]
	}
	return drawn, nil
}

func cryptoShuffle(ids []uuid.UUID) error {
	for i := len(ids) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := int(n.Int64())
		ids[i], ids[j] = ids[j], ids[i]
	}
	return nil
}
