package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionPool(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func assertSubsetNoDupes(t *testing.T, drawn, pool []uuid.UUID) {
	t.Helper()
	poolSet := make(map[uuid.UUID]bool, len(pool))
	for _, id := range pool {
		poolSet[id] = true
	}
	seen := make(map[uuid.UUID]bool, len(drawn))
	for _, id := range drawn {
		assert.True(t, poolSet[id], "drawn question %s not in pool", id)
		assert.False(t, seen[id], "question %s drawn twice", id)
		seen[id] = true
	}
}

func TestDrawQuestions_NoShuffleKeepsOrder(t *testing.T) {
	pool := questionPool(5)
	drawn, err := DrawQuestions(pool, false, 3)
	require.NoError(t, err)
	assert.Equal(t, pool[:3], drawn)
}

func TestDrawQuestions_Truncates(t *testing.T) {
	pool := questionPool(20)
	drawn, err := DrawQuestions(pool, true, 7)
	require.NoError(t, err)
	assert.Len(t, drawn, 7)
	assertSubsetNoDupes(t, drawn, pool)
}

func TestDrawQuestions_PoolSmallerThanRequested(t *testing.T) {
	pool := questionPool(3)
	drawn, err := DrawQuestions(pool, true, 10)
	require.NoError(t, err)
	assert.Len(t, drawn, 3)
	assertSubsetNoDupes(t, drawn, pool)
}

func TestDrawQuestions_ShuffleIsPermutation(t *testing.T) {
	pool := questionPool(50)
	drawn, err := DrawQuestions(pool, true, 0)
	require.NoError(t, err)
	require.Len(t, drawn, len(pool))
	assertSubsetNoDupes(t, drawn, pool)
}

func TestDrawQuestions_DoesNotMutateInput(t *testing.T) {
	pool := questionPool(10)
	original := make([]uuid.UUID, len(pool))
	copy(original, pool)

	_, err := DrawQuestions(pool, true, 5)
	require.NoError(t, err)
	assert.Equal(t, original, pool)
}

func TestDrawQuestions_Empty(t *testing.T) {
	drawn, err := DrawQuestions(nil, true, 5)
	require.NoError(t, err)
	assert.Empty(t, drawn)
}
