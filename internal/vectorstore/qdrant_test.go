package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPointUUIDIsDeterministicForNonUUIDIDs(t *testing.T) {
	id := "article_42"
	u1 := pointUUID(id)
	u2 := pointUUID(id)
	require.Equal(t, u1, u2)
	require.NotEqual(t, id, u1)
	_, err := uuid.Parse(u1)
	require.NoError(t, err)
}

func TestPointUUIDPassesThroughRealUUIDs(t *testing.T) {
	real := uuid.New().String()
	require.Equal(t, real, pointUUID(real))
}

func TestPointUUIDDiffersAcrossIDs(t *testing.T) {
	require.NotEqual(t, pointUUID("article_1"), pointUUID("article_2"))
}
