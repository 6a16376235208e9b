package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresCopy(t *testing.T) {
	store := NewBlobStore()
	payload := []byte(`[{"title":"x"}]`)

	uri, err := store.PutObject(context.Background(), "sessions/run/iter.json", "application/json", payload)
	require.NoError(t, err)
	assert.Equal(t, "memory://sessions/run/iter.json", uri)

	payload[0] = '!'
	stored, ok := store.Get("sessions/run/iter.json")
	require.True(t, ok)
	assert.Equal(t, byte('['), stored[0])
}
