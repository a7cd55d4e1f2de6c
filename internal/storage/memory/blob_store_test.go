package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "runs/r1/mobile/abc.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://runs/r1/mobile/abc.html", uri)

	payload[0] = 'C'
	body, contentType, ok := store.Object("runs/r1/mobile/abc.html")
	require.True(t, ok)
	assert.Equal(t, "content", string(body))
	assert.Equal(t, "text/html", contentType)
	assert.Equal(t, []string{"runs/r1/mobile/abc.html"}, store.Paths())

	_, _, ok = store.Object("missing")
	assert.False(t, ok)
}
