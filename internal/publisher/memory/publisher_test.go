package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	_, ok := pub.Last()
	assert.False(t, ok)

	id1, err := pub.Publish(context.Background(), "runs", crawler.RunEvent{RunID: "r1", Records: 3})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "runs", crawler.RunEvent{RunID: "r2"})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "r1", msgs[0].Payload.(crawler.RunEvent).RunID)

	last, ok := pub.Last()
	require.True(t, ok)
	assert.Equal(t, "r2", last.Payload.(crawler.RunEvent).RunID)

	msgs[0].Topic = "modified"
	assert.Equal(t, "runs", pub.Messages()[0].Topic, "Messages() must return a copy")
}
