package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

func newFakeClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishSendsJSONPayload(t *testing.T) {
	ctx := context.Background()
	client, srv := newFakeClient(t)
	_, err := client.CreateTopic(ctx, "listing-runs")
	require.NoError(t, err)

	pub, err := New(client)
	require.NoError(t, err)
	defer pub.Close()

	event := crawler.RunEvent{RunID: "run-1", Source: crawler.DataSourceMobile, Records: 3}
	id, err := pub.Publish(ctx, "listing-runs", event)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])
	var got crawler.RunEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Records)
}

func TestPublishMissingTopicFails(t *testing.T) {
	client, _ := newFakeClient(t)
	pub, err := New(client)
	require.NoError(t, err)
	defer pub.Close()

	_, err = pub.Publish(context.Background(), "absent", map[string]string{"a": "b"})
	require.Error(t, err)
	_, err = pub.Publish(context.Background(), "", nil)
	require.Error(t, err)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
