package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubSinkPublishesWithAttributes(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	// The topic must exist before publishing
	admin, err := pubsub.NewClient(ctx, "flexinvest-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, "notifications")
	require.NoError(t, err)

	sink, err := NewPubSubSink(ctx, "flexinvest-test", "notifications", zerolog.Nop(), option.WithGRPCConn(conn))
	require.NoError(t, err)

	msg := Message{ID: "m1", UserID: "u1", Kind: "DEPOSIT_DECIDED", Subject: "Deposit approved", Body: "ok"}
	require.NoError(t, sink.Deliver(ctx, msg))
	sink.topic.Stop()

	published := srv.Messages()
	require.Len(t, published, 1)
	assert.Equal(t, "DEPOSIT_DECIDED", published[0].Attributes["kind"])
	assert.Equal(t, "u1", published[0].Attributes["user_id"])

	var decoded Message
	require.NoError(t, json.Unmarshal(published[0].Data, &decoded))
	assert.Equal(t, msg.Subject, decoded.Subject)
}

func TestNewPubSubSinkRequiresConfig(t *testing.T) {
	_, err := NewPubSubSink(context.Background(), "", "topic", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewPubSubSink(context.Background(), "project", "", zerolog.Nop())
	assert.Error(t, err)
}
