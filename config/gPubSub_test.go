package config

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakePubSubClient(t *testing.T) *pubsub.Client {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial fake pubsub: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "ledger-test", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("pubsub client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCreateTopicIfNotExists(t *testing.T) {
	ctx := context.Background()
	client := newFakePubSubClient(t)

	topic, err := CreateTopicIfNotExists(ctx, client, "ledger-events")
	if err != nil {
		t.Fatalf("create topic: %v", err)
	}
	ok, err := topic.Exists(ctx)
	if err != nil || !ok {
		t.Fatalf("expected topic to exist, got %v, %v", ok, err)
	}

	again, err := CreateTopicIfNotExists(ctx, client, "ledger-events")
	if err != nil {
		t.Fatalf("second call must reuse the topic: %v", err)
	}
	if again.ID() != "ledger-events" {
		t.Fatalf("unexpected topic %q", again.ID())
	}

	if _, err := CreateTopicIfNotExists(ctx, client, ""); err == nil {
		t.Fatalf("expected error for empty topic name")
	}
	if _, err := CreateTopicIfNotExists(ctx, nil, "ledger-events"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
