package mq

import (
	"context"
	"os"
	"testing"
)

func TestNilPublisherIsNoop(t *testing.T) {
	var p *RabbitPublisher
	if err := p.Publish(context.Background(), "ticket.created", map[string]string{"id": "t1"}); err != nil {
		t.Fatalf("expected nil publisher to be a no-op, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRabbitPublisherIntegration(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if url == "" {
		t.Skip("TEST_AMQP_URL not set")
	}
	p, err := NewRabbitPublisher(url, "claims.events.test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Close()
	if err := p.Publish(context.Background(), "ticket.created", map[string]string{"id": "t1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}
