package events

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestKafkaPublisherRequiresBroker(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "commissions", 0); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestKafkaPublishIsBounded(t *testing.T) {
	// A port that was just released refuses connections.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p, err := NewKafkaPublisher([]string{addr}, "commissions", 200*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	start := time.Now()
	err = p.Publish(context.Background(), CommissionCreated, []byte(`{}`), "seller")
	if err == nil {
		t.Fatal("publish to an unreachable broker succeeded")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("publish blocked for %v", elapsed)
	}
}

func TestLoggingPublisher(t *testing.T) {
	if err := NewLoggingPublisher().Publish(context.Background(), LedgerEntry, []byte(`{}`), "seller"); err != nil {
		t.Fatal(err)
	}
}
