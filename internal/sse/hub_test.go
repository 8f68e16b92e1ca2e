package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"notifybell/internal/model"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubDeliversToSubject(t *testing.T) {
	hub := runHub(t)
	mine := NewClient("u1")
	again := NewClient("u1")
	other := NewClient("u2")
	hub.Register(mine)
	hub.Register(again)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.Clients("u1") == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(model.UnreadUpdate{Subject: "u1", Count: 3})

	for _, c := range []*Client{mine, again} {
		select {
		case got := <-c.Ch:
			require.Equal(t, 3, got.Count)
		case <-time.After(time.Second):
			t.Fatal("update not delivered")
		}
	}
	select {
	case got := <-other.Ch:
		t.Fatalf("unexpected update for u2: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregister(t *testing.T) {
	hub := runHub(t)
	c := NewClient("u1")
	hub.Register(c)
	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.Clients("u1") == 0 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(model.UnreadUpdate{Subject: "u1", Count: 1})
	select {
	case <-c.Ch:
		t.Fatal("unregistered client received update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := runHub(t)
	c := &Client{Subject: "u1", Ch: make(chan model.UnreadUpdate, 1)}
	hub.Register(c)

	hub.Broadcast(model.UnreadUpdate{Subject: "u1", Count: 1})
	hub.Broadcast(model.UnreadUpdate{Subject: "u1", Count: 2})

	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, 5*time.Millisecond)
	got := <-c.Ch
	require.Equal(t, 1, got.Count)
}

func TestRegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := NewClient("u1")
	hub.Register(client)
	cancel()
	<-stopped
	<-hub.Done()

	returned := make(chan struct{})
	go func() {
		hub.Unregister(client)
		hub.Register(NewClient("u2"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked on a stopped hub")
	}
}
