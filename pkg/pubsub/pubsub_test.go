package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

func receive(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
		return nil
	}
}

func TestBasicPubSub(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(), storage.TopicRelationships)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ev := storage.ChangeEvent{Kind: storage.ChangeRelationship, Op: storage.OpCreated, ID: "r1"}
	ps.Publish(ev.Topic(), ev)

	got, ok := receive(t, sub).(storage.ChangeEvent)
	if !ok || got.ID != "r1" {
		t.Errorf("received %v, want event for r1", got)
	}
	if topics := sub.Topics(); len(topics) != 1 || topics[0] != storage.TopicRelationships {
		t.Errorf("Topics() = %v", topics)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	subs := make([]*Subscription, 4)
	for i := range subs {
		sub, err := ps.Subscribe(context.Background(), storage.TopicEntities)
		if err != nil {
			t.Fatalf("Failed to subscribe %d: %v", i, err)
		}
		defer sub.Unsubscribe()
		subs[i] = sub
	}

	ps.Publish(storage.TopicEntities, "card-7")

	for i, sub := range subs {
		if msg := receive(t, sub); msg != "card-7" {
			t.Errorf("subscriber %d got %v", i, msg)
		}
	}
}

func TestTopicIsolation(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	ents, _ := ps.Subscribe(context.Background(), storage.TopicEntities)
	rels, _ := ps.Subscribe(context.Background(), storage.TopicRelationships)
	defer ents.Unsubscribe()
	defer rels.Unsubscribe()

	ps.Publish(storage.TopicRelationships, "rel")

	if msg := receive(t, rels); msg != "rel" {
		t.Errorf("relationships subscriber got %v", msg)
	}
	select {
	case msg := <-ents.Channel():
		t.Errorf("entities subscriber should not receive %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeManyTopics(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(),
		storage.TopicRelationships, storage.TopicEntities, storage.TopicRelationships)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if topics := sub.Topics(); len(topics) != 2 || topics[0] != storage.TopicEntities {
		t.Errorf("Topics() = %v, want sorted and deduplicated", topics)
	}

	ps.Publish(storage.TopicEntities, "ent")
	ps.Publish(storage.TopicRelationships, "rel")
	if a, b := receive(t, sub), receive(t, sub); a != "ent" || b != "rel" {
		t.Errorf("received %v, %v; want ent, rel", a, b)
	}

	sub.Unsubscribe()
	if ps.GetSubscriberCount(storage.TopicEntities)+ps.GetSubscriberCount(storage.TopicRelationships) != 0 {
		t.Error("Unsubscribe should leave every topic")
	}

	if _, err := ps.Subscribe(context.Background()); !errors.Is(err, ErrNoTopics) {
		t.Errorf("Subscribe() without topics = %v, want ErrNoTopics", err)
	}
}

func TestDrain(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), "t")
	for i := 0; i < 5; i++ {
		ps.Publish("t", i)
	}

	if msg := receive(t, sub); msg != 0 {
		t.Fatalf("first = %v", msg)
	}
	if n := sub.Drain(); n != 4 {
		t.Errorf("Drain() = %d, want 4", n)
	}
	if n := sub.Drain(); n != 0 {
		t.Errorf("second Drain() = %d, want 0", n)
	}

	sub.Unsubscribe()
	if n := sub.Drain(); n != 0 {
		t.Errorf("Drain() on closed subscription = %d", n)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), "t")
	if ps.GetSubscriberCount("t") != 1 {
		t.Fatalf("count = %d, want 1", ps.GetSubscriberCount("t"))
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if ps.GetSubscriberCount("t") != 0 {
		t.Errorf("count after unsubscribe = %d, want 0", ps.GetSubscriberCount("t"))
	}
	if _, ok := <-sub.Channel(); ok {
		t.Error("channel should be closed")
	}

	// Publishing to a topic with no readers is a no-op
	ps.Publish("t", "ignored")
}

func TestContextCancellation(t *testing.T) {
	ps := NewPubSub()
	defer ps.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := ps.Subscribe(ctx, "t")
	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}

	deadline := time.Now().Add(time.Second)
	for ps.GetSubscriberCount("t") != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := ps.GetSubscriberCount("t"); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestFullBufferDropsAndCounts(t *testing.T) {
	ps := NewPubSub(WithBufferSize(2))
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), "t")
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		ps.Publish("t", i)
	}

	if got := ps.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
	if msg := receive(t, sub); msg != 0 {
		t.Errorf("first message = %v, want 0", msg)
	}
}

func TestConcurrentPublish(t *testing.T) {
	ps := NewPubSub(WithBufferSize(1000))
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), "t")
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ps.Publish("t", i)
			}
		}()
	}
	wg.Wait()

	if got := len(sub.Channel()); got != 500 {
		t.Errorf("buffered = %d, want 500", got)
	}
}

func TestShutdown(t *testing.T) {
	ps := NewPubSub()
	sub, _ := ps.Subscribe(context.Background(), "t")

	ps.Shutdown()
	ps.Shutdown()

	if _, ok := <-sub.Channel(); ok {
		t.Error("channel should be closed after shutdown")
	}
	if _, err := ps.Subscribe(context.Background(), "t"); !errors.Is(err, ErrShutdown) {
		t.Errorf("Subscribe after shutdown = %v, want ErrShutdown", err)
	}
	ps.Publish("t", "ignored")
}
