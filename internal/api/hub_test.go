package api

import (
	"sync"
	"testing"
	"time"
)

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe()
	if sub == nil {
		t.Fatal("Subscribe returned nil")
	}

	// Verify subscriber has open channels
	select {
	case <-sub.Done():
		t.Error("Done channel should not be closed")
	default:
	}

	hub.Unsubscribe(sub)

	// Wait for unsubscribe to complete
	select {
	case <-sub.Done():
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Done channel should be closed after unsubscribe")
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	e := &SyncEvent{Phase: PhaseCompleted, RunID: "run-1", At: time.Now()}
	hub.Publish(e)

	select {
	case received := <-sub.Events():
		if received.RunID != e.RunID {
			t.Errorf("expected run ID %q, got %q", e.RunID, received.RunID)
		}
		if received.Phase != PhaseCompleted {
			t.Errorf("expected phase %q, got %q", PhaseCompleted, received.Phase)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestHub_PublishToMultipleSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	const numSubscribers = 5
	subs := make([]*Subscriber, numSubscribers)
	for i := 0; i < numSubscribers; i++ {
		subs[i] = hub.Subscribe()
	}
	defer func() {
		for _, sub := range subs {
			hub.Unsubscribe(sub)
		}
	}()

	e := &SyncEvent{Phase: PhaseStarted, RunID: "run-42", At: time.Now()}
	hub.Publish(e)

	// Verify all subscribers receive the event
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *Subscriber) {
			defer wg.Done()
			select {
			case received := <-sub.Events():
				if received.RunID != e.RunID {
					t.Errorf("subscriber %d: expected run ID %q, got %q", i, e.RunID, received.RunID)
				}
			case <-time.After(100 * time.Millisecond):
				t.Errorf("subscriber %d: timeout waiting for event", i)
			}
		}(i, sub)
	}
	wg.Wait()
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sub := hub.Subscribe()
	hub.Stop()

	select {
	case <-sub.Done():
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Done channel should be closed after Stop")
	}

	// Stop is idempotent
	hub.Stop()
}

func TestHub_PublishAfterStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	// Must not panic or block
	hub.Publish(&SyncEvent{Phase: PhaseFailed, At: time.Now()})
}

func TestHub_SubscribeAfterStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	sub := hub.Subscribe()
	select {
	case <-sub.Done():
		// Expected: closed subscriber
	case <-time.After(100 * time.Millisecond):
		t.Error("subscriber from stopped hub should be closed")
	}
}
