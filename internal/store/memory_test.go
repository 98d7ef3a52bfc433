package store

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/aquaboard/series"
)

func loading() Snapshot {
	return Snapshot{Status: "loading", Message: "Loading readings..."}
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore(loading())
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	// should start with the initial snapshot
	if got := store.Get().Status; got != "loading" {
		t.Errorf("Get().Status = %q, want %q", got, "loading")
	}
	if n := store.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", n)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore(loading())

	fetchedAt := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	window := series.NewWindow([]string{"ph"}, []series.Sample{{
		Time:   fetchedAt,
		Fields: map[string]series.Value{"ph": series.Some(7.2)},
	}}, series.Display{})

	store.Update(Snapshot{
		Status:    "ready",
		Window:    window,
		Samples:   window.Len(),
		FetchedAt: &fetchedAt,
		UpdatedAt: fetchedAt,
	})

	got := store.Get()
	if got.Status != "ready" {
		t.Errorf("Status = %q, want %q", got.Status, "ready")
	}
	if got.Window.Len() != 1 || got.Samples != 1 {
		t.Errorf("Window.Len() = %d, Samples = %d; want 1, 1", got.Window.Len(), got.Samples)
	}
	if got.FetchedAt == nil || !got.FetchedAt.Equal(fetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetchedAt)
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore(loading())

	errMsg := "query failed: connection refused"
	store.Update(Snapshot{Status: "ready", Samples: 3})
	store.Update(Snapshot{Status: "empty"})
	store.Update(Snapshot{Status: "query_error", Retryable: true, Error: &errMsg})

	got := store.Get()
	if got.Status != "query_error" || !got.Retryable {
		t.Errorf("Get() = %+v, want retryable query_error", got)
	}
	if got.Error == nil || *got.Error != errMsg {
		t.Errorf("Error = %v, want %q", got.Error, errMsg)
	}
}

func TestSnapshot_JSON(t *testing.T) {
	data, err := json.Marshal(Snapshot{
		Status:  "config_error",
		Message: "missing settings",
		Window:  series.EmptyWindow([]string{"ph"}, series.Display{}),
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	s := string(data)
	if strings.Contains(s, "samples\":[") || strings.Contains(s, "\"fields\"") {
		t.Errorf("window must not be embedded in the snapshot JSON: %s", s)
	}
	for _, want := range []string{`"status":"config_error"`, `"fetched_at":null`, `"error":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore(loading())

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}
	defer store.Unsubscribe(ch)

	// update should send to subscriber
	go func() {
		store.Update(Snapshot{Status: "ready"})
	}()

	select {
	case snapshot := <-ch:
		if snapshot.Status != "ready" {
			t.Errorf("received Status = %v, want %v", snapshot.Status, "ready")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore(loading())

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	// update should fanout to all subscribers
	go func() {
		store.Update(Snapshot{Status: "ready"})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore(loading())

	ch := store.Subscribe()
	store.Unsubscribe(ch)
	store.Unsubscribe(ch) // idempotent

	// channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
	if n := store.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", n)
	}
}

func TestMemoryStore_UnsubscribeStopsDelivery(t *testing.T) {
	store := NewMemoryStore(loading())

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	defer store.Unsubscribe(ch2)

	// unsubscribe ch1
	store.Unsubscribe(ch1)

	// update should only go to ch2
	go func() {
		store.Update(Snapshot{Status: "empty"})
	}()

	select {
	case <-ch2:
		// expected
	case <-time.After(1 * time.Second):
		t.Error("ch2 should still receive updates")
	}
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore(loading())

	// create a subscriber but don't read from it
	_ = store.Subscribe()

	// create another subscriber that reads
	ch2 := store.Subscribe()

	done := make(chan bool)

	go func() {
		// this should not block even though ch1 is not being read
		for i := 0; i < 200; i++ {
			store.Update(Snapshot{Status: "ready", Samples: i})
		}
		done <- true
	}()

	// drain ch2
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range ch2 {
		}
	}()

	select {
	case <-done:
		// expected - updates completed without blocking
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}

	store.Unsubscribe(ch2)
	<-drained
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(loading())

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	// concurrent updates
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				store.Update(Snapshot{Status: "ready", Samples: id*numUpdates + j})
			}
		}(i)
	}

	// concurrent reads
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.Get()
			}
		}()
	}

	// concurrent subscribe/unsubscribe
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
