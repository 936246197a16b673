package feed

import (
	"testing"

	"go.uber.org/goleak"

	"flockcore/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFeedBroadcastsToAllSubscribers(t *testing.T) {
	f := New(4)
	a, cancelA := f.Subscribe()
	b, cancelB := f.Subscribe()
	defer cancelA()
	defer cancelB()

	f.Publish(domain.CacheEvent{Op: domain.CacheInsert, FowlID: "f1"})
	for name, ch := range map[string]<-chan domain.CacheEvent{"a": a, "b": b} {
		ev := <-ch
		if ev.FowlID != "f1" || ev.Op != domain.CacheInsert {
			t.Fatalf("subscriber %s got %+v", name, ev)
		}
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	f := New(1)
	ch, cancel := f.Subscribe()
	defer cancel()
	f.Publish(domain.CacheEvent{FowlID: "1"})
	f.Publish(domain.CacheEvent{FowlID: "2"})
	if f.Dropped() != 1 {
		t.Fatalf("expected one drop, got %d", f.Dropped())
	}
	if ev := <-ch; ev.FowlID != "1" {
		t.Fatalf("expected first event retained, got %+v", ev)
	}
}

func TestFeedCancelAndClose(t *testing.T) {
	f := New(0)
	ch, cancel := f.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	if f.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}

	other, cancelOther := f.Subscribe()
	f.Close()
	f.Close()
	if _, ok := <-other; ok {
		t.Fatalf("expected closed channel after feed close")
	}
	cancelOther()

	late, _ := f.Subscribe()
	if _, ok := <-late; ok {
		t.Fatalf("expected closed channel for subscription after close")
	}
	f.Publish(domain.CacheEvent{FowlID: "ignored"})
}
