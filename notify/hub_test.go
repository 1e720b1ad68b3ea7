package notify_test

import (
	"testing"
	"time"

	"obfuscator-web/notify"
)

func next(t *testing.T, ch <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return notify.Event{}
}

func TestStatusOverwrites(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()

	h.SetStatus("Obfuscating...", true)
	h.SetStatus("Error: boom", false)

	got := h.Status()
	if got.Message != "Error: boom" || got.OK {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestStatusEvent(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.SetStatus("Done", true)
	ev := next(t, ch)
	if ev.Type != notify.EventStatus || ev.Status == nil || ev.Status.Message != "Done" || !ev.Status.OK {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestToastLifecycle(t *testing.T) {
	h := notify.NewHub(notify.WithToastTiming(20*time.Millisecond, 10*time.Millisecond))
	defer h.Close()
	ch, cancel := h.Subscribe()
	defer cancel()

	toast := h.Toast("Copied to clipboard", notify.Success)
	if toast.Icon != "✅" || toast.ID == "" {
		t.Fatalf("unexpected toast %+v", toast)
	}
	if n := len(h.Toasts()); n != 1 {
		t.Fatalf("expected 1 toast, got %d", n)
	}

	want := []notify.EventType{notify.EventToast, notify.EventToastLeaving, notify.EventToastRemoved}
	for _, typ := range want {
		ev := next(t, ch)
		if ev.Type != typ {
			t.Fatalf("expected %s, got %s", typ, ev.Type)
		}
		if ev.Toast == nil || ev.Toast.ID != toast.ID {
			t.Fatalf("event %s for wrong toast: %+v", typ, ev.Toast)
		}
	}
	if n := len(h.Toasts()); n != 0 {
		t.Fatalf("expected toast removed, %d left", n)
	}
}

func TestConcurrentToastsIndependent(t *testing.T) {
	h := notify.NewHub(notify.WithToastTiming(30*time.Millisecond, 5*time.Millisecond))
	defer h.Close()

	a := h.Toast("Copy failed", notify.Failure)
	b := h.Toast("Copy failed", notify.Failure)
	if a.ID == b.ID {
		t.Fatal("toasts must not be coalesced")
	}
	if a.Icon != "⚠️" {
		t.Fatalf("unexpected error icon %q", a.Icon)
	}
	if n := len(h.Toasts()); n != 2 {
		t.Fatalf("expected 2 toasts, got %d", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(h.Toasts()) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("toasts not removed: %+v", h.Toasts())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishAndCancel(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()
	ch, cancel := h.Subscribe()

	h.Publish(notify.Event{Type: "stats", Data: map[string]string{"ratio": "50.0%"}})
	if ev := next(t, ch); ev.Type != "stats" {
		t.Fatalf("unexpected event %+v", ev)
	}

	cancel()
	cancel() // idempotent
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
	if n := h.Subscribers(); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := notify.NewHub()
	defer h.Close()
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			h.SetStatus("x", true)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetStatus blocked on a full subscriber")
	}
}

func TestCloseStopsToastsAndSubscribers(t *testing.T) {
	h := notify.NewHub(notify.WithToastTiming(10*time.Millisecond, 10*time.Millisecond))
	ch, _ := h.Subscribe()
	h.Toast("bye", notify.Success)
	<-ch // toast event

	h.Close()
	h.Close()
	drained := make(chan struct{})
	go func() {
		for range ch {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("expected closed channel after Close")
	}

	late, _ := h.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscribing to a closed hub must yield a closed channel")
	}
}
