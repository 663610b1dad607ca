package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countType(msgs []string, typ string) int {
	n := 0
	for _, s := range msgs {
		if strings.Contains(s, "event: "+typ+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	other := b.Subscribe("vault1")
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Unsubscribe(ch)
	b.Unsubscribe(other)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishWireFormat(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventNoteCreated, Data: NoteEvent{Vault: "vault1", Fname: "a"}})
	b.Publish(Event{Type: EventNoteDeleted, Data: NoteEvent{Vault: "vault1", Fname: "a"}})

	want := []string{
		"id: 1\nevent: note.created\ndata: {\"vault\":\"vault1\",\"fname\":\"a\"}\n\n",
		"id: 2\nevent: note.deleted\ndata: {\"vault\":\"vault1\",\"fname\":\"a\"}\n\n",
	}
	for i, w := range want {
		select {
		case msg := <-ch:
			if string(msg) != w {
				t.Errorf("message %d = %q, want %q", i, msg, w)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestVaultFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	all := b.Subscribe("")
	defer b.Unsubscribe(all)
	one := b.Subscribe("vault1")
	defer b.Unsubscribe(one)

	b.PublishNoteEvent("created", "vault2", "x")
	b.PublishNoteEvent("updated", "vault1", "y")
	b.Publish(Event{Type: "sync.done", Data: map[string]int{"indexed": 2}})
	time.Sleep(50 * time.Millisecond)

	gotAll := drain(all)
	if countType(gotAll, EventNoteCreated) != 1 || countType(gotAll, EventNoteUpdated) != 1 {
		t.Errorf("unfiltered client got %q", gotAll)
	}
	if countType(gotAll, "sync.done") != 1 {
		t.Errorf("unfiltered client missed the vault-less event")
	}

	gotOne := drain(one)
	if countType(gotOne, EventNoteCreated) != 0 {
		t.Errorf("vault1 client got a vault2 event: %q", gotOne)
	}
	if countType(gotOne, EventNoteUpdated) != 1 || countType(gotOne, "sync.done") != 1 {
		t.Errorf("vault1 client got %q", gotOne)
	}
}

func TestPublishNoteEvent_LinksThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// The first change announces links.updated, the second is throttled.
	b.PublishNoteEvent("created", "vault1", "a")
	b.PublishNoteEvent("updated", "vault1", "b")
	// Unknown kinds are dropped.
	b.PublishNoteEvent("renamed", "vault1", "c")

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if n := countType(msgs, EventLinksUpdated); n != 1 {
		t.Errorf("links events = %d, want 1 (throttled)", n)
	}
	if n := len(msgs) - countType(msgs, EventLinksUpdated); n != 2 {
		t.Errorf("note events = %d, want 2", n)
	}
}

func TestLinksThrottle_TrailingFlush(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("updated", "vault1", "a")
	b.PublishNoteEvent("updated", "vault2", "b")
	b.PublishNoteEvent("updated", "vault1", "c")

	time.Sleep(250 * time.Millisecond)
	var links []string
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+EventLinksUpdated) {
			links = append(links, s)
		}
	}
	if len(links) != 2 {
		t.Fatalf("links events = %d, want 2: %q", len(links), links)
	}
	if !strings.Contains(links[0], `{"vaults":["vault1"]}`) {
		t.Errorf("first links.updated = %q", links[0])
	}
	if !strings.Contains(links[1], `{"vaults":["vault1","vault2"]}`) {
		t.Errorf("trailing links.updated = %q", links[1])
	}
}

func TestPublishNoteEvent_ThrottleExpires(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("deleted", "vault1", "a")
	time.Sleep(100 * time.Millisecond)
	b.PublishNoteEvent("deleted", "vault2", "a")
	time.Sleep(50 * time.Millisecond)

	if n := countType(drain(ch), EventLinksUpdated); n != 2 {
		t.Errorf("links events = %d, want 2", n)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?vault=vault1", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishNoteEvent("updated", "vault1", "x")
	b.PublishNoteEvent("updated", "vault2", "y")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"fname":"x"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, `"fname":"y"`) {
		t.Errorf("handler output has an event of another vault: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// More than the client buffer; must not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// No-ops after close.
	b.Publish(Event{Type: EventNoteUpdated})
	b.PublishNoteEvent("updated", "vault1", "x")
	if ch := b.Subscribe(""); ch == nil {
		t.Fatal("Subscribe after close returned nil")
	}
}
