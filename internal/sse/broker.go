// Package sse streams note and link changes to HTTP clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	EventNoteCreated  = "note.created"
	EventNoteUpdated  = "note.updated"
	EventNoteDeleted  = "note.deleted"
	EventLinksUpdated = "links.updated"
)

// noteEventTypes maps index watcher kinds to event types.
var noteEventTypes = map[string]string{
	"created": EventNoteCreated,
	"updated": EventNoteUpdated,
	"deleted": EventNoteDeleted,
}

// heartbeat keeps idle connections open through proxies.
const heartbeat = 25 * time.Second

// Event is one message of the stream. A non-empty Vault limits delivery to
// clients watching that vault or all vaults.
type Event struct {
	Type  string `json:"type"`
	Vault string `json:"-"`
	Data  any    `json:"data"`
}

// NoteEvent is the payload of note.* events.
type NoteEvent struct {
	Vault string `json:"vault"`
	Fname string `json:"fname"`
}

// LinksUpdate is the payload of links.updated: the vaults whose link graph
// changed since the previous links.updated.
type LinksUpdate struct {
	Vaults []string `json:"vaults"`
}

type subscription struct {
	ch    chan []byte
	vault string
}

// Broker fans events out to subscribers.
//
// One goroutine owns the subscriber set, the event sequence and the
// links.updated throttle. Public methods talk to it over channels.
type Broker struct {
	linksMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. links.updated is sent at most once per
// linksThrottle; changes inside the window are announced when it ends.
func NewBroker(linksThrottle time.Duration) *Broker {
	if linksThrottle <= 0 {
		linksThrottle = 2 * time.Second
	}

	b := &Broker{
		linksMin:      linksThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// encode renders an event in wire format.
func encode(id uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(payload)+len(ev.Type)+32)
	msg = append(msg, "id: "...)
	msg = strconv.AppendUint(msg, id, 10)
	msg = append(msg, "\nevent: "...)
	msg = append(msg, ev.Type...)
	msg = append(msg, "\ndata: "...)
	msg = append(msg, payload...)
	return append(msg, "\n\n"...), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var (
		seq       uint64
		lastLinks time.Time
		pending   = make(map[string]struct{})
		flush     *time.Timer
		flushCh   <-chan time.Time
	)

	// broadcast delivers to every client when vaults is nil.
	broadcast := func(ev Event, vaults map[string]struct{}) {
		seq++
		raw, err := encode(seq, ev)
		if err != nil {
			return
		}
		for ch, want := range clients {
			if want != "" && vaults != nil {
				if _, ok := vaults[want]; !ok {
					continue
				}
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	sendLinks := func(now time.Time) {
		to := pending
		vaults := make([]string, 0, len(pending))
		for v := range pending {
			if v == "" {
				to = nil
				continue
			}
			vaults = append(vaults, v)
		}
		sort.Strings(vaults)
		broadcast(Event{Type: EventLinksUpdated, Data: LinksUpdate{Vaults: vaults}}, to)
		pending = make(map[string]struct{})
		lastLinks = now
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.vault

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			if ev.Type != EventLinksUpdated {
				var to map[string]struct{}
				if ev.Vault != "" {
					to = map[string]struct{}{ev.Vault: {}}
				}
				broadcast(ev, to)
				continue
			}
			pending[ev.Vault] = struct{}{}
			now := time.Now()
			if wait := b.linksMin - now.Sub(lastLinks); wait > 0 {
				if flushCh == nil {
					flush = time.NewTimer(wait)
					flushCh = flush.C
				}
				continue
			}
			sendLinks(now)

		case now := <-flushCh:
			flushCh = nil
			if len(pending) > 0 {
				sendLinks(now)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. An empty vault receives the events of every
// vault.
func (b *Broker) Subscribe(vault string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, vault: vault}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish queues an event for delivery.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// PublishNoteEvent announces a note change followed by a throttled
// links.updated. kind is created, updated or deleted; other kinds are
// ignored. The signature matches index.EventCallback.
func (b *Broker) PublishNoteEvent(kind, vault, fname string) {
	typ, ok := noteEventTypes[kind]
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, Vault: vault, Data: NoteEvent{Vault: vault, Fname: fname}})
	b.Publish(Event{Type: EventLinksUpdated, Vault: vault})
}

// ServeHTTP streams events to one client. The optional vault query
// parameter restricts the stream to one vault.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("vault"))
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
