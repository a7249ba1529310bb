package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu      sync.Mutex
	events  []*Event
	evicted []string
	closed  bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(evt *Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, evt)
	return true
}

func (f *fakeConn) Evict(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, reason)
	f.closed = true
}

func (f *fakeConn) kinds() []EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventKind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func (f *fakeConn) count(kind EventKind) int {
	n := 0
	for _, k := range f.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (f *fakeConn) last() *Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

func attach(h *Hub, ids ...string) []*fakeConn {
	out := make([]*fakeConn, 0, len(ids))
	for _, id := range ids {
		c := newFakeConn(id)
		h.Attach(c)
		out = append(out, c)
	}
	return out
}

func TestRegister_SendsSnapshotThenBroadcast(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1", "c2")

	h.Presence.Register("alice", conns[0])

	req.Equal([]EventKind{EventOnlineUsers, EventUserOnline}, conns[0].kinds())
	req.Equal([]string{"alice"}, conns[0].events[0].Payload)
	req.Equal([]EventKind{EventUserOnline}, conns[1].kinds())

	h.Presence.Register("bob", conns[1])
	req.Equal([]string{"alice", "bob"}, conns[1].events[1].Payload)
	req.Equal([]string{"alice", "bob"}, h.Presence.Online())
}

func TestRegister_SupersedesPreviousConnection(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1", "c2", "watcher")
	first, second, watcher := conns[0], conns[1], conns[2]

	h.Presence.Register("alice", first)
	h.Presence.Register("alice", second)

	// The old connection is told why, then closed
	req.Contains(first.kinds(), EventSessionReplaced)
	req.Equal([]string{ReasonSessionReplaced}, first.evicted)

	e, ok := h.Presence.Resolve("alice")
	req.True(ok)
	req.Equal("c2", e.Conn.ID())

	// When the superseded connection finally disconnects
	watcher.reset()
	h.Detach(first)

	// Then alice stays online and nobody hears userOffline
	e, ok = h.Presence.Resolve("alice")
	req.True(ok)
	req.Equal("c2", e.Conn.ID())
	req.Zero(watcher.count(EventUserOffline))
}

func TestUnregister_IsIdempotent(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1", "watcher")
	c1, watcher := conns[0], conns[1]

	h.Presence.Register("alice", c1)
	watcher.reset()

	req.True(h.Presence.Unregister(c1))
	req.False(h.Presence.Unregister(c1))
	h.Detach(c1)

	_, ok := h.Presence.Resolve("alice")
	req.False(ok)
	_, ok = h.Presence.UserOf("c1")
	req.False(ok)
	req.Equal(1, watcher.count(EventUserOffline))
	req.Equal("alice", watcher.last().Payload)
}

func TestUnregister_NeverRegisteredIsSilent(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "anon", "watcher")

	h.Detach(conns[0])

	req.Empty(conns[1].kinds())
	req.Equal(1, h.Conns.Count())
}

func TestRegister_RebindingReleasesOldIdentity(t *testing.T) {
	req := require.New(t)
	h := NewHub()
	conns := attach(h, "c1", "watcher")
	c1, watcher := conns[0], conns[1]

	h.Presence.Register("alice", c1)
	watcher.reset()

	h.Presence.Register("bob", c1)

	req.Equal([]EventKind{EventUserOffline, EventUserOnline}, watcher.kinds())
	_, ok := h.Presence.Resolve("alice")
	req.False(ok)

	u, ok := h.Presence.UserOf("c1")
	req.True(ok)
	req.Equal("bob", u)
	req.Equal([]string{"bob"}, h.Presence.Online())
}

func TestPresence_ConcurrentRegisterKeepsMapsConsistent(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	var wg sync.WaitGroup
	conns := make([]*fakeConn, 50)
	for i := range conns {
		conns[i] = newFakeConn("c" + string(rune('A'+i)))
		h.Attach(conns[i])
	}

	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *fakeConn) {
			defer wg.Done()
			h.Presence.Register("user", c)
			if i%2 == 0 {
				h.Detach(c)
			}
		}(i, c)
	}
	wg.Wait()

	// Either nobody or exactly one live connection owns the user, and the reverse index agrees
	if e, ok := h.Presence.Resolve("user"); ok {
		u, ok := h.Presence.UserOf(e.Conn.ID())
		req.True(ok)
		req.Equal("user", u)
	}
	req.LessOrEqual(len(h.Presence.Online()), 1)
}
