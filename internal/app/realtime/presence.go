package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"messenger/internal/pkg/logx"
)

// ReasonSessionReplaced is sent to a connection superseded by a newer one for the same user.
const ReasonSessionReplaced = "Session replaced by a new connection"

// PresenceEntry binds a user to its single live connection.
type PresenceEntry struct {
	UserID      string
	Conn        Conn
	ConnectedAt time.Time
}

// Presence maps each online user to exactly one connection.
//
// The forward map (user -> entry) and the reverse map (conn -> user) always agree:
// a user id appears in byUser iff its entry's conn id maps back to it in byConn.
// Presence broadcasts are emitted while the lock is held so observers see
// userOnline/userOffline in the same order the registry changed.
type Presence struct {
	mu sync.Mutex

	byUser map[string]PresenceEntry
	byConn map[string]string

	conns *Connections
	now   func() time.Time

	logger zerolog.Logger
}

func NewPresence(conns *Connections) *Presence {
	return &Presence{
		byUser: make(map[string]PresenceEntry),
		byConn: make(map[string]string),
		conns:  conns,
		now:    time.Now,
		logger: logx.Component("presence"),
	}
}

// Register binds userID to c.
//
// A previous connection for the same user is evicted and its later disconnect is ignored.
// If c was bound to a different user, that user goes offline first.
// The new connection receives the online snapshot, then every connection is told the
// user is online.
func (p *Presence) Register(userID string, c Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	connID := c.ID()

	if prevUser, ok := p.byConn[connID]; ok && prevUser != userID {
		delete(p.byConn, connID)
		if e, ok := p.byUser[prevUser]; ok && e.Conn.ID() == connID {
			delete(p.byUser, prevUser)
		}
		p.logger.Info().Str("conn_id", connID).Str("user_id", prevUser).Msg("Connection rebound to another user")
		p.conns.ToAll(UserOffline(prevUser))
	}

	if prev, ok := p.byUser[userID]; ok && prev.Conn.ID() != connID {
		delete(p.byConn, prev.Conn.ID())

		p.logger.Warn().
			Str("user_id", userID).
			Str("old_conn_id", prev.Conn.ID()).
			Str("new_conn_id", connID).
			Msg("Superseding existing connection")

		prev.Conn.Send(SessionReplaced(ReasonSessionReplaced))
		prev.Conn.Evict(ReasonSessionReplaced)
	}

	p.byUser[userID] = PresenceEntry{UserID: userID, Conn: c, ConnectedAt: p.now()}
	p.byConn[connID] = userID

	c.Send(OnlineUsers(p.onlineLocked()))
	p.conns.ToAll(UserOnline(userID))
}

// Resolve returns the live connection of userID.
func (p *Presence) Resolve(userID string) (PresenceEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byUser[userID]
	return e, ok
}

// UserOf returns the user bound to connID.
func (p *Presence) UserOf(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.byConn[connID]
	return u, ok
}

// Unregister releases c's binding, if any, and announces the user offline.
// It is idempotent and a no-op for superseded or never-registered connections.
func (p *Presence) Unregister(c Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	connID := c.ID()
	userID, ok := p.byConn[connID]
	if !ok {
		return false
	}
	delete(p.byConn, connID)

	if e, ok := p.byUser[userID]; ok && e.Conn.ID() == connID {
		delete(p.byUser, userID)
	}

	p.logger.Info().Str("user_id", userID).Str("conn_id", connID).Msg("User went offline")
	p.conns.ToAll(UserOffline(userID))

	return true
}

// Online returns the ids of all online users in ascending order.
func (p *Presence) Online() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.onlineLocked()
}

func (p *Presence) onlineLocked() []string {
	ids := lo.Keys(p.byUser)
	sort.Strings(ids)
	return ids
}

// with runs fn on userID's connection while the registry lock is held, so the
// lookup and the enqueue are atomic with respect to Register and Unregister.
func (p *Presence) with(userID string, fn func(Conn) bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byUser[userID]
	if !ok {
		return false
	}
	return fn(e.Conn)
}

// withEach is like with for several users under a single lock acquisition.
func (p *Presence) withEach(userIDs []string, fn func(Conn) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, id := range userIDs {
		if e, ok := p.byUser[id]; ok && fn(e.Conn) {
			n++
		}
	}
	return n
}
