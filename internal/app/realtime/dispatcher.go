package realtime

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"messenger/internal/pkg/logx"
)

// Dispatcher routes events to users, rooms and connections.
// Delivery is best effort: offline targets are skipped and no error is ever returned.
type Dispatcher struct {
	presence *Presence
	conns    *Connections
	logger   zerolog.Logger
}

func NewDispatcher(presence *Presence, conns *Connections) *Dispatcher {
	return &Dispatcher{
		presence: presence,
		conns:    conns,
		logger:   logx.Component("dispatcher"),
	}
}

func send(evt *Event) func(Conn) bool {
	return func(c Conn) bool { return c.Send(evt) }
}

// SendToUser delivers evt to the user's live connection, if any.
func (d *Dispatcher) SendToUser(userID string, evt *Event) bool {
	ok := d.presence.with(userID, send(evt))
	if !ok {
		d.logger.Debug().Str("user_id", userID).Str("event", string(evt.Kind)).Msg("User offline, event skipped")
	}
	return ok
}

// SendToUsers delivers evt once to each distinct online user in userIDs, skipping exclude.
func (d *Dispatcher) SendToUsers(userIDs []string, evt *Event, exclude ...string) int {
	targets := lo.Without(lo.Uniq(userIDs), exclude...)
	return d.presence.withEach(targets, send(evt))
}

// SendToRoom delivers evt to every connection in room except exceptConnID.
func (d *Dispatcher) SendToRoom(room string, evt *Event, exceptConnID string) int {
	return d.conns.ToRoom(room, evt, exceptConnID)
}

// BroadcastAll delivers evt to every open connection.
func (d *Dispatcher) BroadcastAll(evt *Event) int {
	return d.conns.ToAll(evt)
}

// SendToConn delivers evt to a single connection by id.
func (d *Dispatcher) SendToConn(connID string, evt *Event) bool {
	return d.conns.ToConn(connID, evt)
}

// EvictUser ends the live connection of userID, if any.
func (d *Dispatcher) EvictUser(userID, reason string) bool {
	return d.presence.with(userID, func(c Conn) bool {
		d.logger.Warn().Str("user_id", userID).Str("reason", reason).Msg("Evicting user connection")
		c.Evict(reason)
		return true
	})
}
