package realtime

import (
	"github.com/rs/zerolog"

	"messenger/internal/pkg/logx"
)

// ReasonServerShutdown is sent to every connection when the server stops.
const ReasonServerShutdown = "Server shutting down"

// Hub bundles the connection registry, presence and the dispatcher that all
// live clients share.
type Hub struct {
	Conns      *Connections
	Presence   *Presence
	Dispatcher *Dispatcher

	logger zerolog.Logger
}

func NewHub() *Hub {
	conns := NewConnections()
	presence := NewPresence(conns)

	return &Hub{
		Conns:      conns,
		Presence:   presence,
		Dispatcher: NewDispatcher(presence, conns),
		logger:     logx.Component("hub"),
	}
}

// Attach makes c reachable for broadcasts and room delivery.
func (h *Hub) Attach(c Conn) {
	h.Conns.Add(c)
	h.logger.Debug().Str("conn_id", c.ID()).Int("open_conns", h.Conns.Count()).Msg("Connection attached")
}

// Detach releases every registration held by c. Safe to call more than once.
func (h *Hub) Detach(c Conn) {
	h.Presence.Unregister(c)
	if h.Conns.Remove(c) {
		h.logger.Debug().Str("conn_id", c.ID()).Int("open_conns", h.Conns.Count()).Msg("Connection detached")
	}
}

// Shutdown evicts every open connection.
func (h *Hub) Shutdown() {
	n := h.Conns.EvictAll(ReasonServerShutdown)
	h.logger.Info().Int("evicted", n).Msg("Hub shut down")
}
