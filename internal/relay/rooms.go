// Package relay tracks room membership and fans events out to subscribed
// connections.
package relay

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Registry is the membership map between live connections and rooms, and
// the emit path that delivers events to them. Delivery is non-blocking: a
// connection whose outbound buffer is full has that one frame dropped so a
// slow receiver never stalls the router.
//
// With a bridge attached, emits are published on the shared channel named
// by the room key and local delivery happens in the subscription callback,
// so every instance (publisher included) delivers to its own members
// exactly once.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]chan<- []byte       // connection id -> outbound buffer
	rooms  map[string]map[string]struct{} // room key -> member connection ids
	byConn map[string]map[string]struct{} // connection id -> joined room keys

	bridge Bridge
	log    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]chan<- []byte),
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
		log:    log,
	}
}

// UseBridge attaches a cross-instance fan-out backend and starts receiving
// remote emits through it.
func (r *Registry) UseBridge(b Bridge) error {
	if err := b.Subscribe(r.deliverLocal); err != nil {
		return err
	}
	r.mu.Lock()
	r.bridge = b
	r.mu.Unlock()
	return nil
}

// Register makes a connection's outbound buffer addressable by emits. The
// connection starts with no room memberships.
func (r *Registry) Register(connID string, send chan<- []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = send
}

// Unregister removes the connection and all of its memberships. Safe to
// call for ids the registry has never seen. The caller may close the send
// channel once Unregister returns; no emit will touch it afterwards.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
	for room := range r.byConn[connID] {
		delete(r.rooms[room], connID)
		if len(r.rooms[room]) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(r.byConn, connID)
}

// Join subscribes the connection to a room. Rejoining is a no-op.
func (r *Registry) Join(connID, room string) {
	if room == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		return
	}

	members := r.rooms[room]
	if members == nil {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[connID] = struct{}{}

	joined := r.byConn[connID]
	if joined == nil {
		joined = make(map[string]struct{})
		r.byConn[connID] = joined
	}
	joined[room] = struct{}{}
}

// Rooms returns the rooms the connection currently belongs to.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byConn[connID]))
	for room := range r.byConn[connID] {
		out = append(out, room)
	}
	return out
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Emit delivers an event to every member of room. GlobalRoom reaches all
// registered connections. A failing bridge degrades to local delivery.
func (r *Registry) Emit(room, event string, data any) {
	frame, err := encodeEnvelope(event, data)
	if err != nil {
		r.log.Warn("drop emit: encode failed", zap.String("event", event), zap.Error(err))
		return
	}

	r.mu.RLock()
	bridge := r.bridge
	r.mu.RUnlock()

	if bridge != nil {
		err := bridge.Publish(room, frame)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrBridgeDisabled) {
			r.log.Warn("bridge publish failed, delivering locally",
				zap.String("room", room), zap.Error(err))
		}
	}

	r.deliverLocal(room, frame)
}

// EmitTo delivers an event to a single connection, bypassing rooms and the
// bridge. Used for sender-only notices such as rate-limit rejections.
func (r *Registry) EmitTo(connID, event string, data any) {
	frame, err := encodeEnvelope(event, data)
	if err != nil {
		r.log.Warn("drop direct emit: encode failed", zap.String("event", event), zap.Error(err))
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	send, ok := r.conns[connID]
	if !ok {
		return
	}
	select {
	case send <- frame:
	default:
		r.log.Debug("drop direct emit: receiver buffer full", zap.String("conn", connID))
	}
}

// deliverLocal pushes an encoded frame to every local member of room.
// Holding the read lock across the sends keeps them mutually exclusive
// with Unregister, so a closed buffer is never written.
func (r *Registry) deliverLocal(room string, frame []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if room == GlobalRoom {
		for id, send := range r.conns {
			select {
			case send <- frame:
			default:
				r.log.Debug("drop broadcast frame: receiver buffer full", zap.String("conn", id))
			}
		}
		return
	}

	for id := range r.rooms[room] {
		send, ok := r.conns[id]
		if !ok {
			continue
		}
		select {
		case send <- frame:
		default:
			r.log.Debug("drop room frame: receiver buffer full",
				zap.String("room", room), zap.String("conn", id))
		}
	}
}
