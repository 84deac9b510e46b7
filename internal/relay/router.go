// Package relay routes inbound client events: rate-limit gate, dedupe gate
// for private messages, target resolution, and fan-out.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Router dispatches one inbound event at a time per connection. Malformed
// payloads are dropped without a reply; only rate-limit rejections are
// surfaced back to the sender.
type Router struct {
	limiter  *RateLimiter
	dedupe   *DedupeCache
	registry *Registry
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewRouter wires the router to its gates and the membership registry.
// notifier may be nil when push delivery is disabled.
func NewRouter(limiter *RateLimiter, dedupe *DedupeCache, registry *Registry, notifier Notifier, log *zap.Logger) *Router {
	return &Router{
		limiter:  limiter,
		dedupe:   dedupe,
		registry: registry,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Dispatch processes a single raw frame from the given connection.
func (rt *Router) Dispatch(connID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		rt.log.Debug("drop frame: bad envelope", zap.String("conn", connID), zap.Error(err))
		return
	}
	if env.Event == "" {
		rt.log.Debug("drop frame: missing event name", zap.String("conn", connID))
		return
	}

	if !rt.limiter.Allow(connID, env.Event) {
		rt.log.Info("rate limit exceeded",
			zap.String("conn", connID), zap.String("event", env.Event))
		rt.registry.EmitTo(connID, EventError,
			fmt.Sprintf("You are sending %s events too quickly. Please slow down.", env.Event))
		return
	}

	switch env.Event {
	case EventJoinRoom:
		rt.handleJoin(connID, env.Data)
	case EventMessage:
		rt.handleMessage(connID, env.Data)
	case EventPrivateMessage:
		rt.handlePrivateMessage(connID, env.Data)
	case EventReaction, EventTyping, EventCallCandidate:
		rt.forwardToField(connID, env.Event, env.Data, fieldTarget)
	case EventCallAccepted:
		rt.forwardToField(connID, env.Event, env.Data, fieldTo)
	case EventCallUser:
		rt.handleCallUser(connID, env.Data)
	case EventEndCall, EventCallDeclined:
		rt.handleCallTeardown(connID, env.Event, env.Data)
	case EventLiveScript:
		rt.handleLiveScript(connID, env.Data)
	default:
		rt.log.Debug("drop frame: unknown event",
			zap.String("conn", connID), zap.String("event", env.Event))
	}
}

// field selectors for the generic forwarding path.
type fieldSelector func(eventFields) string

func fieldTarget(f eventFields) string { return f.Target }
func fieldTo(f eventFields) string     { return f.To }

func decodeFields(data json.RawMessage) (eventFields, bool) {
	var f eventFields
	if len(data) == 0 {
		return f, false
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, false
	}
	return f, true
}

func (rt *Router) handleJoin(connID string, data json.RawMessage) {
	var identity string
	if err := json.Unmarshal(data, &identity); err != nil {
		rt.log.Debug("drop join: non-string identity", zap.String("conn", connID))
		return
	}
	room := NormalizeIdentity(identity)
	if room == "" {
		return
	}
	rt.registry.Join(connID, room)
	rt.log.Info("joined room", zap.String("conn", connID), zap.String("room", room))
}

// handleMessage broadcasts to the global room, or to the target's mailbox
// when the optional target field is present.
func (rt *Router) handleMessage(connID string, data json.RawMessage) {
	f, ok := decodeFields(data)
	if !ok {
		rt.log.Debug("drop message: bad payload", zap.String("conn", connID))
		return
	}
	room := NormalizeIdentity(f.Target)
	if room == "" {
		room = GlobalRoom
	}
	rt.registry.Emit(room, EventMessage, data)
}

func (rt *Router) handlePrivateMessage(connID string, data json.RawMessage) {
	f, ok := decodeFields(data)
	if !ok {
		rt.log.Debug("drop private message: bad payload", zap.String("conn", connID))
		return
	}
	room := NormalizeIdentity(f.TargetID)
	if room == "" {
		return
	}

	if !rt.dedupe.ShouldForward(dedupeKey(f), room, rt.now()) {
		rt.log.Debug("suppress duplicate private message",
			zap.String("conn", connID), zap.String("room", room))
		return
	}

	rt.registry.Emit(room, EventPrivateMessage, data)

	if rt.notifier != nil && f.PushToken != "" && f.Text != "" {
		go func(token, text string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := rt.notifier.Push(ctx, token, text); err != nil {
				rt.log.Warn("push notification failed", zap.Error(err))
			}
		}(f.PushToken, f.Text)
	}
}

// dedupeKey fingerprints a private message. Messages without an id fall
// back to (timestamp, sender), which is best-effort idempotence for naive
// client retries, not a uniqueness guarantee.
func dedupeKey(f eventFields) string {
	if f.ID != "" {
		return f.ID
	}
	return fmt.Sprintf("ts:%s|%s", f.Timestamp, f.SenderID)
}

// forwardToField re-emits the event unchanged to the room named by the
// selected payload field. Empty or malformed targets drop silently.
func (rt *Router) forwardToField(connID, event string, data json.RawMessage, sel fieldSelector) {
	f, ok := decodeFields(data)
	if !ok {
		rt.log.Debug("drop frame: bad payload",
			zap.String("conn", connID), zap.String("event", event))
		return
	}
	room := NormalizeIdentity(sel(f))
	if room == "" {
		return
	}
	rt.registry.Emit(room, event, data)
}

func (rt *Router) handleCallUser(connID string, data json.RawMessage) {
	var p callUserPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		rt.log.Debug("drop call: bad payload", zap.String("conn", connID))
		return
	}
	room := NormalizeIdentity(p.To)
	if room == "" {
		return
	}
	rt.registry.Emit(room, EventIncomingCall, incomingCallPayload{
		From:           p.From,
		Offer:          p.Offer,
		EncryptedOffer: p.EncryptedOffer,
		Type:           p.Type,
	})
}

// handleCallTeardown forwards end_call and call_declined with no payload,
// and only when the to field resolves to a room.
func (rt *Router) handleCallTeardown(connID, event string, data json.RawMessage) {
	f, ok := decodeFields(data)
	if !ok {
		rt.log.Debug("drop call teardown: bad payload",
			zap.String("conn", connID), zap.String("event", event))
		return
	}
	room := NormalizeIdentity(f.To)
	if room == "" {
		return
	}
	rt.registry.Emit(room, event, nil)
}

func (rt *Router) handleLiveScript(connID string, data json.RawMessage) {
	f, ok := decodeFields(data)
	if !ok {
		rt.log.Debug("drop transcript: bad payload", zap.String("conn", connID))
		return
	}
	room := NormalizeIdentity(f.Target)
	if room == "" {
		return
	}
	rt.registry.Emit(room, EventLiveScript, liveScriptPayload{Text: f.Text, From: connID})
}
