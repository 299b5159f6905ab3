package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/dicebox/internal/platform/id"
	"github.com/louisbranch/dicebox/internal/platform/timeouts"
)

func newWSSession(name string, locale string, peer *wsPeer) *wsSession {
	return &wsSession{
		name:   name,
		locale: locale,
		peer:   peer,
	}
}

func (s *wsSession) join(next *tableRoom, name string) *tableRoom {
	s.mu.Lock()
	previous := s.room
	s.room = next
	if name != "" {
		s.name = name
	}
	s.mu.Unlock()
	return previous
}

func (s *wsSession) currentRoom() *tableRoom {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	return room
}

func (s *wsSession) playerName() string {
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()
	return name
}

// wsPeer serializes writes to one connection. A nil conn skips deadlines.
type wsPeer struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn, encoder: json.NewEncoder(conn)}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.SetWriteDeadline(time.Now().Add(timeouts.WebSocketWrite))
	}
	return p.encoder.Encode(frame)
}

type roomHub struct {
	mu    sync.Mutex
	rooms map[string]*tableRoom
}

func newRoomHub() *roomHub {
	return &roomHub{rooms: make(map[string]*tableRoom)}
}

// join subscribes peer to the named room, creating it when needed. Lookup
// and subscription share h.mu so release cannot drop the room in between.
func (h *roomHub) join(name string, peer *wsPeer) (*tableRoom, int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[name]
	if !ok {
		room = newTableRoom(name)
		h.rooms[name] = room
	}
	return room, room.join(peer)
}

// release drops an empty room so its log does not outlive its players.
func (h *roomHub) release(room *tableRoom) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.rooms[room.name]; ok && current == room && room.empty() {
		delete(h.rooms, room.name)
	}
}

type tableRoom struct {
	mu               sync.Mutex
	name             string
	nextSequence     int64
	messages         []tableMessage
	idempotencyBy    map[string]tableMessage
	idempotencyOrder []string
	subscribers      map[*wsPeer]struct{}
}

func newTableRoom(name string) *tableRoom {
	return &tableRoom{
		name:          name,
		idempotencyBy: make(map[string]tableMessage),
		subscribers:   make(map[*wsPeer]struct{}),
	}
}

func (r *tableRoom) join(peer *wsPeer) int64 {
	r.mu.Lock()
	r.subscribers[peer] = struct{}{}
	latest := r.nextSequence
	r.mu.Unlock()
	return latest
}

func (r *tableRoom) leave(peer *wsPeer) bool {
	r.mu.Lock()
	delete(r.subscribers, peer)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	return empty
}

func (r *tableRoom) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers) == 0
}

// sent returns the message already recorded for clientMessageID.
func (r *tableRoom) sent(clientMessageID string) (tableMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.idempotencyBy[clientMessageID]
	return msg, ok
}

// appendMessage sequences draft into the log and returns the subscribers to
// broadcast to. A repeated client message id returns the first message.
func (r *tableRoom) appendMessage(draft tableMessage) (tableMessage, bool, []*wsPeer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.idempotencyBy[draft.ClientMessageID]; ok {
		return existing, true, nil
	}

	r.nextSequence++
	msg := draft
	msg.MessageID = newMessageID("msg")
	msg.Room = r.name
	msg.SequenceID = r.nextSequence
	msg.SentAt = time.Now().UTC().Format(time.RFC3339)

	r.messages = append(r.messages, msg)
	if len(r.messages) > maxRoomMessages {
		r.messages = r.messages[len(r.messages)-maxRoomMessages:]
	}

	r.idempotencyBy[msg.ClientMessageID] = msg
	r.idempotencyOrder = append(r.idempotencyOrder, msg.ClientMessageID)
	if len(r.idempotencyOrder) > maxIdempotencyRecord {
		evict := r.idempotencyOrder[0]
		r.idempotencyOrder = r.idempotencyOrder[1:]
		delete(r.idempotencyBy, evict)
	}

	subscribers := make([]*wsPeer, 0, len(r.subscribers))
	for subscriber := range r.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	return msg, false, subscribers
}

func (r *tableRoom) historyBefore(beforeSequenceID int64, limit int) []tableMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]tableMessage, 0, limit)
	for _, msg := range r.messages {
		if msg.SequenceID < beforeSequenceID {
			history = append(history, msg)
		}
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func newMessageID(prefix string) string {
	generated, err := id.NewID()
	if err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + generated
}
