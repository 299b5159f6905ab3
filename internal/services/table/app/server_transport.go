package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/dicebox/internal/dice"
	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	"github.com/louisbranch/dicebox/internal/platform/i18n/catalog"
	diceservice "github.com/louisbranch/dicebox/internal/services/dice/api/grpc/dice"
	"github.com/louisbranch/dicebox/internal/services/shared/i18nhttp"
)

// rollCommand prefixes a chat body that should be rolled.
const rollCommand = "/roll"

// NewHandler creates the table routes: the roller page, its form endpoint,
// the websocket and a health check.
func NewHandler(backend Dice) http.Handler {
	hub := newRoomHub()
	pages := pageHandler{dice: backend}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /{$}", pages.index)
	mux.HandleFunc("POST /roll", pages.roll)

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, hub, backend)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

func handleWSConn(conn *websocket.Conn, hub *roomHub, backend Dice) {
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	locale := catalog.BaseLocale
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		tag, _ := i18nhttp.ResolveTag(request)
		locale = tag.String()
	}

	decoder := json.NewDecoder(conn)
	session := newWSSession("player", locale, newWSPeer(conn))
	defer func() {
		if room := session.currentRoom(); room != nil {
			leaveRoom(hub, room, session.peer)
		}
	}()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(session.peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case "table.join":
			handleJoinFrame(session, hub, frame)
		case "table.send":
			handleSendFrame(ctx, session, backend, frame)
		case "table.history.before":
			handleHistoryBeforeFrame(session, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func leaveRoom(hub *roomHub, room *tableRoom, peer *wsPeer) {
	if room == nil || peer == nil {
		return
	}
	if room.leave(peer) {
		hub.release(room)
	}
}

func handleJoinFrame(session *wsSession, hub *roomHub, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
		return
	}

	roomName := strings.TrimSpace(payload.Room)
	if roomName == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "room is required")
		return
	}
	if utf8.RuneCountInString(roomName) > maxRoomNameRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "room must be at most 64 characters")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if utf8.RuneCountInString(name) > maxPlayerNameRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "name must be at most 64 characters")
		return
	}

	room, latest := hub.join(roomName, session.peer)
	previous := session.join(room, name)
	if previous != nil && previous != room {
		leaveRoom(hub, previous, session.peer)
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			Room:             roomName,
			LatestSequenceID: latest,
			ServerTime:       time.Now().UTC().Format(time.RFC3339),
		}),
	})
	printer := catalog.Printer(session.locale)
	_ = session.peer.writeFrame(wsFrame{
		Type: "table.message",
		Payload: mustJSON(messageEnvelope{
			Message: tableMessage{
				MessageID:  newMessageID("sys"),
				Room:       roomName,
				SequenceID: latest,
				SentAt:     time.Now().UTC().Format(time.RFC3339),
				Kind:       "system",
				Actor:      "system",
				Body:       printer.Sprintf("dice.table.joined", session.playerName()),
			},
		}),
	})
}

func handleSendFrame(ctx context.Context, session *wsSession, backend Dice, frame wsFrame) {
	var payload sendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid send payload")
		return
	}

	clientMessageID := strings.TrimSpace(payload.ClientMessageID)
	if clientMessageID == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "client_message_id is required")
		return
	}
	if utf8.RuneCountInString(clientMessageID) > maxClientMessageIDRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "client_message_id must be at most 128 characters")
		return
	}

	body := strings.TrimSpace(payload.Body)
	if body == "" {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "body is required")
		return
	}
	if utf8.RuneCountInString(body) > maxMessageBodyRunes {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "body must be at most 2000 characters")
		return
	}

	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join a room before sending")
		return
	}

	// A retried roll must not roll again.
	if existing, ok := room.sent(clientMessageID); ok {
		writeAck(session.peer, frame.RequestID, existing)
		return
	}

	draft := tableMessage{
		Kind:            "text",
		Actor:           session.playerName(),
		Body:            body,
		ClientMessageID: clientMessageID,
	}
	if expr, ok := rollExpression(body); ok {
		draft = rollMessage(ctx, backend, session.locale, draft, expr)
	}

	msg, duplicate, subscribers := room.appendMessage(draft)
	writeAck(session.peer, frame.RequestID, msg)
	if duplicate {
		return
	}

	messageFrame := wsFrame{
		Type:    "table.message",
		Payload: mustJSON(messageEnvelope{Message: msg}),
	}
	for _, subscriber := range subscribers {
		_ = subscriber.writeFrame(messageFrame)
	}
}

// rollExpression reports whether body is a roll command and returns its
// expression with any inline code markers removed.
func rollExpression(body string) (string, bool) {
	rest, ok := strings.CutPrefix(body, rollCommand)
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return dice.StripCode(rest), true
}

func rollMessage(ctx context.Context, backend Dice, locale string, draft tableMessage, expr string) tableMessage {
	printer := catalog.Printer(locale)
	draft.Kind = "roll"
	draft.Expression = expr
	roll, err := backend.Evaluate(ctx, diceservice.EvaluateRequest{Expression: expr})
	if err != nil {
		draft.Error = apperrors.MessageFor(err, locale)
		draft.Body = printer.Sprintf("dice.roll.error", draft.Error)
		return draft
	}
	draft.Display = roll.Display
	draft.Seed = roll.Seed
	draft.Body = printer.Sprintf("dice.roll.result", draft.Actor, dice.Markup(expr), roll.Display)
	return draft
}

func writeAck(peer *wsPeer, requestID string, msg tableMessage) {
	_ = peer.writeFrame(wsFrame{
		Type:      "table.ack",
		RequestID: requestID,
		Payload: mustJSON(ackEnvelope{
			Result: ackResult{
				Status:     "ok",
				MessageID:  msg.MessageID,
				SequenceID: msg.SequenceID,
			},
		}),
	})
}

func handleHistoryBeforeFrame(session *wsSession, frame wsFrame) {
	var payload historyBeforePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid history payload")
		return
	}
	if payload.BeforeSequenceID < 1 {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "before_sequence_id must be >= 1")
		return
	}
	if payload.Limit <= 0 {
		payload.Limit = defaultHistoryLimit
	}
	if payload.Limit > maxHistoryLimit {
		payload.Limit = maxHistoryLimit
	}

	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, "FORBIDDEN", "must join a room before requesting history")
		return
	}

	history := room.historyBefore(payload.BeforeSequenceID, payload.Limit)
	for _, msg := range history {
		_ = session.peer.writeFrame(wsFrame{
			Type:    "table.message",
			Payload: mustJSON(messageEnvelope{Message: msg}),
		})
	}
	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.ack",
		RequestID: frame.RequestID,
		Payload: mustJSON(ackEnvelope{
			Result: ackResult{
				Status: "ok",
				Count:  len(history),
			},
		}),
	})
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      "table.error",
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   message,
				Retryable: code == "RESOURCE_EXHAUSTED",
			},
		}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("table: marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
