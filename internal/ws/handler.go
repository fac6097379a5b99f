package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-console/internal/hub"
	"github.com/DoyleJ11/roster-console/internal/page"
	"github.com/DoyleJ11/roster-console/internal/types"
)

const writeTimeout = 3 * time.Second

var errUnknownType = errors.New("unknown type")

type Options struct {
	// OriginPatterns are passed to websocket.Accept; empty means same origin only.
	OriginPatterns []string
	Logger         *zap.Logger
}

// Handler gives every websocket connection its own page, registered in h
// under a fresh session id and removed when the connection ends.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		sessionID := uuid.NewString()
		reply := make(chan *page.Page, 1)
		var p *page.Page
		if send(r.Context(), h, hub.EnsurePage{SessionID: sessionID, Reply: reply}) {
			select {
			case p = <-reply:
			case <-h.Done():
			}
		}
		if p == nil {
			conn.Close(websocket.StatusTryAgainLater, "shutting down")
			return
		}
		defer send(context.Background(), h, hub.RemovePage{SessionID: sessionID})

		log := log.With(zap.String("session", sessionID))
		log.Info("session opened")
		defer log.Info("session closed")

		out := make(chan page.Snapshot, 8)
		viewerID := uuid.NewString()
		if !p.Send(page.Join{ViewerID: viewerID, Outbox: out}) {
			return
		}
		defer p.Send(page.Leave{ViewerID: viewerID})

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for snap := range out {
				if err := writeJSON(writeCtx, conn, snapshotMessage(snap)); err != nil {
					log.Debug("write snapshot", zap.Error(err))
					return
				}
			}
			// Page closed the outbox: it shut down or dropped us as too slow.
			conn.Close(websocket.StatusGoingAway, "page closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(writeCtx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if writeCtx.Err() == nil {
						log.Debug("read", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(writeCtx, conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			msg, err := toPageMsg(cm)
			if err != nil {
				_ = writeJSON(writeCtx, conn, types.ServerMessage{Type: "Error", Error: err.Error()})
				continue
			}

			if !p.Send(msg) {
				return
			}
		}
	}
}

func toPageMsg(m types.ClientMessage) (page.Msg, error) {
	switch m.Type {
	case "Click":
		return page.Click{NodeID: m.Node}, nil
	case "Submit":
		return page.Submit{Email: m.Email, Activity: m.Activity}, nil
	default:
		return nil, errUnknownType
	}
}

func snapshotMessage(snap page.Snapshot) types.ServerMessage {
	return types.ServerMessage{
		Type:       "Snapshot",
		Version:    snap.Version,
		Activities: snap.Activities,
		Options:    snap.Options,
		Notice: &types.Notice{
			Kind:    string(snap.Notice.Kind),
			Text:    snap.Notice.Text,
			Visible: snap.Notice.Visible,
		},
		ResetForm: snap.ResetForm,
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func send(ctx context.Context, h *hub.Hub, m hub.HubMsg) bool {
	select {
	case h.Inbox() <- m:
		return true
	case <-h.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
