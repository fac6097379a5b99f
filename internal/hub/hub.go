// Package hub keeps the live pages, one per browser session.
package hub

import (
	"context"

	"github.com/DoyleJ11/roster-console/internal/page"
)

// Factory starts a page bound to ctx.
type Factory func(ctx context.Context) *page.Page

type HubMsg interface{ isHubMsg() }

// EnsurePage returns the session's page, starting one if needed.
type EnsurePage struct {
	SessionID string
	Reply     chan *page.Page
}

type RemovePage struct {
	SessionID string
}

type CountPages struct {
	Reply chan int
}

type ShutdownHub struct{}

func (EnsurePage) isHubMsg()  {}
func (RemovePage) isHubMsg()  {}
func (CountPages) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	pages   map[string]*page.Page
	newPage Factory
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, newPage Factory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		pages:   make(map[string]*page.Page),
		newPage: newPage,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsurePage:
				if p := h.live(msg.SessionID); p != nil {
					msg.Reply <- p
					break
				}
				p := h.newPage(h.ctx)
				h.pages[msg.SessionID] = p
				msg.Reply <- p

			case RemovePage:
				if p := h.pages[msg.SessionID]; p != nil {
					p.Send(page.Shutdown{})
					delete(h.pages, msg.SessionID)
				}

			case CountPages:
				msg.Reply <- len(h.pages)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// live returns the session's page unless it has already shut down.
func (h *Hub) live(sessionID string) *page.Page {
	p := h.pages[sessionID]
	if p == nil {
		return nil
	}
	select {
	case <-p.Done():
		delete(h.pages, sessionID)
		return nil
	default:
		return p
	}
}

func (h *Hub) shutdown() {
	for _, p := range h.pages {
		p.Send(page.Shutdown{})
	}
	clear(h.pages)
	h.cancel()
}
