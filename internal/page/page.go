// Package page runs one console view: a single goroutine that owns the
// document and the engine state, executes engine events, and broadcasts
// snapshots to whoever is watching.
package page

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/DoyleJ11/roster-console/internal/apiclient"
	"github.com/DoyleJ11/roster-console/internal/dom"
	"github.com/DoyleJ11/roster-console/internal/engine"
	"github.com/DoyleJ11/roster-console/internal/roster"
)

const DefaultNoticeTTL = 5 * time.Second

// API is the activities API as the page uses it.
type API interface {
	FetchRoster(ctx context.Context) (roster.Roster, error)
	Signup(ctx context.Context, activity, email string) (string, error)
	Unregister(ctx context.Context, activity, email string) (string, error)
}

type Msg interface{ isPageMsg() }

// Click is a browser click on the element with the given node id.
type Click struct{ NodeID string }

func (Click) isPageMsg() {}

// Submit is the signup form being submitted with its current values.
type Submit struct {
	Email    string
	Activity string
}

func (Submit) isPageMsg() {}

type Join struct {
	ViewerID string
	Outbox   chan Snapshot // where this viewer wants to receive snapshots
}

func (Join) isPageMsg() {}

type Leave struct{ ViewerID string }

func (Leave) isPageMsg() {}

type Shutdown struct{}

func (Shutdown) isPageMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isPageMsg() {}

// Results of work done off the loop.
type rosterFetched struct {
	seq    uint64
	roster roster.Roster
	err    error
}

type mutationSettled struct {
	id      string
	message string
	err     error
}

type noticeExpired struct{ gen uint64 }

func (rosterFetched) isPageMsg()   {}
func (mutationSettled) isPageMsg() {}
func (noticeExpired) isPageMsg()   {}

type Form struct {
	Email    string
	Activity string
}

// Snapshot is what a viewer needs to draw the page. Markup carries node ids.
type Snapshot struct {
	Version    int
	Activities string
	Options    string
	Notice     engine.Notice
	ResetForm  bool
}

// View reflects internal state for tests and health reporting. Markup is the
// visible form, without node ids.
type View struct {
	Version    int
	NumViewers int
	State      engine.State
	Activities string
	Options    string
	Form       Form
	Message    string
	MessageCSS string
}

type Options struct {
	NoticeTTL time.Duration
	Logger    *zap.Logger
}

type Page struct {
	inbox   chan Msg
	api     API
	doc     *dom.Document
	state   engine.State
	version int
	viewers map[string]chan Snapshot

	// Controls disabled for an in-flight unregister, by node id. The node is
	// kept even after a render detaches it so re-enabling stays harmless.
	controls map[string]*html.Node

	noticeTTL   time.Duration
	noticeTimer *time.Timer

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPage starts the page loop and its initial roster load.
func NewPage(parent context.Context, api API, opts Options) *Page {
	ctx, cancel := context.WithCancel(parent)

	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	p := &Page{
		inbox:     make(chan Msg, 64),
		api:       api,
		doc:       dom.New(),
		state:     engine.NewEmptyState(),
		viewers:   make(map[string]chan Snapshot),
		controls:  make(map[string]*html.Node),
		noticeTTL: opts.NoticeTTL,
		log:       opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	go p.loop()
	p.Send(loadMsg{})
	return p
}

type loadMsg struct{}

func (loadMsg) isPageMsg() {}

// Done is closed once the page has shut down.
func (p *Page) Done() <-chan struct{} { return p.ctx.Done() }

// Send delivers a message unless the page is already gone, and reports
// whether it was delivered.
func (p *Page) Send(m Msg) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.inbox <- m:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Page) loop() {
	for {
		select {
		case <-p.ctx.Done():
			p.shutdown()
			return

		case m := <-p.inbox:
			switch msg := m.(type) {
			case Join:
				// Register viewer + send current snapshot immediately
				p.viewers[msg.ViewerID] = msg.Outbox
				msg.Outbox <- p.snapshot(false)

			case Leave:
				delete(p.viewers, msg.ViewerID)

			case loadMsg:
				p.apply(engine.Command{Type: engine.CmdLoad})

			case Submit:
				p.submit(msg)

			case Click:
				p.click(msg)

			case rosterFetched:
				p.apply(engine.Command{Type: engine.CmdRosterFetched, Seq: msg.seq, Roster: msg.roster, FetchErr: msg.err})

			case mutationSettled:
				p.apply(settleCommand(msg))

			case noticeExpired:
				p.apply(engine.Command{Type: engine.CmdNoticeExpired, Gen: msg.gen})

			case GetState:
				msg.Reply <- p.view()

			case Shutdown:
				p.shutdown()
				return
			}
		}
	}
}

func (p *Page) submit(msg Submit) {
	// Mirror what the user typed before anything else happens, so a failed
	// signup leaves the form as it was.
	_ = p.doc.SetValue(dom.EmailInput, msg.Email)
	_ = p.doc.SetValue(dom.ActivitySelect, msg.Activity)

	p.apply(engine.Command{Type: engine.CmdSubmitSignup, Email: msg.Email, Activity: msg.Activity})
}

// settleCommand classifies the outcome of an API call.
func settleCommand(msg mutationSettled) engine.Command {
	cmd := engine.Command{Type: engine.CmdMutationSettled, MutationID: msg.id}

	var apiErr *apiclient.APIError
	switch {
	case msg.err == nil:
		cmd.Outcome = engine.OutcomeSuccess
		cmd.Message = msg.message
	case errors.As(msg.err, &apiErr):
		cmd.Outcome = engine.OutcomeAPIError
		cmd.Message, _ = apiclient.Detail(msg.err)
	default:
		cmd.Outcome = engine.OutcomeTransportError
	}
	return cmd
}

func (p *Page) apply(cmd engine.Command) {
	events, newState, err := engine.Apply(p.state, cmd)
	if err != nil {
		p.log.Debug("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		return
	}
	p.state = newState
	if len(events) == 0 {
		return
	}

	reset := false
	for _, ev := range events {
		if ev.Type == engine.EvtFormReset {
			reset = true
		}
		p.run(ev)
	}

	p.version++
	p.broadcast(p.snapshot(reset))
}

func (p *Page) shutdown() {
	if p.noticeTimer != nil {
		p.noticeTimer.Stop()
	}
	for id, ch := range p.viewers {
		close(ch) // Tell viewer no more snapshots
		delete(p.viewers, id)
	}
	p.cancel()
}

func (p *Page) broadcast(snap Snapshot) {
	for id, ch := range p.viewers {
		select {
		case ch <- snap:
			//ok
		default:
			// Viewer is slow/full - drop them.
			close(ch)
			delete(p.viewers, id)
		}
	}
}

func (p *Page) snapshot(reset bool) Snapshot {
	activities, err := p.doc.WireHTML(dom.ActivitiesList)
	if err != nil {
		p.log.Error("serialize activities", zap.Error(err))
	}
	options, err := p.doc.WireHTML(dom.ActivitySelect)
	if err != nil {
		p.log.Error("serialize options", zap.Error(err))
	}
	return Snapshot{
		Version:    p.version,
		Activities: activities,
		Options:    options,
		Notice:     p.state.Notice,
		ResetForm:  reset,
	}
}

func (p *Page) view() View {
	activities, _ := p.doc.InnerHTML(dom.ActivitiesList)
	options, _ := p.doc.InnerHTML(dom.ActivitySelect)
	msgNode, _ := p.doc.Region(dom.Message)
	return View{
		Version:    p.version,
		NumViewers: len(p.viewers),
		State:      p.state,
		Activities: activities,
		Options:    options,
		Form:       p.form(),
		Message:    p.doc.Text(dom.Message),
		MessageCSS: dom.Attr(msgNode, "class"),
	}
}

func (p *Page) form() Form {
	return Form{
		Email:    p.doc.Value(dom.EmailInput),
		Activity: p.doc.Value(dom.ActivitySelect),
	}
}
