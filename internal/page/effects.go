package page

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/DoyleJ11/roster-console/internal/dom"
	"github.com/DoyleJ11/roster-console/internal/engine"
	"github.com/DoyleJ11/roster-console/internal/render"
)

// delegate maps a control role to the command its activation produces. One
// table serves every render: controls are recreated each time, the table is not.
type delegate struct {
	role    string
	region  string
	command func(control *html.Node) engine.Command
}

var clickDelegates = []delegate{
	{
		role:   render.RoleRemoveParticipant,
		region: dom.ActivitiesList,
		command: func(control *html.Node) engine.Command {
			return engine.Command{
				Type:      engine.CmdActivateRemove,
				ControlID: dom.NodeID(control),
				Activity:  dom.Data(control, "activity"),
				Email:     dom.Data(control, "email"),
			}
		},
	},
}

func (p *Page) click(msg Click) {
	target := p.doc.Node(msg.NodeID)
	if target == nil {
		// Stale or unknown node: markup from an earlier render.
		p.log.Debug("click on unknown node", zap.String("node", msg.NodeID))
		return
	}

	for _, d := range clickDelegates {
		control := dom.Closest(target, d.role)
		if control == nil || !p.doc.Contains(d.region, control) {
			continue
		}
		if dom.Disabled(control) {
			return
		}
		p.apply(d.command(control))
		return
	}
}

// run performs the side effect of one engine event.
func (p *Page) run(ev engine.Event) {
	switch ev.Type {
	case engine.EvtFetchRequested:
		go p.fetch(ev.Seq)

	case engine.EvtRosterReplaced:
		if err := render.Render(p.doc, p.state.Roster); err != nil {
			p.log.Error("render roster", zap.Error(err))
		}

	case engine.EvtRosterFailed:
		p.log.Error("error fetching activities", zap.Uint64("seq", ev.Seq), zap.Error(ev.Err))
		if err := render.RenderFailure(p.doc); err != nil {
			p.log.Error("render failure state", zap.Error(err))
		}

	case engine.EvtSignupRequested:
		go p.signup(ev.MutationID, ev.Activity, ev.Email)

	case engine.EvtUnregisterRequested:
		go p.unregister(ev.MutationID, ev.Activity, ev.Email)

	case engine.EvtControlDisabled:
		control := p.doc.Node(ev.ControlID)
		dom.SetDisabled(control, true)
		p.controls[ev.ControlID] = control

	case engine.EvtControlEnabled:
		dom.SetDisabled(p.controls[ev.ControlID], false)
		delete(p.controls, ev.ControlID)

	case engine.EvtNoticeShown:
		p.showNotice(ev.Notice)

	case engine.EvtNoticeHidden:
		_ = p.doc.ToggleClass(dom.Message, "hidden", true)

	case engine.EvtFormReset:
		_ = p.doc.ResetForm(dom.SignupForm)
	}
}

// showNotice fills the single message slot and rearms its one timer.
func (p *Page) showNotice(n engine.Notice) {
	_ = p.doc.SetText(dom.Message, n.Text)
	_ = p.doc.SetClass(dom.Message, string(n.Kind))

	if p.noticeTimer != nil {
		p.noticeTimer.Stop()
	}
	gen := n.Gen
	p.noticeTimer = time.AfterFunc(p.noticeTTL, func() {
		p.Send(noticeExpired{gen: gen})
	})
}

func (p *Page) fetch(seq uint64) {
	r, err := p.api.FetchRoster(p.ctx)
	p.Send(rosterFetched{seq: seq, roster: r, err: err})
}

func (p *Page) signup(id, activity, email string) {
	msg, err := p.api.Signup(p.ctx, activity, email)
	if err != nil {
		p.log.Warn("error signing up",
			zap.String("activity", activity), zap.String("email", email), zap.Error(err))
	}
	p.Send(mutationSettled{id: id, message: msg, err: err})
}

func (p *Page) unregister(id, activity, email string) {
	msg, err := p.api.Unregister(p.ctx, activity, email)
	if err != nil {
		p.log.Warn("error unregistering participant",
			zap.String("activity", activity), zap.String("email", email), zap.Error(err))
	}
	p.Send(mutationSettled{id: id, message: msg, err: err})
}
