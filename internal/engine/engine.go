package engine

import (
	"errors"
	"maps"
	"strconv"

	"github.com/DoyleJ11/roster-console/internal/roster"
)

var ErrIncompleteForm = errors.New("email and activity are required")
var ErrMissingControlData = errors.New("remove control has no activity or email")
var ErrControlBusy = errors.New("remove control already has a request in flight")
var ErrUnknownMutation = errors.New("unknown mutation")
var ErrUnsupportedCommand = errors.New("unsupported command")

type RosterStatus string

const (
	RosterLoading RosterStatus = "loading"
	RosterReady   RosterStatus = "ready"
	RosterFailed  RosterStatus = "failed"
)

type MutationKind string

const (
	MutationEnroll     MutationKind = "enroll"
	MutationUnregister MutationKind = "unregister"
)

// Phase of a mutation held in State. Its request is handed off in the same
// step that records it, so the only phase held is awaiting_response; a
// settled mutation is removed, which is its return to idle.
type Phase string

const PhaseAwaiting Phase = "awaiting_response"

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeAPIError       Outcome = "api_error"
	OutcomeTransportError Outcome = "transport_error"
)

type Mutation struct {
	ID        string
	Kind      MutationKind
	Activity  string
	Email     string
	ControlID string // unregister only
	Phase     Phase
}

type State struct {
	Roster       roster.Roster
	RosterStatus RosterStatus

	// FetchSeq is the last fetch issued, AppliedSeq the last one whose
	// response was applied. Responses older than AppliedSeq are dropped.
	FetchSeq   uint64
	AppliedSeq uint64

	Mutations    map[string]Mutation
	NextMutation uint64

	Notice Notice
}

type CommandType string

const (
	CmdLoad            CommandType = "Load"
	CmdSubmitSignup    CommandType = "SubmitSignup"
	CmdActivateRemove  CommandType = "ActivateRemove"
	CmdRosterFetched   CommandType = "RosterFetched"
	CmdMutationSettled CommandType = "MutationSettled"
	CmdNoticeExpired   CommandType = "NoticeExpired"
)

/*
	CmdLoad            -> EvtFetchRequested
	CmdSubmitSignup    -> EvtSignupRequested
	CmdActivateRemove  -> EvtControlDisabled -> EvtUnregisterRequested
	CmdRosterFetched   -> EvtRosterReplaced | EvtRosterFailed | nothing if stale
	CmdMutationSettled -> [EvtControlEnabled] -> EvtNoticeShown -> success only: [EvtFormReset] -> EvtFetchRequested
	CmdNoticeExpired   -> EvtNoticeHidden | nothing if a newer notice took the slot
*/

type Command struct {
	Type CommandType

	Email     string
	Activity  string
	ControlID string

	Seq      uint64
	Roster   roster.Roster
	FetchErr error

	MutationID string
	Outcome    Outcome
	Message    string // server message on success, server detail on api_error

	Gen uint64
}

type EventType string

const (
	EvtFetchRequested      EventType = "FetchRequested"
	EvtRosterReplaced      EventType = "RosterReplaced"
	EvtRosterFailed        EventType = "RosterFailed"
	EvtSignupRequested     EventType = "SignupRequested"
	EvtUnregisterRequested EventType = "UnregisterRequested"
	EvtControlDisabled     EventType = "ControlDisabled"
	EvtControlEnabled      EventType = "ControlEnabled"
	EvtNoticeShown         EventType = "NoticeShown"
	EvtNoticeHidden        EventType = "NoticeHidden"
	EvtFormReset           EventType = "FormReset"
)

type Event struct {
	Type       EventType
	Seq        uint64
	MutationID string
	ControlID  string
	Activity   string
	Email      string
	Notice     Notice
	Err        error
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s
	newState.Mutations = maps.Clone(s.Mutations)
	if newState.Mutations == nil {
		newState.Mutations = map[string]Mutation{}
	}

	switch cmd.Type {
	case CmdLoad:
		newState.FetchSeq++
		return []Event{{Type: EvtFetchRequested, Seq: newState.FetchSeq}}, newState, nil

	case CmdSubmitSignup:
		if cmd.Email == "" || cmd.Activity == "" {
			return nil, s, ErrIncompleteForm
		}

		m := newMutation(&newState, MutationEnroll, cmd.Activity, cmd.Email)
		newState.Mutations[m.ID] = m

		events := []Event{
			{Type: EvtSignupRequested, MutationID: m.ID, Activity: m.Activity, Email: m.Email},
		}
		return events, newState, nil

	case CmdActivateRemove:
		if cmd.Activity == "" || cmd.Email == "" {
			return nil, s, ErrMissingControlData
		}
		if controlInFlight(s, cmd.ControlID) {
			return nil, s, ErrControlBusy
		}

		m := newMutation(&newState, MutationUnregister, cmd.Activity, cmd.Email)
		m.ControlID = cmd.ControlID
		newState.Mutations[m.ID] = m

		events := []Event{
			{Type: EvtControlDisabled, MutationID: m.ID, ControlID: m.ControlID},
			{Type: EvtUnregisterRequested, MutationID: m.ID, ControlID: m.ControlID, Activity: m.Activity, Email: m.Email},
		}
		return events, newState, nil

	case CmdRosterFetched:
		if cmd.Seq < s.AppliedSeq {
			// An older fetch finished after a newer one was applied.
			return nil, s, nil
		}
		newState.AppliedSeq = cmd.Seq

		if cmd.FetchErr != nil {
			newState.RosterStatus = RosterFailed
			return []Event{{Type: EvtRosterFailed, Seq: cmd.Seq, Err: cmd.FetchErr}}, newState, nil
		}

		// Wholesale replacement; nothing of the previous roster survives.
		newState.Roster = cmd.Roster
		newState.RosterStatus = RosterReady
		return []Event{{Type: EvtRosterReplaced, Seq: cmd.Seq}}, newState, nil

	case CmdMutationSettled:
		m, ok := s.Mutations[cmd.MutationID]
		if !ok {
			return nil, s, ErrUnknownMutation
		}
		delete(newState.Mutations, m.ID)

		events := []Event{}
		if m.ControlID != "" {
			// Re-enabled whatever the outcome.
			events = append(events, Event{Type: EvtControlEnabled, MutationID: m.ID, ControlID: m.ControlID})
		}

		notice := settledNotice(m.Kind, cmd.Outcome, cmd.Message)
		newState.Notice = showNotice(s.Notice, notice.Kind, notice.Text)
		events = append(events, Event{Type: EvtNoticeShown, MutationID: m.ID, Notice: newState.Notice})

		if cmd.Outcome != OutcomeSuccess {
			return events, newState, nil
		}

		if m.Kind == MutationEnroll {
			events = append(events, Event{Type: EvtFormReset, MutationID: m.ID})
		}
		newState.FetchSeq++
		events = append(events, Event{Type: EvtFetchRequested, Seq: newState.FetchSeq})
		return events, newState, nil

	case CmdNoticeExpired:
		if cmd.Gen != s.Notice.Gen || !s.Notice.Visible {
			return nil, s, nil
		}
		newState.Notice.Visible = false
		return []Event{{Type: EvtNoticeHidden, Notice: newState.Notice}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func newMutation(s *State, kind MutationKind, activity, email string) Mutation {
	s.NextMutation++
	return Mutation{
		ID:       string(kind) + "-" + strconv.FormatUint(s.NextMutation, 10),
		Kind:     kind,
		Activity: activity,
		Email:    email,
		Phase:    PhaseAwaiting,
	}
}

func controlInFlight(s State, controlID string) bool {
	if controlID == "" {
		return false
	}
	for _, m := range s.Mutations {
		if m.ControlID == controlID {
			return true
		}
	}
	return false
}
