package engine

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the single notification slot. Gen increases with every notice
// shown, so an expiry armed for an older notice can be recognized and ignored.
type Notice struct {
	Kind    NoticeKind
	Text    string
	Gen     uint64
	Visible bool
}

const (
	SignupFallback          = "An error occurred"
	SignupTransportText     = "Failed to sign up. Please try again."
	UnregisterFallback      = "Failed to unregister participant."
	UnregisterTransportText = "Failed to unregister participant. Please try again."
)

func showNotice(prev Notice, kind NoticeKind, text string) Notice {
	return Notice{Kind: kind, Text: text, Gen: prev.Gen + 1, Visible: true}
}

// settledNotice picks the best text available: the server's message or
// detail, else the flow's fallback.
func settledNotice(kind MutationKind, outcome Outcome, message string) Notice {
	switch outcome {
	case OutcomeSuccess:
		return Notice{Kind: NoticeSuccess, Text: message}
	case OutcomeAPIError:
		if message != "" {
			return Notice{Kind: NoticeError, Text: message}
		}
		if kind == MutationEnroll {
			return Notice{Kind: NoticeError, Text: SignupFallback}
		}
		return Notice{Kind: NoticeError, Text: UnregisterFallback}
	default:
		if kind == MutationEnroll {
			return Notice{Kind: NoticeError, Text: SignupTransportText}
		}
		return Notice{Kind: NoticeError, Text: UnregisterTransportText}
	}
}
