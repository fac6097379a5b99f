package types

// ClientMessage is what the browser sends: "Click" or "Submit".
type ClientMessage struct {
	Type     string `json:"type"`
	Node     string `json:"node,omitempty"`
	Email    string `json:"email,omitempty"`
	Activity string `json:"activity,omitempty"`
}

type Notice struct {
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

type ServerMessage struct {
	Type       string  `json:"type"` // "Snapshot" | "Error"
	Version    int     `json:"version"`
	Activities string  `json:"activities,omitempty"`
	Options    string  `json:"options,omitempty"`
	Notice     *Notice `json:"notice,omitempty"`
	ResetForm  bool    `json:"reset_form,omitempty"`
	Error      string  `json:"error,omitempty"`
}
