package types

import "encoding/json"

// Activities API (consumed, not served)
//
// GET /activities?t=<unix millis>
//   200: { [name]: { description, schedule, max_participants, participants[] } }
//
// POST /activities/{name}/signup?email={email}
// DELETE /activities/{name}/participants?email={email}
//   2xx: MessageResponse
//   4xx: ErrorResponse   e.g. 400 "Student already signed up", 404 "Activity not found"

// MessageResponse is the success body of signup and unregister.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the failure body. Detail is usually a string but
// validation errors send a list, so it is kept raw.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail,omitempty"`
}
