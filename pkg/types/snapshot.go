package types

// Console websocket protocol (GET /ws)
//
// Client -> Server
// Click:
//   node: string            // data-nid of the clicked element
//
// Submit:
//   email: string
//   activity: string
//
// Server -> Client
// Snapshot:
//   version: number
//   activities: string      // inner HTML of #activities-list
//   options: string         // inner HTML of #activity
//   notice: { kind: "success" | "error", text: string, visible: boolean }
//   reset_form: boolean     // true once, right after a successful signup
//
// Error:
//   version: number         // always 0
//   error: string
