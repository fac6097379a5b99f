package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/DoyleJ11/roster-console/internal/dom"
	"github.com/DoyleJ11/roster-console/internal/hub"
	"github.com/DoyleJ11/roster-console/internal/page"
	"github.com/DoyleJ11/roster-console/internal/render"
	"github.com/DoyleJ11/roster-console/internal/roster"
	"github.com/DoyleJ11/roster-console/internal/types"
)

type stubAPI struct{}

func (stubAPI) FetchRoster(context.Context) (roster.Roster, error) {
	return roster.New(roster.Activity{
		Name: "Chess Club", MaxParticipants: 3, Participants: []string{"michael@mergington.edu"},
	}), nil
}

func (stubAPI) Signup(_ context.Context, activity, email string) (string, error) {
	return "Signed up " + email + " for " + activity, nil
}

func (stubAPI) Unregister(_ context.Context, activity, email string) (string, error) {
	return "Unregistered " + email + " from " + activity, nil
}

func dial(t *testing.T) (*websocket.Conn, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, func(ctx context.Context) *page.Page {
		return page.NewPage(ctx, stubAPI{}, page.Options{})
	})
	srv := httptest.NewServer(Handler(h, Options{}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, h
}

func readMsg(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil reads messages until one satisfies cond.
func readUntil(t *testing.T, conn *websocket.Conn, cond func(types.ServerMessage) bool) types.ServerMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		if msg := readMsg(t, conn); cond(msg) {
			return msg
		}
	}
	t.Fatalf("no matching message")
	return types.ServerMessage{}
}

func writeMsg(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, payload))
}

func loaded(m types.ServerMessage) bool {
	return m.Type == "Snapshot" && strings.Contains(m.Activities, "Chess Club")
}

func TestHandler_StreamsRenderedRoster(t *testing.T) {
	conn, _ := dial(t)

	msg := readUntil(t, conn, loaded)
	assert.Contains(t, msg.Activities, dom.NodeIDAttr)
	assert.Contains(t, msg.Options, `<option value="Chess Club"`)
	require.NotNil(t, msg.Notice)
	assert.False(t, msg.Notice.Visible)
}

func TestHandler_ClickUnregistersThroughThePage(t *testing.T) {
	conn, _ := dial(t)
	msg := readUntil(t, conn, loaded)

	root, err := html.Parse(strings.NewReader("<div>" + msg.Activities + "</div>"))
	require.NoError(t, err)
	controls := dom.FindAll(root, render.RoleRemoveParticipant)
	require.Len(t, controls, 1)

	writeMsg(t, conn, types.ClientMessage{Type: "Click", Node: dom.NodeID(controls[0])})

	msg = readUntil(t, conn, func(m types.ServerMessage) bool { return m.Notice != nil && m.Notice.Visible })
	assert.Equal(t, "success", msg.Notice.Kind)
	assert.Equal(t, "Unregistered michael@mergington.edu from Chess Club", msg.Notice.Text)
}

func TestHandler_SubmitResetsForm(t *testing.T) {
	conn, _ := dial(t)
	readUntil(t, conn, loaded)

	writeMsg(t, conn, types.ClientMessage{Type: "Submit", Email: "emma@mergington.edu", Activity: "Chess Club"})

	msg := readUntil(t, conn, func(m types.ServerMessage) bool { return m.ResetForm })
	assert.True(t, msg.Notice.Visible)
	assert.Equal(t, "Signed up emma@mergington.edu for Chess Club", msg.Notice.Text)
}

func TestHandler_RejectsBadMessages(t *testing.T) {
	conn, _ := dial(t)
	readUntil(t, conn, loaded)

	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	msg := readUntil(t, conn, func(m types.ServerMessage) bool { return m.Type == "Error" })
	assert.Equal(t, "bad json", msg.Error)

	writeMsg(t, conn, types.ClientMessage{Type: "LockPick"})
	msg = readUntil(t, conn, func(m types.ServerMessage) bool { return m.Type == "Error" })
	assert.Equal(t, "unknown type", msg.Error)
}

func TestHandler_SessionRemovedOnClose(t *testing.T) {
	conn, h := dial(t)
	readUntil(t, conn, loaded)

	count := func() int {
		reply := make(chan int, 1)
		h.Inbox() <- hub.CountPages{Reply: reply}
		return <-reply
	}
	assert.Equal(t, 1, count())

	conn.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool { return count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshotMessage_WireShape(t *testing.T) {
	payload, err := json.Marshal(snapshotMessage(page.Snapshot{Version: 0, Activities: "<p>x</p>"}))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, json.RawMessage("0"), raw["version"])
	assert.JSONEq(t, `{"kind":"","text":"","visible":false}`, string(raw["notice"]))
	assert.NotContains(t, raw, "form")
}
