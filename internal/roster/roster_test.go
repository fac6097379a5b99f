package roster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_PreservesServerOrder(t *testing.T) {
	payload := `{
		"Programming Class": {"description": "p", "schedule": "Tue", "max_participants": 20, "participants": ["a@x.edu"]},
		"Chess Club": {"description": "c", "schedule": "Fri", "max_participants": 12, "participants": []},
		"Art Studio": {"description": "a", "schedule": "Mon", "max_participants": 5, "participants": ["b@x.edu", "c@x.edu"]}
	}`

	var r Roster
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, []string{"Programming Class", "Chess Club", "Art Studio"}, r.Names())

	art, ok := r.Get("Art Studio")
	require.True(t, ok)
	assert.Equal(t, "Art Studio", art.Name)
	assert.Equal(t, []string{"b@x.edu", "c@x.edu"}, art.Participants)
	assert.Equal(t, 3, art.SpotsLeft())
}

func TestUnmarshal_RepeatedKeyKeepsFirstPositionLastValue(t *testing.T) {
	payload := `{"A": {"schedule": "one"}, "B": {}, "A": {"schedule": "two"}}`

	var r Roster
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, []string{"A", "B"}, r.Names())
	a, _ := r.Get("A")
	assert.Equal(t, "two", a.Schedule)
}

func TestUnmarshal_IndexLikeNamesComeFirstNumerically(t *testing.T) {
	payload := `{"Chess": {}, "10": {}, "Art": {}, "2": {}, "02": {}, "-1": {}, "0": {}, "4294967295": {}}`

	var r Roster
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, []string{"0", "2", "10", "Chess", "Art", "02", "-1", "4294967295"}, r.Names())

	ten, ok := r.Get("10")
	require.True(t, ok)
	assert.Equal(t, "10", ten.Name)
}

func TestUnmarshal_NullParticipantsBecomeEmpty(t *testing.T) {
	var r Roster
	require.NoError(t, json.Unmarshal([]byte(`{"Chess": {"max_participants": 2, "participants": null}}`), &r))

	chess, ok := r.Get("Chess")
	require.True(t, ok)
	assert.NotNil(t, chess.Participants)
	assert.Empty(t, chess.Participants)
}

func TestUnmarshal_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{name: "array", payload: `[]`},
		{name: "null", payload: `null`},
		{name: "truncated", payload: `{"Chess": {"description": "d"`},
		{name: "wrong field type", payload: `{"Chess": {"max_participants": "ten"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r Roster
			assert.Error(t, json.Unmarshal([]byte(tc.payload), &r))
		})
	}
}

func TestSpotsLeft_NegativeWhenOverEnrolled(t *testing.T) {
	a := Activity{MaxParticipants: 1, Participants: []string{"a@x.edu", "b@x.edu", "c@x.edu"}}
	assert.Equal(t, -2, a.SpotsLeft())
}

func TestMarshal_RoundTripsOrder(t *testing.T) {
	r := New(
		Activity{Name: "Zeta", MaxParticipants: 1},
		Activity{Name: "Alpha", MaxParticipants: 2, Participants: []string{"a@x.edu"}},
	)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Roster
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"Zeta", "Alpha"}, back.Names())
	assert.Equal(t, r.Activities(), back.Activities())
}
