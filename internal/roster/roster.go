package roster

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

var ErrNotObject = errors.New("roster payload is not a JSON object")

// Activity is one enrollable offering as reported by the activities API.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft can go negative if the server over-enrolls; it is shown as-is.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Roster keeps activities in the order the server listed them.
type Roster struct {
	activities []Activity
	index      map[string]int
}

func New(activities ...Activity) Roster {
	var r Roster
	for _, a := range activities {
		r.put(a)
	}
	return r
}

// put keeps the first position of a name and takes the latest value,
// the same way a JSON object with a repeated key decodes in a browser.
func (r *Roster) put(a Activity) {
	if a.Participants == nil {
		a.Participants = []string{}
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[a.Name]; ok {
		r.activities[i] = a
		return
	}
	r.index[a.Name] = len(r.activities)
	r.activities = append(r.activities, a)
}

func (r Roster) Len() int { return len(r.activities) }

// Activities returns a copy in roster order.
func (r Roster) Activities() []Activity {
	out := make([]Activity, len(r.activities))
	copy(out, r.activities)
	return out
}

func (r Roster) Names() []string {
	names := make([]string, 0, len(r.activities))
	for _, a := range r.activities {
		names = append(names, a.Name)
	}
	return names
}

func (r Roster) Get(name string) (Activity, bool) {
	i, ok := r.index[name]
	if !ok {
		return Activity{}, false
	}
	return r.activities[i], true
}

// UnmarshalJSON walks the object token by token so key order survives.
func (r *Roster) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	var out Roster
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}

		var a Activity
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("activity %q: %w", name, err)
		}
		a.Name = name
		out.put(a)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	out.orderLikeBrowser()
	*r = out
	return nil
}

// orderLikeBrowser moves array-index names to the front in numeric order,
// which is how a browser enumerates the keys of a decoded object. The other
// names keep their relative order.
func (r *Roster) orderLikeBrowser() {
	slices.SortStableFunc(r.activities, func(a, b Activity) int {
		ai, aok := arrayIndex(a.Name)
		bi, bok := arrayIndex(b.Name)
		switch {
		case aok && bok:
			return cmp.Compare(ai, bi)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	})
	for i, a := range r.activities {
		r.index[a.Name] = i
	}
}

// arrayIndex reports whether name is a canonical decimal below 2^32-1.
func arrayIndex(name string) (uint64, bool) {
	if name == "" || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return n, true
}


// MarshalJSON writes the roster back in the API's shape, preserving order.
func (r Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range r.activities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
