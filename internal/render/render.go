// Package render rebuilds the activities list and the activity selector from
// a roster. It owns all escaping of server and user supplied text.
package render

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/roster-console/internal/dom"
	"github.com/DoyleJ11/roster-console/internal/roster"
)

// RoleRemoveParticipant marks the per-participant removal control.
const RoleRemoveParticipant = "participant-delete-btn"

const (
	SelectPlaceholder = `<option value="">-- Select an activity --</option>`
	LoadFailed        = `<p>Failed to load activities. Please try again later.</p>`
	NoParticipants    = `<li class="participants-empty">No participants yet</li>`
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape makes s safe for both text and quoted attribute positions.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Render replaces the list and the selector with the roster's contents.
// Calling it twice with the same roster leaves the same visible markup.
func Render(doc *dom.Document, r roster.Roster) error {
	if err := doc.ReplaceChildren(dom.ActivitiesList, ""); err != nil {
		return err
	}
	if err := doc.ReplaceChildren(dom.ActivitySelect, SelectPlaceholder); err != nil {
		return err
	}

	for _, a := range r.Activities() {
		if err := doc.AppendMarkup(dom.ActivitiesList, ActivityCard(a)); err != nil {
			return fmt.Errorf("render %q: %w", a.Name, err)
		}
		if err := doc.AppendMarkup(dom.ActivitySelect, Option(a.Name)); err != nil {
			return fmt.Errorf("render option %q: %w", a.Name, err)
		}
	}
	return nil
}

// RenderFailure puts the degraded "failed to load" state in place of the list.
func RenderFailure(doc *dom.Document) error {
	return doc.ReplaceChildren(dom.ActivitiesList, LoadFailed)
}

func Option(name string) string {
	n := Escape(name)
	return `<option value="` + n + `">` + n + `</option>`
}

// ActivityCard builds the markup for one activity.
func ActivityCard(a roster.Activity) string {
	var sb strings.Builder

	sb.WriteString(`<div class="activity-card">`)
	fmt.Fprintf(&sb, `<h4>%s</h4>`, Escape(a.Name))
	fmt.Fprintf(&sb, `<p>%s</p>`, Escape(a.Description))
	fmt.Fprintf(&sb, `<p><strong>Schedule:</strong> %s</p>`, Escape(a.Schedule))
	fmt.Fprintf(&sb, `<p><strong>Availability:</strong> %d spots left</p>`, a.SpotsLeft())
	sb.WriteString(`<div class="participants-section">`)
	sb.WriteString(`<p class="participants-title"><strong>Participants:</strong></p>`)
	sb.WriteString(`<ul class="participants-list">`)
	if len(a.Participants) == 0 {
		sb.WriteString(NoParticipants)
	}
	for _, email := range a.Participants {
		sb.WriteString(participantRow(a.Name, email))
	}
	sb.WriteString(`</ul></div></div>`)

	return sb.String()
}

// participantRow carries the (activity, email) pair on the removal control
// itself so nothing has to be read back from the surrounding text.
func participantRow(activity, email string) string {
	act, em := Escape(activity), Escape(email)

	var sb strings.Builder
	sb.WriteString(`<li class="participant-item">`)
	fmt.Fprintf(&sb, `<span class="participant-email">%s</span>`, em)
	fmt.Fprintf(&sb, `<button type="button" class="%s" data-activity="%s" data-email="%s" aria-label="Unregister %s" title="Unregister participant">`,
		RoleRemoveParticipant, act, em, em)
	sb.WriteString("\U0001F5D1")
	sb.WriteString(`</button></li>`)
	return sb.String()
}
