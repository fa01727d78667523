// Package card turns CRM snapshots into insight card rows.
package card

import (
	"fmt"
	"regexp"
	"time"

	"callcard-relay/internal/model"
)

const (
	// MaxNoteLength is the note row's length bound, in runes.
	MaxNoteLength = 120

	ellipsis      = "…"
	noSubject     = "(no subject)"
	unknownDate   = "unknown date"
	timestampForm = "Jan 2, 2006 3:04 PM"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Formatter builds cards. The zero value renders timestamps in UTC.
type Formatter struct {
	Location *time.Location
}

// NewFormatter creates a Formatter rendering timestamps in loc.
func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{Location: loc}
}

// Unknown is the card shown when no CRM person matches the caller.
func Unknown(phone string) []model.CardRow {
	return []model.CardRow{
		{Type: model.RowTitle, Text: "Unknown contact"},
		{Type: model.RowShortText, Label: "Number", Text: phone},
	}
}

// Build assembles the rows for a matched person: title, deal stage, emails in
// the order given, then the latest note. Absent entities produce no row.
func (f *Formatter) Build(person model.Person, deal *model.Deal, stageName string, emails []model.EmailSummary, note *model.Note) []model.CardRow {
	rows := make([]model.CardRow, 0, 2+len(emails))
	rows = append(rows, model.CardRow{Type: model.RowTitle, Text: person.Name, Link: person.ProfileURL})

	if deal != nil {
		text := stageName
		if text == "" {
			text = fmt.Sprintf("Stage #%d", deal.StageID)
		}
		rows = append(rows, model.CardRow{Type: model.RowShortText, Label: "Deal stage", Text: text, Link: deal.URL})
	}

	for _, e := range emails {
		subject := e.Subject
		if subject == "" {
			subject = noSubject
		}
		rows = append(rows, model.CardRow{
			Type: model.RowShortText,
			Text: subject + " — " + f.timestamp(e.Timestamp),
			Link: e.ViewURL,
		})
	}

	if note != nil && note.Content != "" {
		rows = append(rows, model.CardRow{
			Type:  model.RowShortText,
			Label: "Latest note",
			Text:  Truncate(StripTags(note.Content), MaxNoteLength),
		})
	}
	return rows
}

func (f *Formatter) timestamp(t time.Time) string {
	if t.IsZero() {
		return unknownDate
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampForm)
}

// StripTags replaces every <...> span with a single space.
func StripTags(html string) string {
	return tagPattern.ReplaceAllString(html, " ")
}

// Truncate bounds s to limit runes. A truncated result ends with an ellipsis
// that takes the place of the last kept rune.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	return string(runes[:limit-1]) + ellipsis
}
