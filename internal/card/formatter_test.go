package card

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callcard-relay/internal/model"
)

var jane = model.Person{ID: 42, Name: "Jane Doe", ProfileURL: "https://app.pipedrive.com/person/42"}

func TestUnknown(t *testing.T) {
	assert.Equal(t, []model.CardRow{
		{Type: "title", Text: "Unknown contact"},
		{Type: "shortText", Label: "Number", Text: "+15550000000"},
	}, Unknown("+15550000000"))
}

func TestBuild_TitleOnly(t *testing.T) {
	rows := NewFormatter(time.UTC).Build(jane, nil, "", nil, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, model.CardRow{Type: "title", Text: "Jane Doe", Link: jane.ProfileURL}, rows[0])
}

func TestBuild_JaneDoe(t *testing.T) {
	deal := &model.Deal{ID: 9, StageID: 3, URL: "https://app.pipedrive.com/deal/9"}
	note := &model.Note{Content: "<p>Called back</p>"}

	rows := NewFormatter(time.UTC).Build(jane, deal, "Negotiation", nil, note)

	assert.Equal(t, []model.CardRow{
		{Type: "title", Text: "Jane Doe", Link: jane.ProfileURL},
		{Type: "shortText", Label: "Deal stage", Text: "Negotiation", Link: deal.URL},
		{Type: "shortText", Label: "Latest note", Text: " Called back "},
	}, rows)
}

func TestBuild_StageFallback(t *testing.T) {
	deal := &model.Deal{ID: 9, StageID: 17, URL: "https://app.pipedrive.com/deal/9"}

	rows := NewFormatter(time.UTC).Build(jane, deal, "", nil, nil)

	require.Len(t, rows, 2)
	assert.Equal(t, "Stage #17", rows[1].Text)
}

func TestBuild_FullCardOrdering(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	deal := &model.Deal{ID: 9, StageID: 3, URL: "deal-url"}
	emails := []model.EmailSummary{
		{Subject: "Quote", Timestamp: time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC), ViewURL: "thread-7"},
		{Subject: "", Timestamp: time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)},
		{Subject: "Intro", ViewURL: "thread-8"},
	}
	note := &model.Note{Content: "hello"}

	rows := NewFormatter(paris).Build(jane, deal, "Negotiation", emails, note)

	require.Len(t, rows, 6)
	assert.Equal(t, "title", rows[0].Type)
	assert.Equal(t, "Deal stage", rows[1].Label)
	assert.Equal(t, model.CardRow{Type: "shortText", Text: "Quote — Mar 2, 2024 3:00 PM", Link: "thread-7"}, rows[2])
	assert.Equal(t, model.CardRow{Type: "shortText", Text: "(no subject) — Mar 1, 2024 9:05 AM"}, rows[3])
	assert.Equal(t, model.CardRow{Type: "shortText", Text: "Intro — unknown date", Link: "thread-8"}, rows[4])
	assert.Equal(t, model.CardRow{Type: "shortText", Label: "Latest note", Text: "hello"}, rows[5])
}

func TestBuild_ZeroFormatterUsesUTC(t *testing.T) {
	emails := []model.EmailSummary{{Subject: "Hi", Timestamp: time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC)}}

	rows := (&Formatter{}).Build(jane, nil, "", emails, nil)

	assert.Equal(t, "Hi — Jan 5, 2024 11:00 PM", rows[1].Text)
}

func TestBuild_EmptyNoteOmitted(t *testing.T) {
	rows := NewFormatter(time.UTC).Build(jane, nil, "", nil, &model.Note{Content: ""})
	assert.Len(t, rows, 1)
}

func TestBuild_LongNoteTruncated(t *testing.T) {
	note := &model.Note{Content: "<div>" + strings.Repeat("é", 200) + "</div>"}

	rows := NewFormatter(time.UTC).Build(jane, nil, "", nil, note)

	text := rows[len(rows)-1].Text
	assert.Equal(t, MaxNoteLength, utf8.RuneCountInString(text))
	assert.True(t, strings.HasPrefix(text, " éé"))
	assert.True(t, strings.HasSuffix(text, "…"))
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<p>Called back</p>", " Called back "},
		{"a<br/>b", "a b"},
		{`<a href="x">link</a> and <b>bold</b>`, " link  and  bold "},
		{"1 < 2", "1 < 2"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, StripTags(tc.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("a", MaxNoteLength)
	long := strings.Repeat("b", MaxNoteLength+1)

	assert.Equal(t, "short", Truncate("short", MaxNoteLength))
	assert.Equal(t, exact, Truncate(exact, MaxNoteLength))

	got := Truncate(long, MaxNoteLength)
	assert.Equal(t, MaxNoteLength, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("b", MaxNoteLength-1)+"…", got)

	for _, s := range []string{"", "short", exact, long, strings.Repeat("ü", 500)} {
		once := Truncate(s, MaxNoteLength)
		assert.Equal(t, once, Truncate(once, MaxNoteLength), "truncate must be idempotent")
	}

	assert.Equal(t, "", Truncate("abc", 0))
}
