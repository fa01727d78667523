package model

import "time"

// Person is the CRM contact matched by phone.
type Person struct {
	ID         int
	Name       string
	ProfileURL string
}

// Deal is the person's open deal, if any.
type Deal struct {
	ID      int
	StageID int
	URL     string
}

// Note is the latest note attached to a person. Content is HTML.
type Note struct {
	Content   string
	CreatedAt time.Time
}

type EmailSummary struct {
	Subject   string
	Timestamp time.Time
	ViewURL   string
}

// Stage is one step of a sales pipeline.
type Stage struct {
	ID   int
	Name string
}
