package model

// Row types understood by the insight card endpoint.
const (
	RowTitle     = "title"
	RowShortText = "shortText"
)

// CardRow is one line of an insight card. Order in the slice is display order.
type CardRow struct {
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
	Link  string `json:"link,omitempty"`
}

// InsightCard is the body posted to the telephony provider.
type InsightCard struct {
	Contents []CardRow `json:"contents"`
}
