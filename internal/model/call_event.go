// Package model holds the payloads and CRM snapshots that flow through the relay.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventCallCreated is the only telephony event that triggers enrichment.
const EventCallCreated = "call.created"

// CallID identifies a call. The provider sends it as a JSON number; strings
// are accepted too.
type CallID string

func (id *CallID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = CallID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("call id: %w", err)
	}
	*id = CallID(n.String())
	return nil
}

func (id CallID) String() string { return string(id) }

// CallData is the call object embedded in a webhook delivery.
type CallData struct {
	ID            CallID `json:"id" validate:"required"`
	RawDigits     string `json:"raw_digits,omitempty"`
	DisplayDigits string `json:"display_digits,omitempty"`
}

// CallEvent represents the structure of incoming webhook payloads.
type CallEvent struct {
	Event string   `json:"event" validate:"required"`
	Data  CallData `json:"data"`
}

// CallerNumber prefers the raw digits and falls back to the display digits.
func (e CallEvent) CallerNumber() string {
	if e.Data.RawDigits != "" {
		return e.Data.RawDigits
	}
	return e.Data.DisplayDigits
}
