package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Request is a claim or return request between two users about one item.
type Request struct {
	ID              string    `json:"_id"`
	Item            *Item     `json:"itemId"`
	RequestType     string    `json:"requestType"`
	Status          string    `json:"status"`
	RequestedBy     *User     `json:"requestedBy,omitempty"`
	RequestedTo     *User     `json:"requestedTo,omitempty"`
	Answers         Answers   `json:"answers,omitempty"`
	ProofImages     []Image   `json:"proofImages,omitempty"`
	AdditionalNotes string    `json:"additionalNotes,omitempty"`
	Token           string    `json:"token,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Request types.
const (
	RequestTypeClaim  = "claim"
	RequestTypeReturn = "return"
)

// Request statuses.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// Answer is a claimant's answer to one verification question.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Answers decodes either a JSON array of answers or an array whose first
// element is the JSON-encoded array, which is how multipart claims arrive.
type Answers []Answer

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding answers: %w", err)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}

	var encoded string
	if err := json.Unmarshal(raw[0], &encoded); err == nil {
		var inner []Answer
		if err := json.Unmarshal([]byte(encoded), &inner); err != nil {
			// Plain string answers without questions.
			out := make([]Answer, 0, len(raw))
			for _, r := range raw {
				var s string
				if json.Unmarshal(r, &s) == nil {
					out = append(out, Answer{Answer: s})
				}
			}
			*a = out
			return nil
		}
		*a = inner
		return nil
	}

	out := make([]Answer, 0, len(raw))
	for _, r := range raw {
		var ans Answer
		if err := json.Unmarshal(r, &ans); err != nil {
			return fmt.Errorf("decoding answer: %w", err)
		}
		out = append(out, ans)
	}
	*a = out
	return nil
}

// For returns the answer at question index i, or "".
func (a Answers) For(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	return a[i].Answer
}
