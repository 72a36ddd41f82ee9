package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Image is an uploaded image reference hosted by the backend.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// Item is a lost or found item moving through the custody lifecycle.
type Item struct {
	ID                  string     `json:"_id"`
	ItemType            string     `json:"itemType"`
	Description         string     `json:"description"`
	Location            string     `json:"location,omitempty"`
	Time                *time.Time `json:"time,omitempty"`
	Status              string     `json:"status"`
	Images              []Image    `json:"images,omitempty"`
	VerifiedDescription string     `json:"verifiedDescription,omitempty"`
	Questions           []string   `json:"questions,omitempty"`
	Token               string     `json:"token,omitempty"`
	UniqueMarks         string     `json:"uniqueMarks,omitempty"`

	ReportedBy    *UserRef `json:"reportedBy,omitempty"`
	Owner         *UserRef `json:"owner,omitempty"`
	FoundBy       *UserRef `json:"foundBy,omitempty"`
	CurrentHolder *UserRef `json:"currentHolder,omitempty"`
	ReceivedBy    *UserRef `json:"receivedBy,omitempty"`
}

// UserRef is a user field of an item. Depending on the endpoint the backend
// sends it as a bare id or as a populated user.
type UserRef struct {
	ID   string
	User *User
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = UserRef{ID: id}
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("decoding user reference: %w", err)
	}
	*r = UserRef{ID: u.ID, User: &u}
	return nil
}

// Name returns the user's display name, falling back to the id when the
// user was not populated.
func (r *UserRef) Name() string {
	if r == nil {
		return ""
	}
	if n := r.User.Name(); n != "" {
		return n
	}
	return r.ID
}

// Contact returns the display name followed by the email when it is known.
func (r *UserRef) Contact() string {
	name := r.Name()
	if r == nil || r.User == nil || r.User.Email == "" {
		return name
	}
	if name == "" {
		return r.User.Email
	}
	return name + " (" + r.User.Email + ")"
}

// Item statuses.
const (
	ItemStatusLost      = "lost"
	ItemStatusFound     = "found"
	ItemStatusVerified  = "verified"
	ItemStatusSubmitted = "submitted"
	ItemStatusReceived  = "received"
	ItemStatusClaimed   = "claimed"
	ItemStatusRejected  = "rejected"
)

// CoverURL returns the first image URL, or "" when the item has no images.
func (i *Item) CoverURL() string {
	if i == nil || len(i.Images) == 0 {
		return ""
	}
	return i.Images[0].URL
}

// ItemToken is an entry of the "my item tokens" listing.
type ItemToken struct {
	ID          string     `json:"_id"`
	ItemType    string     `json:"itemType"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status"`
	Token       string     `json:"token,omitempty"`
	Time        *time.Time `json:"time,omitempty"`
	Images      []Image    `json:"images,omitempty"`
}
