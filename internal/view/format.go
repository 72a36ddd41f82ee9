package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TokenPrefix starts every item handover token.
const TokenPrefix = "ITEM-"

// Search messages.
const (
	InvalidTokenMessage = "Please enter a valid item token (format: ITEM-XXXXXXXX)"
	NoItemMessage       = "No item found with this token"
)

// ValidToken reports whether q looks like an item token.
func ValidToken(q string) bool {
	q = strings.TrimSpace(q)
	return len(q) > len(TokenPrefix) && strings.HasPrefix(q, TokenPrefix)
}

// FormatDate renders a request timestamp relative to now: "Just now",
// "N hours ago", "Yesterday", a weekday within the last week, then a date.
func FormatDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}

	days := int((diff + 24*time.Hour - 1) / (24 * time.Hour))
	if days <= 1 {
		hours := int(diff / time.Hour)
		switch {
		case hours < 1:
			return "Just now"
		case hours == 1:
			return "1 hour ago"
		case hours < 24:
			return fmt.Sprintf("%d hours ago", hours)
		}
		return "Yesterday"
	}
	if days < 7 {
		return t.Weekday().String()
	}
	return t.Format("2 Jan 2006")
}

// RelativeTime renders an item time as "3 days ago"; nil renders "".
func RelativeTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return humanize.Time(*t)
}
