// Package contacts resolves human names to email addresses using state
// accumulated from past executed actions.
package contacts

import (
	"regexp"
	"strings"

	"github.com/nativeiq/nativeiq/internal/session"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s looks like a plain email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// placeholderLocals are generic local parts that LLM extraction emits when
// it has no real recipient. Combined with a documentation domain they mark
// a stand-in address, not a deliverable one.
var placeholderLocals = map[string]struct{}{
	"user":      {},
	"someone":   {},
	"email":     {},
	"recipient": {},
	"name":      {},
	"sample":    {},
}

var placeholderDomains = map[string]struct{}{
	"example.com": {},
	"example.org": {},
	"example.net": {},
	"domain.com":  {},
}

// IsPlaceholder reports whether addr is a stand-in like user@example.com.
// Placeholder addresses must never be returned as resolved recipients;
// they fall through to the contact-book steps instead.
func IsPlaceholder(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	if _, generic := placeholderLocals[addr[:at]]; !generic {
		return false
	}
	_, doc := placeholderDomains[addr[at+1:]]
	return doc
}

// Resolver maps a recipient candidate to an email address. Resolution is
// deterministic: each step is tried in order and the first hit wins.
type Resolver struct{}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve turns candidate into an email address using, in order: the
// candidate itself when it is already a real (non-placeholder) email,
// capitalized names from the message body found in the contact book, the
// candidate looked up in the contact book, the last meeting's attendees,
// and finally the candidate unchanged when nothing matched. Names with
// several stored contacts resolve to the first one stored.
func (r *Resolver) Resolve(candidate, messageBody string, sess *session.Session) string {
	candidate = strings.TrimSpace(candidate)

	// Step 1: already an email address, unless it is a stand-in.
	if IsEmail(candidate) && !IsPlaceholder(candidate) {
		return candidate
	}

	book := sess.Contacts()

	// Step 2: capitalized tokens in the message body that name a known contact.
	for _, token := range capitalizedTokens(messageBody) {
		if c, ok := book.FirstByName(strings.ToLower(token)); ok && c.Email != "" {
			return c.Email
		}
	}

	// Step 3: the candidate itself names a known contact.
	if c, ok := book.FirstByName(strings.ToLower(candidate)); ok && c.Email != "" {
		return c.Email
	}

	// Step 4: fall back to the last meeting's attendees.
	if meeting, ok := sess.LastMeeting(); ok && len(meeting.Attendees) > 0 {
		if len(meeting.Attendees) == 1 {
			return meeting.Attendees[0]
		}
		lower := strings.ToLower(candidate)
		if lower != "" {
			for _, attendee := range meeting.Attendees {
				if strings.Contains(strings.ToLower(attendee), lower) {
					return attendee
				}
			}
		}
		return meeting.Attendees[0]
	}

	// Step 5: nothing matched, hand the candidate back.
	return candidate
}

// capitalizedTokens returns words from body that start with an uppercase
// letter, stripped of surrounding punctuation.
func capitalizedTokens(body string) []string {
	var out []string
	for _, field := range strings.Fields(body) {
		token := strings.Trim(field, ".,!?;:'\"()")
		if token == "" {
			continue
		}
		first := rune(token[0])
		if first >= 'A' && first <= 'Z' {
			out = append(out, token)
		}
	}
	return out
}
