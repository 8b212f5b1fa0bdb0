package domain

import (
	"errors"
	"strings"
)

// ErrInvalidParticipantID indicates the identifier is empty or not email-shaped.
var ErrInvalidParticipantID = errors.New("invalid participant identifier")

// maxParticipantIDLen bounds identifiers to the length of a valid email address path (RFC 5321).
const maxParticipantIDLen = 254

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is applied to activity names and descriptive text loaded from catalogs.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeParticipantID trims an email-shaped identifier, lower-cases its domain and
// checks its syntax: exactly one '@', a non-empty local part, a dotted domain and no
// whitespace. The local part is kept verbatim since mailboxes may be case-sensitive.
func NormalizeParticipantID(raw string) (ParticipantID, error) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > maxParticipantIDLen {
		return "", ErrInvalidParticipantID
	}
	if strings.ContainsFunc(s, isSpaceOrControl) {
		return "", ErrInvalidParticipantID
	}
	local, host, ok := strings.Cut(s, "@")
	if !ok || local == "" || host == "" || strings.Contains(host, "@") {
		return "", ErrInvalidParticipantID
	}
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.Contains(host, "..") {
		return "", ErrInvalidParticipantID
	}
	return ParticipantID(local + "@" + strings.ToLower(host)), nil
}

func isSpaceOrControl(r rune) bool {
	return r <= ' ' || r == 0x7f
}
