package domain

// ActivityName is the stable primary key of an activity. It is display text as well,
// so it is compared verbatim (no case folding).
type ActivityName string

// ParticipantID identifies one enrollee within an activity's roster.
// In practice it is a normalized email address (see NormalizeParticipantID).
type ParticipantID string
