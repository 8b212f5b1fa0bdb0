package enrollment

import "net/http"

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Is matches any *Error with the same Code, so errors.Is works against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// Sentinel enrollment failures. Callers must not mutate them.
var (
	ErrActivityNotFound  = &Error{Status: http.StatusNotFound, Code: "ACTIVITY_NOT_FOUND", Message: "Activity not found"}
	ErrAlreadyEnrolled   = &Error{Status: http.StatusBadRequest, Code: "ALREADY_ENROLLED", Message: "Student is already signed up"}
	ErrCapacityExceeded  = &Error{Status: http.StatusBadRequest, Code: "CAPACITY_EXCEEDED", Message: "Activity is full"}
	ErrNotEnrolled       = &Error{Status: http.StatusBadRequest, Code: "NOT_ENROLLED", Message: "Student is not registered for this activity"}
	ErrInvalidIdentifier = &Error{Status: http.StatusUnprocessableEntity, Code: "INVALID_IDENTIFIER", Message: "A valid email address is required"}
)
