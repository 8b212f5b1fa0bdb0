package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mergington/activities-api/internal/app/enrollment"
	"github.com/mergington/activities-api/internal/domain"
	platformclock "github.com/mergington/activities-api/internal/platform/clock"
	"github.com/mergington/activities-api/internal/ports/out/clock"
	"github.com/mergington/activities-api/internal/ports/out/idempotency"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	routeSignup     = "/activities/{name}/signup"
	routeUnregister = "/activities/{name}/unregister"
)

// ActivityQueries is the read side the handlers need; *catalog.Service implements it.
type ActivityQueries interface {
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	GetActivity(ctx context.Context, name domain.ActivityName) (domain.Activity, error)
}

// EnrollmentCommands is the write side; *enrollment.Service implements it.
type EnrollmentCommands interface {
	Signup(ctx context.Context, name domain.ActivityName, rawID string) (enrollment.Enrollment, error)
	Unregister(ctx context.Context, name domain.ActivityName, rawID string) (enrollment.Enrollment, error)
}

// Server holds the HTTP handlers. Idem is optional; without it Idempotency-Key is ignored.
type Server struct {
	Activities ActivityQueries
	Enrollment EnrollmentCommands
	Idem       idempotency.Store
	Clock      clock.Clock
}

func NewServer(activities ActivityQueries, enroll EnrollmentCommands, idem idempotency.Store) *Server {
	return &Server{
		Activities: activities,
		Enrollment: enroll,
		Idem:       idem,
		Clock:      platformclock.NewSystemClock(),
	}
}

type activityResponse struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func activityFromDomain(a domain.Activity) activityResponse {
	ps := make([]string, 0, len(a.Participants))
	for _, p := range a.Participants {
		ps = append(ps, string(p))
	}
	return activityResponse{
		Description:     a.Description,
		Schedule:        a.Schedule,
		MaxParticipants: a.MaxParticipants,
		Participants:    ps,
	}
}

// activityDirectory encodes as one JSON object keyed by activity name, keeping
// provisioning order (encoding a Go map would sort the keys).
type activityDirectory []domain.Activity

func (d activityDirectory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(a.Name))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(activityFromDomain(a))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	as, err := s.Activities.ListActivities(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityDirectory(as))
}

func (s *Server) GetActivity(w http.ResponseWriter, r *http.Request) {
	name, ok := activityNameParam(r)
	if !ok {
		writeAppError(w, r, enrollment.ErrActivityNotFound)
		return
	}
	a, err := s.Activities.GetActivity(r.Context(), name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityFromDomain(a))
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, routeSignup, s.Enrollment.Signup, func(e enrollment.Enrollment) string {
		return fmt.Sprintf("Signed up %s for %s", e.Participant, e.Activity)
	})
}

func (s *Server) Unregister(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, routeUnregister, s.Enrollment.Unregister, func(e enrollment.Enrollment) string {
		return fmt.Sprintf("Unregistered %s from %s", e.Participant, e.Activity)
	})
}

type enrollmentOp func(ctx context.Context, name domain.ActivityName, rawID string) (enrollment.Enrollment, error)

// mutate runs a signup or unregister with optional Idempotency-Key handling:
//   - a stored 200 for the same key, route and enrollment is replayed without touching the roster
//   - the same key reused for a different enrollment is rejected with 409
//
// Without the header every call is applied, so a repeated signup still reports ALREADY_ENROLLED.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, route string, op enrollmentOp, message func(enrollment.Enrollment) string) {
	ctx := r.Context()
	name, ok := activityNameParam(r)
	if !ok {
		writeAppError(w, r, enrollment.ErrActivityNotFound)
		return
	}
	email := r.URL.Query().Get("email")

	key := idempotency.Key(strings.TrimSpace(r.Header.Get(idempotencyHeader)))
	useIdem := key != "" && s.Idem != nil
	respFP := idempotency.Fingerprint{Key: key, Method: r.Method, Route: route, BodyHash: hashEnrollment(name, email)}

	if useIdem {
		metaFP := respFP
		metaFP.BodyHash = ""
		// The first request to claim the key binds it to its enrollment.
		meta, _, err := s.Idem.PutIfAbsent(ctx, metaFP, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(respFP.BodyHash),
			CreatedAt:   s.Clock.Now(),
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if string(meta.Body) != respFP.BodyHash {
			writeError(w, r, http.StatusConflict, codeIdempotencyKeyReuse, "idempotency key reuse with different payload")
			return
		}

		rec, found, err := s.Idem.Get(ctx, respFP)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if found && rec.StatusCode == http.StatusOK {
			w.Header().Set(replayedHeader, "true")
			writeRaw(w, rec.StatusCode, rec.ContentType, rec.Body)
			return
		}
	}

	e, err := op(ctx, name, email)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	body, err := json.Marshal(messageResponse{Message: message(e)})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if useIdem {
		// The roster change is committed; a failed Put only loses the replay.
		if err := s.Idem.Put(context.WithoutCancel(ctx), respFP, idempotency.Record{
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Body:        body,
			CreatedAt:   s.Clock.Now(),
		}); err != nil {
			logRequestWarning(r, "idempotency record not stored", err)
		}
	}
	writeRaw(w, http.StatusOK, "application/json", body)
}

// activityNameParam returns the percent-decoded {name} path segment.
// chi matches on RawPath when the request carries one, leaving the segment encoded.
func activityNameParam(r *http.Request) (domain.ActivityName, bool) {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return "", false
		}
		raw = decoded
	}
	return domain.ActivityName(raw), raw != ""
}

// hashEnrollment keys the enrollment by its normalized identifier when it has one.
func hashEnrollment(name domain.ActivityName, email string) string {
	id := strings.TrimSpace(email)
	if normalized, err := domain.NormalizeParticipantID(email); err == nil {
		id = string(normalized)
	}
	canon := string(name) + "\x00" + id
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}
