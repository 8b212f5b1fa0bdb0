package itest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mergington/activities-api/internal/adapters/httpapi"
	memclock "github.com/mergington/activities-api/internal/adapters/memory/clock"
	memevents "github.com/mergington/activities-api/internal/adapters/memory/events"
	memidempotency "github.com/mergington/activities-api/internal/adapters/memory/idempotency"
	memrosterrepo "github.com/mergington/activities-api/internal/adapters/memory/rosterrepo"
	pgidempotency "github.com/mergington/activities-api/internal/adapters/postgres/idempotency"
	pgrosterrepo "github.com/mergington/activities-api/internal/adapters/postgres/rosterrepo"
	postgres_testutil "github.com/mergington/activities-api/internal/adapters/postgres/testutil"
	"github.com/mergington/activities-api/internal/adapters/sqlite"
	sqliterosterrepo "github.com/mergington/activities-api/internal/adapters/sqlite/rosterrepo"
	"github.com/mergington/activities-api/internal/app/catalog"
	"github.com/mergington/activities-api/internal/app/enrollment"
	"github.com/mergington/activities-api/internal/platform/catalogfile"
	"github.com/mergington/activities-api/internal/ports/out/events"
	idempotencyport "github.com/mergington/activities-api/internal/ports/out/idempotency"
	rosterrepoport "github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendSQLite   backend = "sqlite"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "sqlite":
		return []backend{backendSQLite}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendSQLite, backendPostgres}
	default:
		require.FailNow(t, "unknown ITEST_BACKEND value (expected memory|sqlite|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	enroll  *enrollment.Service
	events  *memevents.Recorder
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		roster    rosterrepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		postgres_testutil.TruncateAll(t, pool)
		roster = pgrosterrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, time.Hour)
	case backendSQLite:
		db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "itest.db"))
		require.NoError(t, err, "open sqlite")
		t.Cleanup(func() { _ = db.Close() })
		roster = sqliterosterrepo.NewRepo(db)
		idemStore = memidempotency.NewStore()
	case backendMemory:
		roster = memrosterrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		require.FailNowf(t, "unknown backend", "%s", b)
	}

	cat := catalog.NewService(roster)
	_, err := cat.Provision(context.Background(), catalogfile.Default())
	require.NoError(t, err, "provision")
	rec := memevents.NewRecorder(0)
	enroll := enrollment.NewService(roster, enrollment.WithPublisher(rec), enrollment.WithClock(clk))
	t.Cleanup(func() { _ = enroll.Close(context.Background()) })

	api := httpapi.NewServer(cat, enroll, idemStore)
	srv := httptest.NewServer(httpapi.NewRouter(api))
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		enroll:  enroll,
		events:  rec,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) do(t *testing.T, method string, path string, headers map[string]string) (int, []byte, http.Header) {
	t.Helper()

	req, err := http.NewRequest(method, s.url(path), nil)
	require.NoError(t, err, "new request")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err, "do request")
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

type activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(b, &out), "body=%s", string(b))
	return out
}

func requireError(t *testing.T, status int, body []byte, wantStatus int, wantCode, wantDetail string) {
	t.Helper()
	require.Equal(t, wantStatus, status, "body=%s", string(body))
	got := mustUnmarshal[errorResponse](t, body)
	require.Equal(t, wantCode, got.Code)
	require.Equal(t, wantDetail, got.Detail)
	require.NotEmpty(t, got.RequestID, "request_id missing: %s", string(body))
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	require.NotEmpty(t, strings.TrimSpace(h.Get(key)), "expected header %q to be present", key)
}

// publishedEvents drains the enrollment dispatcher and returns what reached the recorder.
func (s *testServer) publishedEvents(t *testing.T) []events.EnrollmentEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.enroll.Close(ctx))
	return s.events.Events()
}
