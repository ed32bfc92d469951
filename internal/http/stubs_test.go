package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/flexspace/internal/application"
)

var (
	testNow       = time.Date(2030, time.March, 11, 8, 0, 0, 0, time.UTC)
	testEmployee  = application.User{ID: "user-001", Email: "employee@flexspace.com", FirstName: "Emma", LastName: "Martin", Role: application.RoleEmployee}
	testAdmin     = application.User{ID: "user-002", Email: "admin@flexspace.com", FirstName: "Alice", LastName: "Durand", Role: application.RoleAdmin}
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type tokenAuthenticator map[string]application.User

func (a tokenAuthenticator) Authenticate(ctx context.Context, token string) (application.User, error) {
	user, ok := a[token]
	if !ok {
		return application.User{}, application.ErrUnauthenticated
	}
	return user, nil
}

var testTokens = tokenAuthenticator{
	"employee-token": testEmployee,
	"admin-token":    testAdmin,
}

type authServiceStub struct {
	register func(application.RegisterParams) (application.User, error)
	login    func(application.LoginParams) (application.LoginResult, error)
	current  func(application.Principal) (application.User, error)
}

func (s *authServiceStub) Register(ctx context.Context, params application.RegisterParams) (application.User, error) {
	return s.register(params)
}

func (s *authServiceStub) Login(ctx context.Context, params application.LoginParams) (application.LoginResult, error) {
	return s.login(params)
}

func (s *authServiceStub) CurrentUser(ctx context.Context, principal application.Principal) (application.User, error) {
	return s.current(principal)
}

type spaceServiceStub struct {
	create     func(application.CreateSpaceParams) (application.Space, error)
	list       func(application.SpaceFilter) ([]application.Space, error)
	get        func(string) (application.SpaceDetail, error)
	update     func(application.UpdateSpaceParams) (application.Space, error)
	remove     func(application.Principal, string) error
	statistics func(application.Principal, string) (application.SpaceStatistics, error)
}

func (s *spaceServiceStub) CreateSpace(ctx context.Context, params application.CreateSpaceParams) (application.Space, error) {
	return s.create(params)
}

func (s *spaceServiceStub) ListSpaces(ctx context.Context, filter application.SpaceFilter) ([]application.Space, error) {
	return s.list(filter)
}

func (s *spaceServiceStub) GetSpace(ctx context.Context, id string) (application.SpaceDetail, error) {
	return s.get(id)
}

func (s *spaceServiceStub) UpdateSpace(ctx context.Context, params application.UpdateSpaceParams) (application.Space, error) {
	return s.update(params)
}

func (s *spaceServiceStub) DeleteSpace(ctx context.Context, principal application.Principal, id string) error {
	return s.remove(principal, id)
}

func (s *spaceServiceStub) Statistics(ctx context.Context, principal application.Principal, id string) (application.SpaceStatistics, error) {
	return s.statistics(principal, id)
}

type reservationServiceStub struct {
	create       func(application.CreateReservationParams) (application.Reservation, error)
	list         func(application.ListReservationsParams) ([]application.Reservation, error)
	get          func(application.Principal, string) (application.Reservation, error)
	cancel       func(application.Principal, string) (application.Reservation, error)
	availability func(application.CheckAvailabilityParams) (application.Availability, error)
}

func (s *reservationServiceStub) CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error) {
	return s.create(params)
}

func (s *reservationServiceStub) ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error) {
	return s.list(params)
}

func (s *reservationServiceStub) GetReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error) {
	return s.get(principal, id)
}

func (s *reservationServiceStub) CancelReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error) {
	return s.cancel(principal, id)
}

func (s *reservationServiceStub) CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) (application.Availability, error) {
	return s.availability(params)
}

type accessServiceStub struct {
	generate func(application.Principal, string) (application.QRCode, error)
	verify   func(string) application.VerifyResult
	logs     func(application.Principal, string) ([]application.AccessLog, error)
}

func (s *accessServiceStub) GenerateQRCodeFor(ctx context.Context, principal application.Principal, reservationID string) (application.QRCode, error) {
	return s.generate(principal, reservationID)
}

func (s *accessServiceStub) VerifyQRCode(ctx context.Context, token string) application.VerifyResult {
	return s.verify(token)
}

func (s *accessServiceStub) AccessLogs(ctx context.Context, principal application.Principal, reservationID string) ([]application.AccessLog, error) {
	return s.logs(principal, reservationID)
}

type pingStub struct{ err error }

func (p pingStub) Ping(ctx context.Context) error { return p.err }

// testServer mounts the given handlers behind the production router.
func testServer(cfg RouterConfig) http.Handler {
	cfg.Authenticator = testTokens
	cfg.Logger = discardLogger
	return NewRouter(cfg)
}

func doRequest(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func stringPtr(v string) *string { return &v }
