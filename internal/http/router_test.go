package http

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/flexspace/internal/application"
)

func TestRouterSystemRoutes(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return testNow }

	t.Run("banner", func(t *testing.T) {
		t.Parallel()

		router := testServer(RouterConfig{System: NewSystemHandler(pingStub{}, now, discardLogger)})
		rec := doRequest(t, router, http.MethodGet, "/api", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["version"] != Version || body["timestamp"] != "2030-03-11T08:00:00.000Z" {
			t.Fatalf("unexpected banner %v", body)
		}
	})

	t.Run("health reports the database state", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			ping error
			want string
		}{
			{ping: nil, want: "connected"},
			{ping: errors.New("closed"), want: "unavailable"},
		}
		for _, tc := range cases {
			router := testServer(RouterConfig{System: NewSystemHandler(pingStub{err: tc.ping}, now, discardLogger)})
			rec := doRequest(t, router, http.MethodGet, "/api/health", "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["status"] != "ok" || body["database"] != tc.want {
				t.Fatalf("unexpected health body %v", body)
			}
		}
	})

	t.Run("unknown routes answer json", func(t *testing.T) {
		t.Parallel()

		router := testServer(RouterConfig{})
		rec := doRequest(t, router, http.MethodGet, "/api/nowhere", "", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if decodeBody(t, rec)["message"] != "route not found" {
			t.Fatalf("unexpected body %s", rec.Body.String())
		}
	})
}

func TestRouterAuthBoundary(t *testing.T) {
	t.Parallel()

	spaces := &spaceServiceStub{
		list: func(application.SpaceFilter) ([]application.Space, error) { return nil, nil },
		get: func(id string) (application.SpaceDetail, error) {
			return application.SpaceDetail{Space: application.Space{ID: id, Name: "Salle Zeus"}}, nil
		},
		remove: func(application.Principal, string) error { return nil },
	}
	access := &accessServiceStub{
		verify: func(string) application.VerifyResult {
			return application.VerifyResult{Reason: application.VerifyInvalidData, Message: "invalid QR code data", AccessTime: testNow}
		},
	}
	router := testServer(RouterConfig{
		Spaces: NewSpaceHandler(spaces, discardLogger),
		Access: NewAccessHandler(access, discardLogger),
	})

	tests := []struct {
		name   string
		method string
		target string
		token  string
		body   string
		status int
	}{
		{name: "public space list", method: http.MethodGet, target: "/api/spaces", status: http.StatusOK},
		{name: "public space detail", method: http.MethodGet, target: "/api/spaces/space-001", status: http.StatusOK},
		{name: "public verify", method: http.MethodPost, target: "/api/qr/verify", body: `{"qrData":"x"}`, status: http.StatusOK},
		{name: "delete requires token", method: http.MethodDelete, target: "/api/spaces/space-001", status: http.StatusUnauthorized},
		{name: "delete with token", method: http.MethodDelete, target: "/api/spaces/space-001", token: "admin-token", status: http.StatusNoContent},
		{name: "statistics requires token", method: http.MethodGet, target: "/api/spaces/space-001/statistics", status: http.StatusUnauthorized},
		{name: "access logs require token", method: http.MethodGet, target: "/api/qr/access-logs/res-001", status: http.StatusUnauthorized},
		{name: "unsupported method", method: http.MethodPut, target: "/api/spaces/space-001", token: "admin-token", status: http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(t, router, tc.method, tc.target, tc.token, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouterCORSAndCompression(t *testing.T) {
	t.Parallel()

	names := make([]application.Space, 0, 200)
	for i := 0; i < 200; i++ {
		names = append(names, application.Space{ID: "space", Name: "Espace Innovation", Type: application.SpaceTypeCollaborative, Capacity: 6})
	}
	spaces := &spaceServiceStub{list: func(application.SpaceFilter) ([]application.Space, error) { return names, nil }}
	router := NewRouter(RouterConfig{
		Spaces:        NewSpaceHandler(spaces, discardLogger),
		Authenticator: testTokens,
		CORSOrigins:   []string{"http://localhost:3001"},
		Logger:        discardLogger,
		Compress:      true,
	})

	t.Run("preflight", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodOptions, "/api/reservations", nil)
		req.Header.Set("Origin", "http://localhost:3001")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3001" {
			t.Fatalf("expected allowed origin header, got %q", got)
		}
	})

	t.Run("gzip", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/spaces", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatalf("expected gzip encoding, got headers %v", rec.Header())
		}
		zr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("read gzip body: %v", err)
		}
		if !strings.Contains(string(plain), `"name":"Espace Innovation"`) {
			t.Fatalf("unexpected body %s", plain)
		}
	})
}
