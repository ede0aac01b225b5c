package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret-key"

func makeToken(sub string, secret string, method jwt.SigningMethod) string {
	claims := jwt.MapClaims{"sub": sub}
	token := jwt.NewWithClaims(method, claims)
	s, _ := token.SignedString([]byte(secret))
	return s
}

func makeTokenWithExp(sub string, secret string, exp time.Time) string {
	claims := jwt.MapClaims{"sub": sub, "exp": jwt.NewNumericDate(exp)}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, _ := token.SignedString([]byte(secret))
	return s
}

const channelPath = "/api/v1/channels/local_store"

// authRequest sends a channel POST through auth and returns the recorder.
func authRequest(t *testing.T, auth func(http.Handler) http.Handler, authHeader string, inner http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", channelPath, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	auth(inner).ServeHTTP(w, req)
	return w
}

func mustNotRun(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	token := makeToken("user1", testSecret, jwt.SigningMethodHS256)

	inner := func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected claims in context")
		}
		if claims.Subject != "user1" {
			t.Fatalf("expected sub=user1, got %s", claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	}

	w := authRequest(t, JWTAuth(testSecret, "", false), "Bearer "+token, inner)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestJWTAuth_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"invalid token", "Bearer invalid-token"},
		{"wrong secret", "Bearer " + makeToken("user1", "wrong-secret", jwt.SigningMethodHS256)},
		{"expired", "Bearer " + makeTokenWithExp("user1", testSecret, time.Now().Add(-1*time.Hour))},
		{"bad format", "NotBearer token"},
		{"wrong algorithm", "Bearer " + makeToken("user1", testSecret, jwt.SigningMethodHS512)},
		{"missing subject", "Bearer " + makeToken("", testSecret, jwt.SigningMethodHS256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := authRequest(t, JWTAuth(testSecret, "", false), tt.header, mustNotRun(t))
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestJWTAuth_IssuerValidation(t *testing.T) {
	// Token without issuer, but middleware expects one
	token := makeToken("user1", testSecret, jwt.SigningMethodHS256)

	w := authRequest(t, JWTAuth(testSecret, "expected-issuer", false), "Bearer "+token, mustNotRun(t))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: token without matching issuer should be rejected", w.Code)
	}
}

func TestJWTAuth_HealthzSkipsAuth(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	JWTAuth(testSecret, "", false)(inner).ServeHTTP(w, req)

	if !called || w.Code != http.StatusOK {
		t.Fatalf("expected /healthz to pass without auth, got %d", w.Code)
	}
}

func TestJWTAuth_DevBypass(t *testing.T) {
	inner := func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected claims in context")
		}
		if claims.Subject != devSubject {
			t.Fatalf("expected sub=%s, got %s", devSubject, claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	}

	// No Authorization header: bypass should skip validation
	w := authRequest(t, JWTAuth(testSecret, "", true), "", inner)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := CORS("https://example.com")(inner)

	// Normal request
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Fatalf("expected CORS origin header, got %s", w.Header().Get("Access-Control-Allow-Origin"))
	}

	// Preflight request
	req = httptest.NewRequest("OPTIONS", "/test", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS, got %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := Recovery(testLogger())(inner)
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	handler := RequestLogging(logger)(JWTAuth(testSecret, "", true)(inner))
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", w.Code)
	}

	id := w.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid request id, got %q", id)
	}
	if seenID != id {
		t.Fatalf("expected handler to see request id %q, got %q", id, seenID)
	}

	logOutput := buf.String()
	for _, want := range []string{"GET", "/test", "status=418", "requestId=" + id, "subject=" + devSubject} {
		if !strings.Contains(logOutput, want) {
			t.Fatalf("expected log to contain %q, got: %s", want, logOutput)
		}
	}
}
