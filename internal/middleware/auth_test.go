package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const testSecret = "test-secret"

// okHandler writes the principal's account id and role (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if p := PrincipalFromCtx(r.Context()); p != nil {
		w.Write([]byte(p.AccountID.String() + " " + p.Role))
	}
})

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestAuthenticate_ValidToken(t *testing.T) {
	tokens := NewTokens(testSecret)
	id := uuid.New()
	tok, err := tokens.Issue(id, RoleAdjudicator, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := serve(Authenticate(tokens)(okHandler), "Bearer "+tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if want := id.String() + " " + RoleAdjudicator; rec.Body.String() != want {
		t.Errorf("expected body %q, got %q", want, rec.Body.String())
	}
}

func TestAuthenticate_DefaultsToPlayerRole(t *testing.T) {
	tokens := NewTokens(testSecret)
	id := uuid.New()
	tok, err := tokens.Issue(id, "", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := serve(Authenticate(tokens)(okHandler), "bearer "+tok)
	if want := id.String() + " " + RolePlayer; rec.Body.String() != want {
		t.Errorf("expected body %q, got %q", want, rec.Body.String())
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	rec := serve(Authenticate(NewTokens(testSecret))(okHandler), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	rec := serve(Authenticate(NewTokens(testSecret))(okHandler), "Token abc")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	tok, err := NewTokens("other-secret").Issue(uuid.New(), RolePlayer, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := serve(Authenticate(NewTokens(testSecret))(okHandler), "Bearer "+tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	tokens := NewTokens(testSecret)
	tok, err := tokens.Issue(uuid.New(), RolePlayer, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := serve(Authenticate(tokens)(okHandler), "Bearer "+tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_RejectsOtherAlgorithms(t *testing.T) {
	c := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := serve(Authenticate(NewTokens(testSecret))(okHandler), "Bearer "+tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_SubjectMustBeUUID(t *testing.T) {
	c := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := serve(Authenticate(NewTokens(testSecret))(okHandler), "Bearer "+tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// RequireRole
// ---------------------------------------------------------------------------

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{"no principal", nil, http.StatusUnauthorized},
		{"player", &Principal{AccountID: uuid.New(), Role: RolePlayer}, http.StatusForbidden},
		{"adjudicator", &Principal{AccountID: uuid.New(), Role: RoleAdjudicator}, http.StatusOK},
		{"admin", &Principal{AccountID: uuid.New(), Role: RoleAdmin}, http.StatusOK},
	}
	h := RequireRole(RoleAdjudicator, RoleAdmin)(okHandler)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
