package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

type accessLine struct {
	Level   string `json:"level"`
	Msg     string `json:"msg"`
	RoomID  string `json:"room_id"`
	Request struct {
		Method string `json:"method"`
		Route  string `json:"route"`
		Path   string `json:"path"`
	} `json:"request"`
	Response struct {
		Status int `json:"status"`
		Bytes  int `json:"bytes"`
	} `json:"response"`
	Caller *struct {
		AccountID string `json:"account_id"`
		Role      string `json:"role"`
	} `json:"caller"`
}

// serveLogged sends req through the access logger wrapped around a mux that
// mounts h at pattern behind Authenticate, and returns the decoded log line.
func serveLogged(t *testing.T, pattern string, h http.HandlerFunc, req *http.Request) accessLine {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	mux := http.NewServeMux()
	mux.Handle(pattern, Authenticate(NewTokens(testSecret))(h))
	NewStructuredLogger(logger)(mux).ServeHTTP(httptest.NewRecorder(), req)

	var line accessLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return line
}

func TestStructuredLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		level   string
		message string
	}{
		{"ok", http.StatusOK, "INFO", "request completed"},
		{"conflict", http.StatusConflict, "INFO", "request completed"},
		{"forbidden", http.StatusForbidden, "WARN", "request denied"},
		{"server error", http.StatusInternalServerError, "ERROR", "server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			h := NewStructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("body"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))

			var line accessLine
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("decode log line %q: %v", buf.String(), err)
			}
			if line.Level != tt.level || line.Msg != tt.message {
				t.Errorf("got level=%s msg=%q", line.Level, line.Msg)
			}
			if line.Response.Status != tt.status || line.Response.Bytes != 4 {
				t.Errorf("unexpected response group: %+v", line.Response)
			}
			if line.Caller != nil || line.RoomID != "" {
				t.Errorf("unrouted anonymous request logged caller %+v room %q", line.Caller, line.RoomID)
			}
		})
	}
}

func TestStructuredLogger_NamesRouteRoomAndCaller(t *testing.T) {
	account, room := uuid.New(), uuid.New()
	tok, err := NewTokens(testSecret).Issue(account, RoleAdjudicator, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/"+room.String()+"/winner", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	line := serveLogged(t, "POST /api/v1/rooms/{id}/winner", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, req)

	if line.Request.Route != "POST /api/v1/rooms/{id}/winner" {
		t.Errorf("route = %q", line.Request.Route)
	}
	if line.RoomID != room.String() {
		t.Errorf("room_id = %q, want %s", line.RoomID, room)
	}
	if line.Caller == nil || line.Caller.AccountID != account.String() || line.Caller.Role != RoleAdjudicator {
		t.Errorf("caller = %+v, want %s/%s", line.Caller, account, RoleAdjudicator)
	}
}

func TestStructuredLogger_RejectedTokenHasNoCaller(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	line := serveLogged(t, "GET /api/v1/wallet", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler reached with an invalid token")
	}, req)

	if line.Level != "WARN" || line.Response.Status != http.StatusUnauthorized {
		t.Errorf("got level=%s status=%d", line.Level, line.Response.Status)
	}
	if line.Caller != nil {
		t.Errorf("caller = %+v, want none", line.Caller)
	}
	if line.Request.Route != "GET /api/v1/wallet" {
		t.Errorf("route = %q", line.Request.Route)
	}
}
