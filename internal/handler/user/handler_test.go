package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ymgch/slack-pulse/backend/internal/store"
)

type fakeMessenger struct {
	err   error
	calls []string
}

func (m *fakeMessenger) PostMessage(_ context.Context, token, channel, text string) error {
	m.calls = append(m.calls, token+"|"+channel+"|"+text)
	return m.err
}

func setup() (*chi.Mux, *store.MemoryStore, *fakeMessenger) {
	st := store.NewMemoryStore()
	m := &fakeMessenger{}
	r := chi.NewRouter()
	New(st, m, nil).RegisterRoutes(r)
	return r, st, m
}

func postJSON(t *testing.T, r http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegisterCreatesUser(t *testing.T) {
	r, st, _ := setup()

	resp := postJSON(t, r, "/register-user", map[string]string{
		"user_id":          "U1",
		"real_name":        "Taro Yamada",
		"display_name":     "taro",
		"slack_user_token": "xoxp-user",
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	doc, err := st.Get(context.Background(), store.UsersCollection, "U1")
	if err != nil {
		t.Fatalf("expected user stored: %v", err)
	}
	if doc["real_name"] != "Taro Yamada" {
		t.Fatalf("unexpected stored doc %v", doc)
	}
	if _, ok := doc["created_at"]; !ok {
		t.Fatal("expected created_at on first insert")
	}
}

func TestRegisterUpdateKeepsCreatedAt(t *testing.T) {
	r, st, _ := setup()

	postJSON(t, r, "/register-user", map[string]string{"user_id": "U1", "real_name": "Before"})
	first, _ := st.Get(context.Background(), store.UsersCollection, "U1")

	postJSON(t, r, "/register-user", map[string]string{"user_id": "U1", "real_name": "After"})
	second, _ := st.Get(context.Background(), store.UsersCollection, "U1")

	if second["real_name"] != "After" {
		t.Fatalf("expected update applied, got %v", second)
	}
	if first["created_at"] != second["created_at"] {
		t.Fatal("expected created_at preserved across updates")
	}
}

func TestRegisterRequiresUserID(t *testing.T) {
	r, _, _ := setup()
	resp := postJSON(t, r, "/register-user", map[string]string{"real_name": "Nobody"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReplyForwardsWithStoredToken(t *testing.T) {
	r, st, m := setup()
	_, _ = st.Upsert(context.Background(), store.UsersCollection, "U1", store.Fields{
		"user_id":          "U1",
		"slack_user_token": "xoxp-user",
	})

	resp := postJSON(t, r, "/reply", map[string]string{
		"user_id": "U1",
		"channel": "C1",
		"text":    "on my way",
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(m.calls) != 1 || m.calls[0] != "xoxp-user|C1|on my way" {
		t.Fatalf("unexpected messenger calls %v", m.calls)
	}
}

func TestReplyUnknownUser(t *testing.T) {
	r, _, m := setup()

	resp := postJSON(t, r, "/reply", map[string]string{
		"user_id": "ghost",
		"channel": "C1",
		"text":    "hello",
	})

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if len(m.calls) != 0 {
		t.Fatal("messenger must not be called for unknown users")
	}
}

func TestReplyUserWithoutToken(t *testing.T) {
	r, st, _ := setup()
	_, _ = st.Upsert(context.Background(), store.UsersCollection, "U1", store.Fields{"user_id": "U1"})

	resp := postJSON(t, r, "/reply", map[string]string{
		"user_id": "U1",
		"channel": "C1",
		"text":    "hello",
	})

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no token stored, got %d", resp.Code)
	}
}

func TestReplyMessengerFailure(t *testing.T) {
	r, st, m := setup()
	m.err = errors.New("slack is down")
	_, _ = st.Upsert(context.Background(), store.UsersCollection, "U1", store.Fields{
		"user_id":          "U1",
		"slack_user_token": "xoxp-user",
	})

	resp := postJSON(t, r, "/reply", map[string]string{
		"user_id": "U1",
		"channel": "C1",
		"text":    "hello",
	})

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
