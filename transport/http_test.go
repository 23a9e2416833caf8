package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	moderator, err := moderation.NewModerator(nil, '*')
	require.NoError(t, err)
	service := services.NewChatService(
		log,
		repositories.NewParticipantRepository(db, log),
		repositories.NewMessageRepository(db, log),
		moderator,
	)
	stats, err := observability.NewStatsProvider()
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(NewHandler(log, service, stats)))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, user string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("User", user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type messageJSON struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

func TestJoinFlow(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	// First join succeeds and records the status notice.
	resp := doJSON(t, http.MethodPost, server.URL+"/participants", "", map[string]any{"name": "alice"})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/participants", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	participants := decode[[]map[string]any](t, resp)
	req.Len(participants, 1)
	req.Equal("alice", participants[0]["name"])

	resp = doJSON(t, http.MethodGet, server.URL+"/messages", "alice", nil)
	messages := decode[[]messageJSON](t, resp)
	req.Len(messages, 1)
	req.Equal("alice", messages[0].From)
	req.Equal("Todos", messages[0].To)
	req.Equal("status", messages[0].Type)

	// Second join with the same name conflicts.
	resp = doJSON(t, http.MethodPost, server.URL+"/participants", "", map[string]any{"name": "alice"})
	req.Equal(http.StatusConflict, resp.StatusCode)
}

func TestJoin_InvalidPayloads(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	for _, payload := range []map[string]any{
		{},
		{"name": "   "},
		{"name": 42},
		{"name": "<b></b>"},
	} {
		resp := doJSON(t, http.MethodPost, server.URL+"/participants", "", payload)
		req.Equal(http.StatusUnprocessableEntity, resp.StatusCode, fmt.Sprintf("payload %v", payload))
	}
}

func TestPostAndQueryMessages(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/participants", "", map[string]any{"name": "alice"})
	req.Equal(http.StatusCreated, resp.StatusCode)

	// Recipient registration is not required.
	resp = doJSON(t, http.MethodPost, server.URL+"/messages", "alice", map[string]any{
		"to": "bob", "text": "hi", "type": "private_message",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	// An unregistered sender is rejected with a validation status.
	resp = doJSON(t, http.MethodPost, server.URL+"/messages", "ghost", map[string]any{
		"to": "bob", "text": "hi", "type": "message",
	})
	req.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	// bob sees the private message, carol does not.
	resp = doJSON(t, http.MethodGet, server.URL+"/messages", "bob", nil)
	bobMessages := decode[[]messageJSON](t, resp)
	req.Len(bobMessages, 2) // join notice broadcast + private message
	req.Equal("hi", bobMessages[0].Text)

	resp = doJSON(t, http.MethodGet, server.URL+"/messages", "carol", nil)
	carolMessages := decode[[]messageJSON](t, resp)
	req.Len(carolMessages, 1)
	req.Equal("status", carolMessages[0].Type)
}

func TestGetMessages_LimitValidation(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/messages?limit=abc", "alice", nil)
	req.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/messages?limit=-1", "alice", nil)
	req.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/messages?limit=0", "alice", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestEditAndDeleteOwnership(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/participants", "", map[string]any{"name": "alice"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, server.URL+"/messages", "alice", map[string]any{
		"to": "Todos", "text": "original", "type": "message",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/messages?limit=1", "alice", nil)
	messages := decode[[]messageJSON](t, resp)
	req.Len(messages, 1)
	id := messages[0].ID

	edit := map[string]any{"to": "Todos", "text": "edited", "type": "message"}

	resp = doJSON(t, http.MethodPut, server.URL+"/messages/"+id, "mallory", edit)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, server.URL+"/messages/"+id, "alice", edit)
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/messages?limit=1", "alice", nil)
	messages = decode[[]messageJSON](t, resp)
	req.Equal("edited", messages[0].Text)

	resp = doJSON(t, http.MethodDelete, server.URL+"/messages/"+id, "mallory", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, server.URL+"/messages/"+id, "alice", nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, server.URL+"/messages/"+id, "alice", nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestHeartbeat(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/status", "ghost", nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/participants", "", map[string]any{"name": "alice"})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/status", "alice", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/participants", "", map[string]any{"name": "alice"})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/health", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	req.EqualValues(1, health["participants"])
	req.EqualValues(1, health["messages"])
}
