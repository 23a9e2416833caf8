// Package transport exposes the chat relay over HTTP. Identity comes from
// the User header and is passed down as an explicit parameter; handlers only
// translate verbs and map the error taxonomy onto status codes.
package transport

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

type Handler struct {
	log     *slog.Logger
	service services.IChatService
	stats   *observability.StatsProvider
}

func NewHandler(log *slog.Logger, service services.IChatService, stats *observability.StatsProvider) *Handler {
	return &Handler{log: log, service: service, stats: stats}
}

// NewRouter wires every route of the relay.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.HandleFunc("/participants", h.Join).Methods(http.MethodPost)
	r.HandleFunc("/participants", h.Participants).Methods(http.MethodGet)
	r.HandleFunc("/messages", h.PostMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages", h.GetMessages).Methods(http.MethodGet)
	r.HandleFunc("/messages/{id}", h.EditMessage).Methods(http.MethodPut)
	r.HandleFunc("/messages/{id}", h.DeleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/status", h.Heartbeat).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	return r
}

type participantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type messageResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

// Join handles POST /participants.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err = h.service.Join(body["name"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Participants handles GET /participants.
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.Participants()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lo.Map(participants, func(p domain.Participant, _ int) participantResponse {
		return participantResponse{Name: p.Name, LastStatus: p.LastStatus.UnixMilli()}
	}))
}

// PostMessage handles POST /messages. An unregistered sender is a payload
// problem, not a missing resource, hence 422.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	_, err = h.service.PostMessage(r.Header.Get("User"), body["to"], body["text"], body["type"])
	if stderrors.Is(err, errors.ErrParticipantNotFound) {
		h.writeJSON(w, http.StatusUnprocessableEntity, []string{"from must be a registered participant"})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// GetMessages handles GET /messages?limit=. Absent or zero limit means
// unbounded; negative or non-numeric limits fail validation.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, errors.NewValidationError("limit must be a number"))
			return
		}
		limit = parsed
	}

	messages, err := h.service.Messages(r.Header.Get("User"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:   m.ID.String(),
			From: m.From,
			To:   m.To,
			Text: m.Text,
			Type: string(m.Type),
			Time: m.Time,
		}
	}))
}

// EditMessage handles PUT /messages/{id}.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	err = h.service.EditMessage(id, r.Header.Get("User"), body["to"], body["text"], body["type"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteMessage handles DELETE /messages/{id}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.RemoveMessage(id, r.Header.Get("User")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Heartbeat handles POST /status.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Heartbeat(r.Header.Get("User")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Health handles GET /health with process stats and collection counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	type healthResponse struct {
		Process      observability.ProcessStats `json:"process"`
		Participants int                        `json:"participants"`
		Messages     int                        `json:"messages"`
	}

	stats, err := h.stats.Collect()
	if err != nil {
		h.writeError(w, err)
		return
	}
	participants, err := h.service.Participants()
	if err != nil {
		h.writeError(w, err)
		return
	}
	messages, err := h.service.MessageCount()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, healthResponse{
		Process:      stats,
		Participants: len(participants),
		Messages:     messages,
	})
}

func decodeBody(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.NewValidationError("body must be a JSON object")
	}
	return body, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Response encoding failed", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validationErr *errors.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, validationErr.Violations)
	case stderrors.Is(err, errors.ErrParticipantExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case stderrors.Is(err, errors.ErrParticipantNotFound),
		stderrors.Is(err, errors.ErrMessageNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case stderrors.Is(err, errors.ErrNotMessageOwner):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		h.log.Error("Request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, User")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
