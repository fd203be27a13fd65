package api

import (
	"chat-room/domain"
	"chat-room/errors"
	"chat-room/observability"
	"chat-room/services"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	userHeader   = "User"
	maxBodyBytes = 1 << 20
	pingTimeout  = 2 * time.Second
)

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProcessProber samples the server process for the health endpoint.
type ProcessProber interface {
	Stats() (observability.ProcessStats, error)
}

type HTTPServer struct {
	participants services.IParticipantService
	messages     services.IMessageService
	store        Pinger
	probe        ProcessProber
	log          *slog.Logger
	corsOrigin   string
}

// NewHTTPServer builds the chat API. probe may be nil, the health payload then omits process stats.
func NewHTTPServer(
	participants services.IParticipantService,
	messages services.IMessageService,
	store Pinger,
	probe ProcessProber,
	log *slog.Logger,
	corsOrigin string,
) *HTTPServer {
	return &HTTPServer{
		participants: participants,
		messages:     messages,
		store:        store,
		probe:        probe,
		log:          log,
		corsOrigin:   corsOrigin,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /participants", s.handleJoin)
	mux.HandleFunc("GET /participants", s.handleListParticipants)
	mux.HandleFunc("DELETE /participants", s.handleRemoveParticipants)
	mux.HandleFunc("POST /messages", s.handleSendMessage)
	mux.HandleFunc("GET /messages", s.handleListMessages)
	mux.HandleFunc("DELETE /messages", s.handleRemoveMessages)
	mux.HandleFunc("PUT /messages/{id}", s.handleUpdateMessage)
	mux.HandleFunc("DELETE /messages/{id}", s.handleDeleteMessage)
	mux.HandleFunc("POST /status", s.handleHeartbeat)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withMiddleware(mux)
}

type participantRequest struct {
	Name string `json:"name"`
}

type participantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type messageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type messageResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

func toParticipantResponse(p domain.Participant, _ int) participantResponse {
	return participantResponse{Name: p.Name, LastStatus: p.LastStatus.UnixMilli()}
}

func toMessageResponse(m domain.Message, _ int) messageResponse {
	return messageResponse{
		ID:   m.ID.String(),
		From: m.From,
		To:   m.To,
		Text: m.Text,
		Type: string(m.Type),
		Time: m.Time,
	}
}

func (r messageRequest) toInput() services.MessageInput {
	return services.MessageInput{To: r.To, Text: r.Text, Type: r.Type}
}

func (s *HTTPServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body participantRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if err := s.participants.Join(r.Context(), body.Name); err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := s.participants.List(r.Context())
	if err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(participants, toParticipantResponse))
}

func (s *HTTPServer) handleRemoveParticipants(w http.ResponseWriter, r *http.Request) {
	if err := s.participants.RemoveAll(r.Context()); err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if err := s.messages.Send(r.Context(), r.Header.Get(userHeader), body.toInput()); err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))
	messages, err := s.messages.List(r.Context(), r.Header.Get(userHeader), limit)
	if err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, toMessageResponse))
}

func (s *HTTPServer) handleRemoveMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.messages.RemoveAll(r.Context()); err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	updated, err := s.messages.Update(r.Context(), r.PathValue("id"), r.Header.Get(userHeader), body.toInput())
	if err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(updated, 0))
}

func (s *HTTPServer) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.messages.Delete(r.Context(), r.PathValue("id"), r.Header.Get(userHeader)); err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := s.participants.Heartbeat(r.Context(), r.Header.Get(userHeader)); err != nil {
		writeServiceError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	statusCode := http.StatusOK
	storeCheck := map[string]any{"status": "ok"}
	if err := s.store.Ping(ctx); err != nil {
		statusCode = http.StatusServiceUnavailable
		storeCheck = map[string]any{"status": "error", "error": err.Error()}
	}

	response := map[string]any{
		"ok":    statusCode == http.StatusOK,
		"store": storeCheck,
	}
	if s.probe != nil {
		stats, err := s.probe.Stats()
		if err != nil {
			s.log.Warn("Failed to collect process stats", "error", err)
		} else {
			response["process"] = stats
		}
	}
	writeJSON(w, statusCode, response)
}

// decodeBody reads a JSON body into target. An empty body leaves target untouched
// so that field validation reports what is missing.
func (s *HTTPServer) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := decoder.Decode(target)
	if err == nil || stdErrors.Is(err, io.EOF) {
		return true
	}
	// Well-formed JSON with a wrong-typed field is invalid input, not a broken body
	var typeErr *json.UnmarshalTypeError
	if stdErrors.As(err, &typeErr) {
		writeServiceError(w, r, s.log,
			fmt.Errorf("%w: %s must be a %s", errors.ErrInvalidInput, typeErr.Field, typeErr.Type))
		return false
	}
	writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("invalid JSON body: %v", err))
	return false
}

// parseLimit reads an optional leading sign and the digits that follow,
// ignoring whatever comes next. Anything without digits means no limit.
func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	sign := 1
	if raw != "" && (raw[0] == '-' || raw[0] == '+') {
		if raw[0] == '-' {
			sign = -1
		}
		raw = raw[1:]
	}
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return sign * math.MaxInt
	}
	return sign * n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":  code,
		"error": message,
	})
}
