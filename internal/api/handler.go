package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/minderhq/minder/internal/biz/domain"
	"github.com/minderhq/minder/internal/biz/repo"
	"github.com/minderhq/minder/internal/biz/usecase"
)

// Server provides the HTTP API for chat, channel ingestion and
// session record access.
type Server struct {
	store  repo.Store
	ingest *usecase.IngestUsecase
	outbox *usecase.OutboxUsecase
	nudge  *usecase.NudgeUsecase
	log    *logrus.Logger

	server *http.Server
	addr   string
}

// NewServer creates a new API server.
func NewServer(store repo.Store, ingest *usecase.IngestUsecase, outbox *usecase.OutboxUsecase, nudge *usecase.NudgeUsecase, addr string, log *logrus.Logger) *Server {
	return &Server{
		store:  store,
		ingest: ingest,
		outbox: outbox,
		nudge:  nudge,
		addr:   addr,
		log:    log,
	}
}

// Handler builds the routed handler with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/integrations/channel/ingest", s.handleIngest)
	mux.HandleFunc("/sessions/", s.handleSessions)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "dev"
		}
		s.writeJSON(w, map[string]string{
			"status":  "ok",
			"service": "minder",
			"env":     env,
		})
	})

	return s.loggingMiddleware(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	s.log.WithField("addr", s.addr).Info("http api listening")
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Chat ============

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = r.Header.Get("x-session-id")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := s.ingest.HandleChat(r.Context(), sessionID, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, chatResponse{
		RequestID: requestID(r),
		SessionID: sessionID,
		Reply:     reply,
	})
}

// ============ Channel ingest ============

type ingestRequest struct {
	SessionID string          `json:"session_id"`
	ChannelID string          `json:"channel_id"`
	MessageID string          `json:"message_id"`
	Author    string          `json:"author"`
	Content   string          `json:"content"`
	Raw       json.RawMessage `json:"raw"`
	TS        string          `json:"ts"`
	Timestamp string          `json:"timestamp"` // alias for ts
}

type ingestResponse struct {
	OK          bool   `json:"ok"`
	Deduped     bool   `json:"deduped"`
	QueuedReply bool   `json:"queued_reply"`
	ReplyText   string `json:"reply_text,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.MessageID == "" {
		http.Error(w, "session_id and message_id are required", http.StatusBadRequest)
		return
	}

	if req.ChannelID != "" {
		if err := s.store.BindChannel(r.Context(), req.SessionID, req.ChannelID); err != nil {
			s.writeError(w, err)
			return
		}
	}

	rec := &domain.InboundRecord{
		ID:        req.MessageID,
		SessionID: req.SessionID,
		Author:    req.Author,
		Text:      req.Content,
		Source:    "channel",
		Raw:       string(req.Raw),
	}
	tsField := req.TS
	if tsField == "" {
		tsField = req.Timestamp
	}
	if ts, err := time.Parse(time.RFC3339, tsField); err == nil {
		rec.Timestamp = ts
	}

	result, err := s.ingest.HandleInbound(r.Context(), rec)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, ingestResponse{
		OK:          true,
		Deduped:     result.Deduped,
		QueuedReply: result.Queued,
		ReplyText:   result.Reply,
	})
}

// ============ Session records ============

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	// Paths: /sessions/{id}, /sessions/{id}/{resource},
	// /sessions/{id}/outbox/{mid}, /sessions/{id}/outbox/{mid}/attempts
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	sessionID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleClear(w, r, sessionID)
		return
	}

	switch parts[1] {
	case "tasks":
		s.handleTasks(w, r, sessionID)
	case "reminders":
		s.handleReminders(w, r, sessionID)
	case "checkins":
		s.handleCheckIns(w, r, sessionID)
	case "history":
		s.handleHistory(w, r, sessionID)
	case "inbound":
		s.handleInbound(w, r, sessionID)
	case "nudge":
		s.handleNudge(w, r, sessionID)
	case "outbox":
		switch len(parts) {
		case 2:
			s.handleOutboxList(w, r, sessionID)
		case 3:
			s.handleOutboxDelivery(w, r, sessionID, parts[2])
		case 4:
			if parts[3] != "attempts" {
				http.Error(w, "invalid path", http.StatusBadRequest)
				return
			}
			s.handleOutboxAttempt(w, r, sessionID, parts[2])
		default:
			http.Error(w, "invalid path", http.StatusBadRequest)
		}
	default:
		http.Error(w, "invalid path", http.StatusBadRequest)
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tasks, err := s.store.ListTasks(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, map[string]interface{}{
			"id":         t.ID,
			"title":      t.Title,
			"completed":  t.Completed,
			"created_at": t.CreatedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, map[string]interface{}{"tasks": out})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reminders, err := s.store.ListReminders(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(reminders))
	for _, rem := range reminders {
		out = append(out, map[string]interface{}{
			"id":         rem.ID,
			"text":       rem.Text,
			"due_at":     rem.DueAt.Format(time.RFC3339),
			"completed":  rem.Completed,
			"created_at": rem.CreatedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, map[string]interface{}{"reminders": out})
}

func (s *Server) handleCheckIns(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	checkins, err := s.store.ListCheckIns(r.Context(), sessionID, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(checkins))
	for _, c := range checkins {
		out = append(out, map[string]interface{}{
			"id":        c.ID,
			"mood":      c.Mood,
			"energy":    c.Energy,
			"focus":     c.Focus,
			"note":      c.Note,
			"timestamp": c.Timestamp.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, map[string]interface{}{"checkins": out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	history, err := s.store.History(r.Context(), sessionID, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]interface{}{
			"role":      m.Role,
			"content":   m.Content,
			"timestamp": m.Timestamp.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, map[string]interface{}{"messages": out})
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := s.store.ListInbound(r.Context(), sessionID, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		item := map[string]interface{}{
			"id":        rec.ID,
			"author":    rec.Author,
			"text":      rec.Text,
			"source":    rec.Source,
			"timestamp": rec.Timestamp.Format(time.RFC3339),
		}
		if rec.Raw != "" {
			if json.Valid([]byte(rec.Raw)) {
				item["raw"] = json.RawMessage(rec.Raw)
			} else {
				item["raw"] = rec.Raw
			}
		}
		out = append(out, item)
	}
	s.writeJSON(w, map[string]interface{}{"inbound": out})
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entry, err := s.nudge.Tick(r.Context(), sessionID, time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entry == nil {
		s.writeJSON(w, map[string]interface{}{"text": nil})
		return
	}
	s.writeJSON(w, map[string]interface{}{"text": entry.Text})
}

func (s *Server) handleOutboxList(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entries []*domain.OutboxEntry
	var err error
	if r.URL.Query().Get("undelivered") == "1" {
		entries, err = s.outbox.ListUndelivered(r.Context(), sessionID)
	} else {
		entries, err = s.outbox.List(r.Context(), sessionID, 0)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		item := map[string]interface{}{
			"id":         e.ID,
			"text":       e.Text,
			"reason":     e.Reason,
			"delivered":  e.Delivered,
			"attempts":   e.Attempts,
			"created_at": e.CreatedAt.Format(time.RFC3339),
		}
		if e.DeliveredAt != nil {
			item["delivered_at"] = e.DeliveredAt.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	s.writeJSON(w, map[string]interface{}{"outbox": out})
}

type deliveryRequest struct {
	Delivered   bool   `json:"delivered"`
	DeliveredAt string `json:"delivered_at"`
}

func (s *Server) handleOutboxDelivery(w http.ResponseWriter, r *http.Request, sessionID, entryID string) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !req.Delivered {
		http.Error(w, "delivered must be true", http.StatusBadRequest)
		return
	}

	at := time.Now()
	if req.DeliveredAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.DeliveredAt)
		if err != nil {
			http.Error(w, "invalid delivered_at", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	ok, err := s.outbox.MarkDelivered(r.Context(), sessionID, entryID, at)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "outbox entry not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]interface{}{"ok": true})
}

func (s *Server) handleOutboxAttempt(w http.ResponseWriter, r *http.Request, sessionID, entryID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, err := s.outbox.RecordAttempt(r.Context(), sessionID, entryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if n < 0 {
		http.Error(w, "outbox entry not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]interface{}{"attempts": n})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.store.Clear(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"ok": true})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
