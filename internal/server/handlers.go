package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/eventlog"
	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/snapshot"
	"github.com/dgnsrekt/charsync/internal/subscription"
)

type Server struct {
	events    eventlog.Log
	states    subscription.StateStore
	snapshots snapshot.Store
	logger    *zap.Logger
}

func NewServer(events eventlog.Log, states subscription.StateStore, snapshots snapshot.Store, logger *zap.Logger) *Server {
	return &Server{
		events:    events,
		states:    states,
		snapshots: snapshots,
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type subscriptionResponse struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type syncRequest struct {
	EntityIDs []string `json:"entity_ids"`
}

type syncResponse struct {
	EventID string `json:"event_id"`
	Version int64  `json:"version"`
}

type snapshotResponse struct {
	EntityID   string          `json:"entity_id"`
	Game       game.Game       `json:"game"`
	InsertedAt time.Time       `json:"inserted_at"`
	Payload    json.RawMessage `json:"payload"`
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) GetSubscription(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, ok, err := s.states.Get(r.Context(), name)
	if err != nil {
		s.internalError(w, "loading subscription", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "subscription not found: " + name})
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Name:      st.Name,
		Status:    string(st.Status),
		Version:   st.Version,
		UpdatedAt: st.Time,
	})
}

// RequestSync appends a sync_requested event. An empty or missing body
// requests every tracked entity of the game.
func (s *Server) RequestSync(w http.ResponseWriter, r *http.Request) {
	g, err := game.Parse(chi.URLParam(r, "game"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req syncRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reading body: " + err.Error()})
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
	}

	ev, err := s.events.Append(r.Context(), eventlog.New(eventlog.SyncRequested{Game: g, EntityIDs: req.EntityIDs}))
	if err != nil {
		s.internalError(w, "appending event", err)
		return
	}
	s.logger.Info("sync requested",
		zap.String("game", g.String()),
		zap.Int("entities", len(req.EntityIDs)),
		zap.Int64("version", ev.Version),
	)
	writeJSON(w, http.StatusAccepted, syncResponse{EventID: ev.Event.ID, Version: ev.Version})
}

func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cur, ok, err := snapshot.Current(r.Context(), s.snapshots, id)
	if err != nil {
		s.internalError(w, "loading snapshot", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot for entity " + id})
		return
	}
	if !json.Valid(cur.Payload) {
		s.internalError(w, "loading snapshot", errors.New("stored payload is not valid JSON"))
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		EntityID:   cur.EntityID,
		Game:       cur.Game,
		InsertedAt: cur.InsertedAt,
		Payload:    cur.Payload,
	})
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg + " failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
