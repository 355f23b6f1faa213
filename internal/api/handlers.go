package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"arena-shooter/internal/game"
	"arena-shooter/internal/room"

	"github.com/go-chi/chi/v5"
)

// commandResponse is the reply to every game command, over HTTP and
// WebSocket alike.
type commandResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type moveRequest struct {
	Location *game.Location `json:"location"`
}

type dirRequest struct {
	Dir *game.Direction `json:"dir"`
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"rooms":  len(h.rooms.List()),
	})
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"rooms": h.rooms.List()})
}

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Create()
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}
	log.Printf("🏠 Room %s created via API", rm.Code())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"code": rm.Code()})
}

func (h *routerHandlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.GetOrCreate(chi.URLParam(r, "code"))
	if err != nil {
		writeCommandResult(w, err)
		return
	}
	writeCommandResult(w, rm.Join(UserIDFromContext(r.Context())))
}

func (h *routerHandlers) handleMove(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookupRoom(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Location == nil {
		writeCommandFailure(w, "Invalid request", http.StatusBadRequest)
		return
	}
	writeCommandResult(w, rm.MoveTo(UserIDFromContext(r.Context()), *req.Location))
}

func (h *routerHandlers) handleChangeDir(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookupRoom(w, r)
	if !ok {
		return
	}
	var req dirRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Dir == nil {
		writeCommandFailure(w, "Invalid request", http.StatusBadRequest)
		return
	}
	writeCommandResult(w, rm.ChangeDir(UserIDFromContext(r.Context()), *req.Dir))
}

func (h *routerHandlers) handleShoot(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookupRoom(w, r)
	if !ok {
		return
	}
	writeCommandResult(w, rm.Shoot(UserIDFromContext(r.Context())))
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookupRoom(w, r)
	if !ok {
		return
	}
	writeJSON(w, rm.UserState(UserIDFromContext(r.Context())))
}

func (h *routerHandlers) lookupRoom(w http.ResponseWriter, r *http.Request) (*room.Room, bool) {
	code := chi.URLParam(r, "code")
	if _, err := room.NormalizeCode(code); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	rm, ok := h.rooms.Get(code)
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return nil, false
	}
	return rm, true
}

// statusForError maps command and room errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, game.ErrNotJoined):
		return http.StatusConflict
	case errors.Is(err, room.ErrRoomFull), errors.Is(err, room.ErrTooManyRooms):
		return http.StatusServiceUnavailable
	case errors.Is(err, room.ErrInvalidCode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions (package-level for reuse)

func writeCommandResult(w http.ResponseWriter, err error) {
	if err != nil {
		writeCommandFailure(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, commandResponse{Success: true})
}

func writeCommandFailure(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(commandResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
