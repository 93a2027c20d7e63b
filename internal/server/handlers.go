package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"draftosaurus-server/internal/game/board"
	"draftosaurus-server/internal/game/rules"
	"draftosaurus-server/internal/repository"
	"draftosaurus-server/internal/service"
)

type createUserRequest struct {
	Username string `json:"username"`
}

type startGameRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

type turnRequest struct {
	Seat         int   `json:"seat"`
	BagContentID int64 `json:"bag_content_id"`
	EnclosureID  int   `json:"enclosure_id"`
}

type rollRequest struct {
	RollerSeat   int    `json:"roller_seat"`
	AffectedSeat int    `json:"affected_seat"`
	Face         string `json:"face"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, errors.New("username is required"))
		return
	}

	user, err := s.users.GetOrCreate(r.Context(), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.Player1 == "" || req.Player2 == "" {
		writeError(w, http.StatusBadRequest, errors.New("player1 and player2 are required"))
		return
	}

	game, err := s.play.StartGame(r.Context(), req.Player1, req.Player2)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *Server) handlePendingGames(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, errors.New("username query parameter is required"))
		return
	}

	games, err := s.recovery.PendingGames(r.Context(), username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleGameSnapshot(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := s.recovery.Snapshot(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleProcessTurn(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	result, err := s.play.ProcessTurn(r.Context(), gameID, req.Seat, req.BagContentID, req.EnclosureID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRollDie(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req rollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	roll, err := s.play.RollDie(r.Context(), gameID, req.RollerSeat, req.AffectedSeat, req.Face)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roll)
}

func (s *Server) handleExpireTurn(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.play.ExpireTurn(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEnclosures returns the static enclosure reference data. Die
// and rule restrictions are enforced at placement time, not here.
func (s *Server) handleEnclosures(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.play.Game(r.Context(), gameID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board.Enclosures())
}

// handleLegalTargets narrows the enclosure list to the ones a specific
// bag item may be placed into right now.
func (s *Server) handleLegalTargets(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seat, err := queryInt(r, "seat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	itemID, err := queryInt64(r, "bag_content_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	targets, err := s.play.LegalTargets(r.Context(), gameID, seat, itemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if targets == nil {
		targets = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"enclosures": targets})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scores, err := s.recovery.Scores(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scores": scores,
		"winner": service.Winner(scores),
	})
}

func (s *Server) handlePlayerBag(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seat, err := queryInt(r, "seat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items, err := s.play.PlayerBag(r.Context(), gameID, seat)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name + " in path")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0, errors.New("invalid or missing " + name + " query parameter")
	}
	return v, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		return 0, errors.New("invalid or missing " + name + " query parameter")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps engine errors to HTTP statuses: missing rows
// are 404, malformed input is 400, rule and flow rejections are 409,
// anything else is a logged 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrGameNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrScoreNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, rules.ErrUnknownEnclosure),
		errors.Is(err, rules.ErrUnknownDieFace),
		errors.Is(err, service.ErrInvalidSeat),
		errors.Is(err, service.ErrRollerNotExempt),
		errors.Is(err, service.ErrSamePlayer):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, rules.ErrEnclosureFull),
		errors.Is(err, rules.ErrSpeciesMismatch),
		errors.Is(err, rules.ErrSpeciesRepeated),
		errors.Is(err, rules.ErrSpeciesNotUnique),
		errors.Is(err, rules.ErrDieRestriction),
		errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, service.ErrGameFinished),
		errors.Is(err, service.ErrItemNotOwned),
		errors.Is(err, service.ErrItemAlreadyPlayed),
		errors.Is(err, service.ErrAlreadyRolled),
		errors.Is(err, service.ErrTurnNotExpired),
		errors.Is(err, service.ErrNoLegalTarget):
		writeError(w, http.StatusConflict, err)
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
