package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/devforum/internal/auth"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/service"
)

// AnswerHandler manages answers: posting, editing, voting, and acceptance.
type AnswerHandler struct {
	answers *service.AnswerService
	votes   *service.VoteService
	logger  *slog.Logger
}

// NewAnswerHandler creates a new AnswerHandler.
func NewAnswerHandler(answers *service.AnswerService, votes *service.VoteService, logger *slog.Logger) *AnswerHandler {
	return &AnswerHandler{answers: answers, votes: votes, logger: logger}
}

// answerRequest is the body for create and update.
type answerRequest struct {
	Content string `json:"content"`
}

// HandleListForQuestion returns a question's answers, accepted answer first.
//
// HTTP: GET /api/questions/{id}/answers
func (h *AnswerHandler) HandleListForQuestion(w http.ResponseWriter, r *http.Request) {
	answers, err := h.answers.ListForQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answers)
}

// HandleCreate posts an answer under a question. The question's author is
// notified (unless they answered their own question), and @-mentions in the
// body produce mention notifications.
//
// HTTP: POST /api/questions/{id}/answers
// Auth: Required
func (h *AnswerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid answer JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	answer, err := h.answers.Create(r.Context(), userID, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, answer)
}

// HandleUpdate edits an answer. Only the author may edit.
//
// HTTP: PUT /api/answers/{id}
// Auth: Required
func (h *AnswerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid answer JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	answer, err := h.answers.Update(r.Context(), userID, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// HandleDelete removes an answer. Only the author may delete.
//
// HTTP: DELETE /api/answers/{id}
// Auth: Required
func (h *AnswerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	if err := h.answers.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVote toggles the caller's vote on an answer.
//
// HTTP: PUT /api/answers/{id}/vote
// Auth: Required
// REQUEST BODY: {"direction": "upvote"} or {"direction": "downvote"}
func (h *AnswerHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid vote JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	answer, _, err := h.votes.VoteAnswer(r.Context(), userID, r.PathValue("id"), model.VoteDirection(req.Direction))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// HandleAccept marks an answer as accepted. Only the question's author may
// accept, and acceptance moves: accepting a second answer un-marks the first.
//
// HTTP: PUT /api/answers/{id}/accept
// Auth: Required
func (h *AnswerHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	answer, err := h.answers.Accept(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
