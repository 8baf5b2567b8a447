// Package handler contains the HTTP layer: request parsing, response
// formatting, and nothing else. Business rules live in the service package;
// a handler's job is to translate between HTTP and plain Go calls.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/devforum/internal/auth"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/repository"
	"github.com/sakif/devforum/internal/service"
)

// QuestionHandler manages CRUD and voting for questions.
type QuestionHandler struct {
	questions *service.QuestionService
	votes     *service.VoteService
	logger    *slog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService, votes *service.VoteService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, votes: votes, logger: logger}
}

// questionRequest is the body for create and update.
type questionRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// voteRequest carries the vote direction for both questions and answers.
type voteRequest struct {
	Direction string `json:"direction"`
}

// HandleList returns a page of questions.
//
// HTTP: GET /api/questions?keyword=...&tag=...&limit=20&offset=0
//
// QUERY PARAMETERS:
// strconv.Atoi on a missing parameter returns an error — we deliberately
// ignore it and let the service apply its defaults, so ?limit=abc behaves
// like no limit at all rather than a 400.
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := h.questions.List(r.Context(), repository.QuestionListOptions{
		Keyword: q.Get("keyword"),
		Tag:     q.Get("tag"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleCreate posts a new question.
//
// HTTP: POST /api/questions
// Auth: Required
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid question JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	question, err := h.questions.Create(r.Context(), userID, req.Title, req.Description, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

// HandleGet returns one question and counts the view.
//
// HTTP: GET /api/questions/{id}
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	question, err := h.questions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// HandleUpdate edits a question. Only the author may edit.
//
// HTTP: PUT /api/questions/{id}
// Auth: Required
func (h *QuestionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid question JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	question, err := h.questions.Update(r.Context(), userID, r.PathValue("id"), req.Title, req.Description, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// HandleDelete removes a question. Only the author may delete.
//
// HTTP: DELETE /api/questions/{id}
// Auth: Required
func (h *QuestionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	if err := h.questions.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVote toggles the caller's vote on a question.
//
// HTTP: PUT /api/questions/{id}/vote
// Auth: Required
// REQUEST BODY: {"direction": "upvote"} or {"direction": "downvote"}
//
// Sending the direction the caller already holds removes the vote; sending
// the opposite direction switches it. The response carries the question with
// refreshed voter lists and score.
func (h *QuestionHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
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

	question, _, err := h.votes.VoteQuestion(r.Context(), userID, r.PathValue("id"), model.VoteDirection(req.Direction))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, question)
}
