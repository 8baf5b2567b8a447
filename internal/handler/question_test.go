package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/devforum/internal/model"
)

func TestQuestionHandler_Create(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		api := newTestAPI(t)
		token, userID := api.register("asker")

		rr := api.do(http.MethodPost, "/api/questions", token, map[string]any{
			"title":       "how do channels work",
			"description": "details",
			"tags":        []string{"Go", "concurrency"},
		})

		assert.Equal(t, http.StatusCreated, rr.Code)

		var q model.Question
		decode(t, rr, &q)
		assert.NotEmpty(t, q.ID)
		assert.Equal(t, userID, q.UserID)
		assert.Equal(t, []string{"go", "concurrency"}, q.Tags) // normalized to lowercase
		assert.NotNil(t, q.Author)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(http.MethodPost, "/api/questions", "", map[string]any{
			"title":       "anonymous question",
			"description": "details",
		})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		api := newTestAPI(t)
		token, _ := api.register("asker")

		rr := api.do(http.MethodPost, "/api/questions", token, map[string]any{
			"description": "details without a title",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestQuestionHandler_Get(t *testing.T) {
	t.Run("existing question counts a view", func(t *testing.T) {
		api := newTestAPI(t)
		token, _ := api.register("asker")
		id := api.postQuestion(token, "how do channels work")

		first := api.do(http.MethodGet, "/api/questions/"+id, "", nil)
		assert.Equal(t, http.StatusOK, first.Code)

		second := api.do(http.MethodGet, "/api/questions/"+id, "", nil)
		var q model.Question
		decode(t, second, &q)
		assert.Equal(t, 2, q.Views)
	})

	t.Run("unknown question", func(t *testing.T) {
		api := newTestAPI(t)

		rr := api.do(http.MethodGet, "/api/questions/nonexistent", "", nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestQuestionHandler_List(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("asker")
	api.postQuestion(token, "channels and goroutines")
	api.postQuestion(token, "slices explained")

	rr := api.do(http.MethodGet, "/api/questions?keyword=channels", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		Questions []model.Question `json:"questions"`
		Total     int              `json:"total"`
	}
	decode(t, rr, &res)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Questions, 1)
	assert.Equal(t, "channels and goroutines", res.Questions[0].Title)
}

func TestQuestionHandler_Update(t *testing.T) {
	t.Run("owner edits", func(t *testing.T) {
		api := newTestAPI(t)
		token, _ := api.register("asker")
		id := api.postQuestion(token, "original title")

		rr := api.do(http.MethodPut, "/api/questions/"+id, token, map[string]any{
			"title": "updated title",
		})

		assert.Equal(t, http.StatusOK, rr.Code)

		var q model.Question
		decode(t, rr, &q)
		assert.Equal(t, "updated title", q.Title)
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		api := newTestAPI(t)
		ownerToken, _ := api.register("asker")
		otherToken, _ := api.register("intruder")
		id := api.postQuestion(ownerToken, "my question")

		rr := api.do(http.MethodPut, "/api/questions/"+id, otherToken, map[string]any{
			"title": "hijacked",
		})

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestQuestionHandler_Delete(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register("asker")
	id := api.postQuestion(token, "to delete")

	rr := api.do(http.MethodDelete, "/api/questions/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do(http.MethodGet, "/api/questions/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQuestionHandler_Vote(t *testing.T) {
	t.Run("upvote then toggle off", func(t *testing.T) {
		api := newTestAPI(t)
		askerToken, _ := api.register("asker")
		voterToken, voterID := api.register("voter")
		id := api.postQuestion(askerToken, "voteworthy")

		rr := api.do(http.MethodPut, "/api/questions/"+id+"/vote", voterToken, map[string]string{
			"direction": "upvote",
		})
		assert.Equal(t, http.StatusOK, rr.Code)

		var q model.Question
		decode(t, rr, &q)
		assert.Equal(t, 1, q.VoteScore)
		assert.Equal(t, []string{voterID}, q.Upvoters)

		// Same direction again removes the vote.
		rr = api.do(http.MethodPut, "/api/questions/"+id+"/vote", voterToken, map[string]string{
			"direction": "upvote",
		})
		assert.Equal(t, http.StatusOK, rr.Code)

		decode(t, rr, &q)
		assert.Equal(t, 0, q.VoteScore)
		assert.Empty(t, q.Upvoters)
	})

	t.Run("invalid direction", func(t *testing.T) {
		api := newTestAPI(t)
		token, _ := api.register("voter")
		id := api.postQuestion(token, "voteworthy")

		rr := api.do(http.MethodPut, "/api/questions/"+id+"/vote", token, map[string]string{
			"direction": "sideways",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
