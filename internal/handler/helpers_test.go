package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devforum/internal/auth"
	"github.com/sakif/devforum/internal/handler"
	"github.com/sakif/devforum/internal/realtime"
	"github.com/sakif/devforum/internal/repository/sqlite"
	"github.com/sakif/devforum/internal/service"
)

// HANDLER TESTING STRATEGY:
// Handlers here are thin adapters over the service layer, so testing them in
// isolation with mocked services would mostly re-test JSON plumbing. Instead
// each test runs real requests through a chi router wired exactly like the
// production server, over an in-memory SQLite database. That exercises the
// full request path — routing, auth middleware, URL params, status codes and
// response bodies — without network or disk.

// testAPI bundles the router with helpers for making authenticated requests.
type testAPI struct {
	t      *testing.T
	router *chi.Mux
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := realtime.NewHub(logger)
	t.Cleanup(hub.Shutdown)

	tokens, err := auth.NewTokenService("handler-test-secret-32-characters!!")
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	users := sqlite.NewUserStore(db)
	questions := sqlite.NewQuestionStore(db)
	answers := sqlite.NewAnswerStore(db)
	votes := sqlite.NewVoteStore(db)
	notifications := sqlite.NewNotificationStore(db)

	notifier := service.NewNotifier(notifications, users, questions, hub, logger)
	authService := service.NewAuthService(users, tokens, passwords, logger)
	questionService := service.NewQuestionService(questions, users, notifier, logger)
	answerService := service.NewAnswerService(answers, questions, users, notifier, logger)
	voteService := service.NewVoteService(questions, answers, users, votes, logger)
	notificationService := service.NewNotificationService(notifications, users, questions, hub, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	questionHandler := handler.NewQuestionHandler(questionService, voteService, logger)
	answerHandler := handler.NewAnswerHandler(answerService, voteService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)

	requireAuth := auth.RequireAuth(tokens)

	// Same route table as the production server.
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})
		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionHandler.HandleList)
			r.Get("/{id}", questionHandler.HandleGet)
			r.Get("/{id}/answers", answerHandler.HandleListForQuestion)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", questionHandler.HandleCreate)
				r.Put("/{id}", questionHandler.HandleUpdate)
				r.Delete("/{id}", questionHandler.HandleDelete)
				r.Put("/{id}/vote", questionHandler.HandleVote)
				r.Post("/{id}/answers", answerHandler.HandleCreate)
			})
		})
		r.Route("/answers", func(r chi.Router) {
			r.Use(requireAuth)
			r.Put("/{id}", answerHandler.HandleUpdate)
			r.Delete("/{id}", answerHandler.HandleDelete)
			r.Put("/{id}/vote", answerHandler.HandleVote)
			r.Put("/{id}/accept", answerHandler.HandleAccept)
		})
		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", notificationHandler.HandleList)
			r.Get("/unread-count", notificationHandler.HandleUnreadCount)
			r.Put("/read-all", notificationHandler.HandleMarkAllRead)
			r.Put("/{id}/read", notificationHandler.HandleMarkRead)
		})
	})

	return &testAPI{t: t, router: router}
}

// do sends a request through the router. token may be "" for anonymous
// requests; body may be nil.
func (api *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	api.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			api.t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a response body into out.
func decode(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

// register creates an account and returns its token and user ID.
func (api *testAPI) register(username string) (token, userID string) {
	api.t.Helper()

	rr := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	if rr.Code != http.StatusCreated {
		api.t.Fatalf("register %s: status %d, body %s", username, rr.Code, rr.Body.String())
	}

	var res struct {
		User  struct{ ID string } `json:"user"`
		Token string              `json:"token"`
	}
	decode(api.t, rr, &res)
	return res.Token, res.User.ID
}

// postQuestion creates a question and returns its ID.
func (api *testAPI) postQuestion(token, title string) string {
	api.t.Helper()

	rr := api.do(http.MethodPost, "/api/questions", token, map[string]any{
		"title":       title,
		"description": "details for " + title,
		"tags":        []string{"go"},
	})
	if rr.Code != http.StatusCreated {
		api.t.Fatalf("post question: status %d, body %s", rr.Code, rr.Body.String())
	}

	var q struct{ ID string }
	decode(api.t, rr, &q)
	return q.ID
}

// postAnswer answers a question and returns the answer ID.
func (api *testAPI) postAnswer(token, questionID, content string) string {
	api.t.Helper()

	rr := api.do(http.MethodPost, fmt.Sprintf("/api/questions/%s/answers", questionID), token, map[string]string{
		"content": content,
	})
	if rr.Code != http.StatusCreated {
		api.t.Fatalf("post answer: status %d, body %s", rr.Code, rr.Body.String())
	}

	var a struct{ ID string }
	decode(api.t, rr, &a)
	return a.ID
}
