package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/realtime"
	"github.com/sakif/devforum/internal/repository"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// The services don't know or care which implementation they get — that's
// the point of programming to an interface. Each mock stores copies, not
// pointers, so a test can't accidentally mutate stored state through a
// returned value.

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperror.Conflict("user", user.Username)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) GetByUsernames(_ context.Context, usernames []string) ([]model.User, error) {
	want := make(map[string]struct{}, len(usernames))
	for _, n := range usernames {
		want[n] = struct{}{}
	}
	var result []model.User
	for _, u := range m.users {
		if _, ok := want[u.Username]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) AdjustReputation(_ context.Context, id string, delta int) (int, error) {
	u, ok := m.users[id]
	if !ok {
		return 0, apperror.NotFound("user", id)
	}
	u.Reputation += delta
	if u.Reputation < 0 {
		u.Reputation = 0
	}
	return u.Reputation, nil
}

type mockQuestionRepo struct {
	questions map[string]*model.Question
	votes     *mockVoteRepo // voter lists come from the vote mock, like sqlite does
	nextID    int
}

func newMockQuestionRepo(votes *mockVoteRepo) *mockQuestionRepo {
	return &mockQuestionRepo{questions: make(map[string]*model.Question), votes: votes}
}

func (m *mockQuestionRepo) Create(_ context.Context, q *model.Question) error {
	m.nextID++
	q.ID = fmt.Sprintf("question-%d", m.nextID)
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	m.questions[q.ID] = &stored
	return nil
}

func (m *mockQuestionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	result := *q
	result.Author = nil
	if m.votes != nil {
		result.Upvoters, result.Downvoters, _ = m.votes.Voters(ctx, repository.VoteEntityQuestion, id)
	}
	return &result, nil
}

func (m *mockQuestionRepo) List(_ context.Context, opts repository.QuestionListOptions) ([]model.Question, int, error) {
	var all []model.Question
	for _, q := range m.questions {
		if opts.Keyword != "" && !strings.Contains(strings.ToLower(q.Title), strings.ToLower(opts.Keyword)) {
			continue
		}
		if opts.Tag != "" {
			found := false
			for _, t := range q.Tags {
				if t == opts.Tag {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		copied := *q
		copied.Author = nil
		all = append(all, copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if opts.Offset >= len(all) {
		return []model.Question{}, total, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, total, nil
}

func (m *mockQuestionRepo) Update(_ context.Context, q *model.Question) error {
	if _, ok := m.questions[q.ID]; !ok {
		return apperror.NotFound("question", q.ID)
	}
	stored := *q
	m.questions[q.ID] = &stored
	return nil
}

func (m *mockQuestionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.questions[id]; !ok {
		return apperror.NotFound("question", id)
	}
	delete(m.questions, id)
	return nil
}

func (m *mockQuestionRepo) IncrementViews(_ context.Context, id string) error {
	q, ok := m.questions[id]
	if !ok {
		return apperror.NotFound("question", id)
	}
	q.Views++
	return nil
}

func (m *mockQuestionRepo) SetAcceptedAnswer(_ context.Context, id, answerID string) error {
	q, ok := m.questions[id]
	if !ok {
		return apperror.NotFound("question", id)
	}
	q.AcceptedAnswer = answerID
	return nil
}

func (m *mockQuestionRepo) SetVoteScore(_ context.Context, id string, score int) error {
	q, ok := m.questions[id]
	if !ok {
		return apperror.NotFound("question", id)
	}
	q.VoteScore = score
	return nil
}

type mockAnswerRepo struct {
	answers map[string]*model.Answer
	votes   *mockVoteRepo
	nextID  int
}

func newMockAnswerRepo(votes *mockVoteRepo) *mockAnswerRepo {
	return &mockAnswerRepo{answers: make(map[string]*model.Answer), votes: votes}
}

func (m *mockAnswerRepo) Create(_ context.Context, a *model.Answer) error {
	m.nextID++
	a.ID = fmt.Sprintf("answer-%d", m.nextID)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	m.answers[a.ID] = &stored
	return nil
}

func (m *mockAnswerRepo) GetByID(ctx context.Context, id string) (*model.Answer, error) {
	a, ok := m.answers[id]
	if !ok {
		return nil, apperror.NotFound("answer", id)
	}
	result := *a
	result.Author = nil
	if m.votes != nil {
		result.Upvoters, result.Downvoters, _ = m.votes.Voters(ctx, repository.VoteEntityAnswer, id)
	}
	return &result, nil
}

func (m *mockAnswerRepo) ListForQuestion(_ context.Context, questionID string) ([]model.Answer, error) {
	var result []model.Answer
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			copied := *a
			copied.Author = nil
			result = append(result, copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsAccepted != result[j].IsAccepted {
			return result[i].IsAccepted
		}
		if result[i].VoteScore != result[j].VoteScore {
			return result[i].VoteScore > result[j].VoteScore
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *mockAnswerRepo) Update(_ context.Context, a *model.Answer) error {
	if _, ok := m.answers[a.ID]; !ok {
		return apperror.NotFound("answer", a.ID)
	}
	stored := *a
	m.answers[a.ID] = &stored
	return nil
}

func (m *mockAnswerRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.answers[id]; !ok {
		return apperror.NotFound("answer", id)
	}
	delete(m.answers, id)
	return nil
}

func (m *mockAnswerRepo) SetAccepted(_ context.Context, id string, accepted bool) error {
	a, ok := m.answers[id]
	if !ok {
		return apperror.NotFound("answer", id)
	}
	a.IsAccepted = accepted
	return nil
}

func (m *mockAnswerRepo) SetVoteScore(_ context.Context, id string, score int) error {
	a, ok := m.answers[id]
	if !ok {
		return apperror.NotFound("answer", id)
	}
	a.VoteScore = score
	return nil
}

// mockVoteRepo keys votes exactly the way the sqlite table does: one
// direction per (entity, entityID, voter).
type mockVoteRepo struct {
	votes map[string]model.VoteDirection
	order []string // insertion order of keys, for stable Voters output
}

func newMockVoteRepo() *mockVoteRepo {
	return &mockVoteRepo{votes: make(map[string]model.VoteDirection)}
}

func voteKey(entity repository.VoteEntity, entityID, voterID string) string {
	return string(entity) + "/" + entityID + "/" + voterID
}

func (m *mockVoteRepo) GetState(_ context.Context, entity repository.VoteEntity, entityID, voterID string) (repository.VoteState, error) {
	dir, ok := m.votes[voteKey(entity, entityID, voterID)]
	if !ok {
		return repository.VoteState{}, nil
	}
	return repository.VoteState{
		HasUpvoted:   dir == model.VoteUp,
		HasDownvoted: dir == model.VoteDown,
	}, nil
}

func (m *mockVoteRepo) SetVote(_ context.Context, entity repository.VoteEntity, entityID, voterID string, dir model.VoteDirection) error {
	key := voteKey(entity, entityID, voterID)
	if _, exists := m.votes[key]; !exists {
		m.order = append(m.order, key)
	}
	m.votes[key] = dir
	return nil
}

func (m *mockVoteRepo) ClearVote(_ context.Context, entity repository.VoteEntity, entityID, voterID string) error {
	delete(m.votes, voteKey(entity, entityID, voterID))
	return nil
}

func (m *mockVoteRepo) Voters(_ context.Context, entity repository.VoteEntity, entityID string) (up, down []string, err error) {
	prefix := string(entity) + "/" + entityID + "/"
	for _, key := range m.order {
		dir, ok := m.votes[key]
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		voterID := strings.TrimPrefix(key, prefix)
		if dir == model.VoteUp {
			up = append(up, voterID)
		} else {
			down = append(down, voterID)
		}
	}
	return up, down, nil
}

type mockNotificationRepo struct {
	notifications map[string]*model.Notification
	nextID        int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.nextID++
	n.ID = fmt.Sprintf("notification-%d", m.nextID)
	n.CreatedAt = time.Now()
	stored := *n
	stored.Sender = nil
	stored.QuestionTitle = ""
	m.notifications[n.ID] = &stored
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, apperror.NotFound("notification", id)
	}
	result := *n
	return &result, nil
}

func (m *mockNotificationRepo) ListForRecipient(_ context.Context, recipientID string, limit int) ([]model.Notification, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			result = append(result, *n)
		}
	}
	// Newest first; IDs are sequential so reverse-ID order works here.
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	n, ok := m.notifications[id]
	if !ok {
		return apperror.NotFound("notification", id)
	}
	n.Read = true
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) UnreadCount(_ context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// Compile-time checks that the mocks satisfy the interfaces they stand in for.
var (
	_ repository.UserRepository         = (*mockUserRepo)(nil)
	_ repository.QuestionRepository     = (*mockQuestionRepo)(nil)
	_ repository.AnswerRepository       = (*mockAnswerRepo)(nil)
	_ repository.VoteRepository         = (*mockVoteRepo)(nil)
	_ repository.NotificationRepository = (*mockNotificationRepo)(nil)
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

// testEnv wires the full service graph over the mocks, with a real Hub so
// tests can register in-memory realtime clients and assert on pushes.
type testEnv struct {
	users         *mockUserRepo
	questions     *mockQuestionRepo
	answers       *mockAnswerRepo
	votes         *mockVoteRepo
	notifications *mockNotificationRepo

	hub             *realtime.Hub
	notifier        *Notifier
	questionSvc     *QuestionService
	answerSvc       *AnswerService
	voteSvc         *VoteService
	notificationSvc *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	votes := newMockVoteRepo()
	env := &testEnv{
		users:         newMockUserRepo(),
		questions:     newMockQuestionRepo(votes),
		answers:       newMockAnswerRepo(votes),
		votes:         votes,
		notifications: newMockNotificationRepo(),
		hub:           realtime.NewHub(logger),
	}

	env.notifier = NewNotifier(env.notifications, env.users, env.questions, env.hub, logger)
	env.questionSvc = NewQuestionService(env.questions, env.users, env.notifier, logger)
	env.answerSvc = NewAnswerService(env.answers, env.questions, env.users, env.notifier, logger)
	env.voteSvc = NewVoteService(env.questions, env.answers, env.users, env.votes, logger)
	env.notificationSvc = NewNotificationService(env.notifications, env.users, env.questions, env.hub, logger)

	return env
}

// seedUser creates a user directly in the mock and returns it.
func (e *testEnv) seedUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username: username,
		Email:    username + "@example.com",
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

// seedQuestion creates a question directly through the service.
func (e *testEnv) seedQuestion(t *testing.T, author *model.User, title string) *model.Question {
	t.Helper()
	q, err := e.questionSvc.Create(context.Background(), author.ID, title, "some details about "+title, nil)
	if err != nil {
		t.Fatalf("seeding question %q: %v", title, err)
	}
	return q
}

// seedAnswer posts an answer through the service.
func (e *testEnv) seedAnswer(t *testing.T, author *model.User, questionID, content string) *model.Answer {
	t.Helper()
	a, err := e.answerSvc.Create(context.Background(), author.ID, questionID, content)
	if err != nil {
		t.Fatalf("seeding answer: %v", err)
	}
	return a
}

// reputation reads a user's current reputation from the mock.
func (e *testEnv) reputation(t *testing.T, userID string) int {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("reading reputation for %s: %v", userID, err)
	}
	return u.Reputation
}

// notificationsFor lists a user's stored notifications, newest first.
func (e *testEnv) notificationsFor(t *testing.T, userID string) []model.Notification {
	t.Helper()
	records, err := e.notifications.ListForRecipient(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("listing notifications for %s: %v", userID, err)
	}
	return records
}
