package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matthewhartstonge/argon2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/config"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/otp"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/repository"
	"github.com/vasapolrittideah/articles-feed-api/shared/auth"
	"github.com/vasapolrittideah/articles-feed-api/shared/security"
)

// memoryUserRepository stores deep copies so tests notice mutations that were never saved.
type memoryUserRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User

	// failSave, when set, is consulted before each replace.
	failSave func(user *model.User) error

	// afterList, when set, runs after each ListUsers call with its 1-based call number.
	afterList func(call int)
	listCalls int
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[bson.ObjectID]*model.User)}
}

func (r *memoryUserRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(user); err != nil {
		return nil, err
	}

	user.ID = bson.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(user)

	return user, nil
}

func (r *memoryUserRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	return r.find(func(u *model.User) bool { return u.ID == objectID })
}

func (r *memoryUserRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) GetUserByPhone(_ context.Context, phone string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Phone == phone })
}

func (r *memoryUserRepository) GetUserByUUID(_ context.Context, userUUID string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.UUID == userUUID })
}

func (r *memoryUserRepository) GetUserByPasswordUUID(_ context.Context, passwordUUID string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.PasswordUUID != nil && *u.PasswordUUID == passwordUUID })
}

func (r *memoryUserRepository) SaveUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.replace(user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *memoryUserRepository) SaveUsers(_ context.Context, users ...*model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range users {
		if err := r.replace(user); err != nil {
			if i > 0 {
				return fmt.Errorf("%w: %w", repository.ErrPartialWrite, err)
			}
			return err
		}
	}

	return nil
}

func (r *memoryUserRepository) SetFollowers(
	_ context.Context,
	id bson.ObjectID,
	current, followers []model.FollowEdge,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok || !sameEdges(user.Followers, current) {
		return false, nil
	}

	user.Followers = append([]model.FollowEdge{}, followers...)
	user.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryUserRepository) ListUsers(_ context.Context, params repository.ListUsersParams) ([]*model.User, error) {
	page, call := r.listPage(params)
	if r.afterList != nil {
		r.afterList(call)
	}
	return page, nil
}

func (r *memoryUserRepository) listPage(params repository.ListUsersParams) ([]*model.User, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listCalls++

	ids := make([]bson.ObjectID, 0, len(r.users))
	for id := range r.users {
		if params.AfterID == "" || id.Hex() > params.AfterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })

	if params.Limit > 0 && int64(len(ids)) > params.Limit {
		ids = ids[:params.Limit]
	}

	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneUser(r.users[id]))
	}

	return out, r.listCalls
}

func sameEdges(a, b []model.FollowEdge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stored returns a copy of the persisted state of id.
func (r *memoryUserRepository) stored(t *testing.T, id bson.ObjectID) *model.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		t.Fatalf("user %s not stored", id.Hex())
	}
	return cloneUser(user)
}

// put stores user as is, bypassing every check.
func (r *memoryUserRepository) put(user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = cloneUser(user)
}

func (r *memoryUserRepository) replace(user *model.User) error {
	if r.failSave != nil {
		if err := r.failSave(user); err != nil {
			return err
		}
	}
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}

	user.UpdatedAt = time.Now()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryUserRepository) checkUnique(user *model.User) error {
	for id, other := range r.users {
		if id == user.ID {
			continue
		}
		if other.Email == user.Email || other.Phone == user.Phone || other.UUID == user.UUID {
			return repository.ErrConflict
		}
	}
	return nil
}

func (r *memoryUserRepository) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if match(user) {
			return cloneUser(user), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.ArticlePreferences = append([]string(nil), u.ArticlePreferences...)
	c.Followers = append([]model.FollowEdge{}, u.Followers...)
	c.Following = append([]model.FollowEdge{}, u.Following...)
	if u.OTP != nil {
		v := *u.OTP
		c.OTP = &v
	}
	if u.OTPExpiry != nil {
		v := *u.OTPExpiry
		c.OTPExpiry = &v
	}
	if u.PasswordOTP != nil {
		v := *u.PasswordOTP
		c.PasswordOTP = &v
	}
	if u.PasswordOTPExpiry != nil {
		v := *u.PasswordOTPExpiry
		c.PasswordOTPExpiry = &v
	}
	if u.PasswordUUID != nil {
		v := *u.PasswordUUID
		c.PasswordUUID = &v
	}
	return &c
}

type sentMessage struct {
	To, Subject, Body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject, Body: body})
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no notification sent")
	}
	return n.sent[len(n.sent)-1]
}

const testFrontendURL = "https://articles.example.com"

var testBaseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	now      time.Time
	repo     *memoryUserRepository
	notifier *recordingNotifier
	tokens   *auth.JWTAuthenticator
	hasher   *security.PasswordHasher

	account AccountUsecase
	follow  FollowUsecase
	reset   PasswordResetUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		now:      testBaseTime,
		repo:     newMemoryUserRepository(),
		notifier: &recordingNotifier{},
	}
	clock := func() time.Time { return env.now }

	argonCfg := argon2.DefaultConfig()
	argonCfg.TimeCost = 1
	argonCfg.MemoryCost = 8 * 1024
	argonCfg.Parallelism = 1
	env.hasher = security.NewPasswordHasherWithConfig(argonCfg)

	env.tokens = auth.NewJWTAuthenticator(auth.TokenConfig{
		Secret:    "test-secret-with-enough-entropy",
		Issuer:    "articles-feed",
		ExpiresIn: 100 * time.Hour,
	}).WithClock(clock)

	engine := otp.NewEngine(otp.Config{
		VerificationTTL:  30 * time.Minute,
		PasswordResetTTL: 10 * time.Minute,
	}, otp.WithClock(clock))

	cfg := &config.AccountServiceConfig{FrontendURL: testFrontendURL}
	logger := zerolog.Nop()

	env.account = NewAccountUsecase(env.repo, engine, env.hasher, env.tokens, env.notifier, cfg, &logger)
	env.follow = NewFollowUsecase(env.repo, &logger)
	env.reset = NewPasswordResetUsecase(env.repo, engine, env.hasher, env.tokens, env.notifier, cfg, &logger)

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func registerParams(email, phone string) RegisterParams {
	return RegisterParams{
		Firstname:          "Ada",
		Lastname:           "Lovelace",
		Email:              email,
		Phone:              phone,
		DateOfBirth:        time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		ArticlePreferences: []string{"tech", "science"},
		Password:           "secret1",
	}
}

// register creates an account and returns its stored record.
func (e *testEnv) register(t *testing.T, email, phone string) *model.User {
	t.Helper()

	token, err := e.account.Register(context.Background(), registerParams(email, phone))
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}

	userID, err := e.tokens.Resolve(token)
	if err != nil {
		t.Fatalf("resolve registration token: %v", err)
	}

	user, err := e.repo.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("load registered user: %v", err)
	}
	return user
}

// linkParts extracts the last two path segments of the link in body.
func linkParts(t *testing.T, body, prefix string) (string, string) {
	t.Helper()

	start := strings.Index(body, prefix)
	if start < 0 {
		t.Fatalf("link %q not found in %q", prefix, body)
	}
	rest := body[start+len(prefix):]
	if end := strings.IndexAny(rest, " \n"); end >= 0 {
		rest = rest[:end]
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		t.Fatalf("unexpected link tail %q", rest)
	}
	return parts[0], parts[1]
}

func expectErr(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
