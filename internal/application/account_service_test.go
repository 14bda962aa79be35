package application

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"accounthub/internal/domain/entity"
	repo "accounthub/internal/domain/repository"
	"accounthub/pkg/helpers"
	"accounthub/pkg/validation"
)

// memRepo is an in-memory AccountRepository for workflow tests.
type memRepo struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[string]*entity.Account)}
}

func copyOf(a *entity.Account) *entity.Account {
	c := *a
	return &c
}

func (m *memRepo) Create(ctx context.Context, a *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.accounts {
		if strings.EqualFold(e.Email, a.Email) {
			return repo.ErrDuplicateEmail
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = copyOf(a)
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return copyOf(a), nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			return copyOf(a), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return repo.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "first_name":
			a.FirstName = v.(string)
		case "last_name":
			a.LastName = v.(string)
		case "email":
			a.Email = v.(string)
		case "avatar_url":
			a.AvatarURL = v.(string)
		case "birthday":
			// tests patch birthday as a string; a real store parses DATE
		}
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return repo.ErrNotFound
	}
	a.Password = hash
	a.UpdatedAt = time.Now()
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	delete(m.accounts, id)
	return a, nil
}

func newTestService() (*Service, *memRepo) {
	r := newMemRepo()
	s := NewService(
		r,
		validation.NewCredentialChecker(validation.DefaultPasswordPolicy()),
		helpers.NewPasswordHasher(bcrypt.MinCost),
		helpers.NewTokenIssuer("test-secret", 24*time.Hour),
	)
	return s, r
}

func signupAda(t *testing.T, s *Service) *entity.Account {
	t.Helper()
	a, token, err := s.Signup(context.Background(), SignupInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@x.com",
		Password:        "Str0ng!Pass",
		ConfirmPassword: "Str0ng!Pass",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return a
}

func TestSignupThenLogin(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	created := signupAda(t, s)
	require.NotEmpty(t, created.ID)
	assert.NotEqual(t, "Str0ng!Pass", created.Password)

	logged, token, err := s.Login(ctx, "ada@x.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Equal(t, created.ID, logged.ID)
	assert.NotEmpty(t, token)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	s, _ := newTestService()

	_, _, err := s.Signup(context.Background(), SignupInput{
		FirstName:       "Ada",
		Email:           "ada@x.com",
		Password:        "Str0ng!Pass",
		ConfirmPassword: "Different!1",
	})
	assert.ErrorIs(t, err, validation.ErrPasswordMismatch)
}

func TestSignup_ValidationPropagatesVerbatim(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	_, _, err := s.Signup(ctx, SignupInput{FirstName: "Ada"})
	assert.ErrorIs(t, err, validation.ErrMissingFields)

	_, _, err = s.Signup(ctx, SignupInput{FirstName: "Ada", Email: "nope", Password: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass"})
	assert.ErrorIs(t, err, validation.ErrInvalidEmail)

	_, _, err = s.Signup(ctx, SignupInput{FirstName: "Ada", Email: "ada@x.com", Password: "weak", ConfirmPassword: "weak"})
	assert.ErrorIs(t, err, validation.ErrWeakPassword)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s, _ := newTestService()
	signupAda(t, s)

	_, _, err := s.Signup(context.Background(), SignupInput{
		FirstName:       "Other",
		Email:           "ada@x.com",
		Password:        "An0ther!Pass",
		ConfirmPassword: "An0ther!Pass",
	})
	assert.ErrorIs(t, err, repo.ErrDuplicateEmail)
}

func TestLogin_Failures(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	signupAda(t, s)

	_, _, err := s.Login(ctx, "", "pw")
	assert.ErrorIs(t, err, validation.ErrMissingFields)

	_, _, err = s.Login(ctx, "nobody@x.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrIncorrectEmail)

	_, _, err = s.Login(ctx, "ada@x.com", "wrong")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestLogin_CorruptDigest(t *testing.T) {
	s, r := newTestService()
	ctx := context.Background()

	a := &entity.Account{FirstName: "Bad", Email: "bad@x.com", Password: "garbage"}
	require.NoError(t, r.Create(ctx, a))

	_, _, err := s.Login(ctx, "bad@x.com", "whatever")
	assert.ErrorIs(t, err, helpers.ErrCorruptDigest)
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	created := signupAda(t, s)

	err := s.ChangePassword(ctx, created.ID, "Str0ng!Pass", "N3w!Passw0rd")
	require.NoError(t, err)

	// The new password logs in; the old one no longer does.
	logged, _, err := s.Login(ctx, "ada@x.com", "N3w!Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, created.ID, logged.ID)

	_, _, err = s.Login(ctx, "ada@x.com", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestChangePassword_Failures(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	created := signupAda(t, s)

	err := s.ChangePassword(ctx, "missing-id", "Str0ng!Pass", "N3w!Passw0rd")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	err = s.ChangePassword(ctx, created.ID, "wrong-old", "N3w!Passw0rd")
	assert.ErrorIs(t, err, ErrOldPasswordMismatch)
}

func TestChangePassword_NoStrengthRecheck(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	created := signupAda(t, s)

	// The strength policy applies at signup only.
	require.NoError(t, s.ChangePassword(ctx, created.ID, "Str0ng!Pass", "weak"))

	_, _, err := s.Login(ctx, "ada@x.com", "weak")
	assert.NoError(t, err)
}

func TestUpdateProfile_Summary(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	created := signupAda(t, s)

	summary, err := s.UpdateProfile(ctx, created.ID, map[string]any{
		"last_name":  "Byron",
		"first_name": "Augusta",
	})
	require.NoError(t, err)
	assert.Equal(t, "account "+created.ID+" modified: first_name: Augusta, last_name: Byron", summary)

	a, err := s.GetAccount(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", a.FirstName)
	assert.Equal(t, "Byron", a.LastName)
}

func TestUpdateProfile_NotFound(t *testing.T) {
	s, _ := newTestService()
	_, err := s.UpdateProfile(context.Background(), "missing-id", map[string]any{"first_name": "X"})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteAccount(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	created := signupAda(t, s)

	deleted, err := s.DeleteAccount(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, "ada@x.com", deleted.Email)

	_, err = s.GetAccount(ctx, created.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = s.DeleteAccount(ctx, created.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
