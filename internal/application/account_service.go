package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"accounthub/internal/domain/entity"
	repo "accounthub/internal/domain/repository"
	"accounthub/pkg/helpers"
	"accounthub/pkg/mailer"
	"accounthub/pkg/validation"
)

var (
	ErrIncorrectEmail      = errors.New("incorrect email")
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrAccountNotFound     = errors.New("account not found")
	ErrOldPasswordMismatch = errors.New("old password does not match")
)

// Service composes the credential checker, hasher, store, and token issuer
// into the signup/login/account-mutation workflows. Redis, Elasticsearch,
// GCS, and the email queue are optional collaborators; a nil client skips
// that concern.
type Service struct {
	Repo      repo.AccountRepository
	Checker   *validation.CredentialChecker
	Hasher    *helpers.PasswordHasher
	Tokens    *helpers.TokenIssuer
	Redis     *redis.Client
	Logger    *logrus.Logger
	ES        *elasticsearch.Client
	ESIndex   string
	Pub       *helpers.RabbitPublisher
	GCS       *storage.Client
	GCSBucket string
	AppName   string
}

func NewService(repo repo.AccountRepository, checker *validation.CredentialChecker, hasher *helpers.PasswordHasher, tokens *helpers.TokenIssuer) *Service {
	return &Service{
		Repo:    repo,
		Checker: checker,
		Hasher:  hasher,
		Tokens:  tokens,
	}
}

type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	Birthday        *time.Time
}

func sessionKey(accountID string) string {
	return "account:session:" + accountID
}

func profileKey(accountID string) string {
	return "account:profile:" + accountID
}

const profileCacheTTL = 10 * time.Minute

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Signup validates credentials, rejects duplicate emails, hashes the
// password, persists the account, and issues an identity token.
// Validation failures propagate verbatim from the credential checker.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*entity.Account, string, error) {
	if err := s.Checker.CheckSignup(in.Email, in.Password, in.ConfirmPassword); err != nil {
		return nil, "", err
	}

	// Read-then-write existence check; the unique index on accounts.email
	// is the backstop for the race window.
	if existing, err := s.Repo.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, "", repo.ErrDuplicateEmail
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, "", err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}

	a := &entity.Account{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
		Birthday:  in.Birthday,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, "", err
	}

	token, _, err := s.Tokens.Issue(a.ID)
	if err != nil {
		return nil, "", err
	}

	s.indexAccount(ctx, a)
	s.enqueueEmail(ctx, a, mailer.Welcome)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"account_id": a.ID, "email": a.Email}).Info("account created")
	}
	return a, token, nil
}

// Login verifies credentials against the stored digest and issues a token.
// A session record is cached in Redis for 24h when a client is configured.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.Account, string, error) {
	if err := s.Checker.CheckLogin(email, password); err != nil {
		return nil, "", err
	}

	a, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrIncorrectEmail
		}
		return nil, "", err
	}

	ok, err := s.Hasher.Verify(password, a.Password)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrIncorrectPassword
	}

	token, exp, err := s.Tokens.Issue(a.ID)
	if err != nil {
		return nil, "", err
	}

	if s.Redis != nil {
		key := sessionKey(a.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"account_id": a.ID,
			"email":      a.Email,
			"name":       a.FirstName,
			"logged_in":  true,
			"expires_at": exp.UTC().Format(time.RFC3339Nano),
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return a, token, nil
}

// GetAccount returns the account for the given id, reading through the
// Redis profile cache when one is configured. Cached copies carry no
// password digest; credential checks always read the store directly.
func (s *Service) GetAccount(ctx context.Context, id string) (*entity.Account, error) {
	if s.Redis != nil {
		var cached entity.Account
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, profileKey(id), &cached); err == nil && ok {
			return &cached, nil
		}
	}

	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if s.Redis != nil {
		cp := *a
		cp.Password = ""
		if err := helpers.RedisSetJSON(ctx, s.Redis, profileKey(id), cp, profileCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", id).Warn("profile cache write failed")
		}
	}
	return a, nil
}

func (s *Service) invalidateProfile(ctx context.Context, id string) {
	if s.Redis == nil {
		return
	}
	_ = s.Redis.Del(ctx, profileKey(id)).Err()
}

// ChangePassword re-verifies the old password before storing a new digest.
// The new password is hashed as-is; the strength policy applies at signup only.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	ok, err := s.Hasher.Verify(oldPassword, a.Password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOldPasswordMismatch
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.enqueueEmail(ctx, a, mailer.PasswordChanged)
	if s.Logger != nil {
		s.Logger.WithField("account_id", id).Info("password changed")
	}
	return nil
}

// UpdateProfile applies a partial field patch and returns a human-readable
// summary of what changed. No field-level validation beyond the column
// whitelist enforced by the store.
func (s *Service) UpdateProfile(ctx context.Context, id string, fields map[string]any) (string, error) {
	if err := s.Repo.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", err
	}

	s.invalidateProfile(ctx, id)
	if a, err := s.Repo.GetByID(ctx, id); err == nil {
		s.indexAccount(ctx, a)
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", k, fields[k]))
	}
	return fmt.Sprintf("account %s modified: %s", id, strings.Join(parts, ", ")), nil
}

// DeleteAccount removes the account and returns the deleted record.
func (s *Service) DeleteAccount(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.Repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	s.removeFromIndex(ctx, id)
	s.invalidateProfile(ctx, id)
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, sessionKey(id)).Err()
	}
	if s.Logger != nil {
		s.Logger.WithField("account_id", id).Info("account deleted")
	}
	return a, nil
}

// UploadAvatar stores an avatar image in GCS and patches the avatar URL.
func (s *Service) UploadAvatar(ctx context.Context, id string, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", id, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}

	if err := s.Repo.UpdateFields(ctx, id, map[string]any{"avatar_url": url}); err != nil {
		return "", err
	}
	a.AvatarURL = url
	s.invalidateProfile(ctx, id)
	s.indexAccount(ctx, a)
	return url, nil
}

func (s *Service) enqueueEmail(ctx context.Context, a *entity.Account, template string) {
	if s.Pub == nil {
		return
	}
	job := mailer.EmailJob{
		To:       a.Email,
		Template: template,
		Data: map[string]any{
			"FirstName": a.FirstName,
			"Email":     a.Email,
			"AppName":   s.AppName,
		},
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", template).Warn("email enqueue failed")
	}
}

func (s *Service) indexAccount(ctx context.Context, a *entity.Account) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         a.ID,
		"email":      a.Email,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"avatar_url": a.AvatarURL,
		"created_at": a.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": a.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: a.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", a.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("account_id", a.ID).Warn("es index response error")
	}
}

func (s *Service) removeFromIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchAccounts performs a multi_match search on email and name fields.
func (s *Service) SearchAccounts(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "first_name", "last_name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
