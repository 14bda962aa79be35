package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"accounthub/internal/application"
	"accounthub/internal/domain/entity"
	repo "accounthub/internal/domain/repository"
	"accounthub/pkg/response"
	"accounthub/pkg/validation"
)

const birthdayLayout = "2006-01-02"

type AccountHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAccountHandler(svc *application.Service, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger}
}

type signupRequest struct {
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Birthday        string `json:"birthday"` // optional, YYYY-MM-DD
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// accountView is the outward shape of an account; the password hash is
// deliberately absent.
type accountView struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func viewOf(a *entity.Account) accountView {
	return accountView{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		AvatarURL: a.AvatarURL,
		Birthday:  a.Birthday,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// statusFor maps workflow outcomes to HTTP status codes: unknown accounts
// are 404, credential and uniqueness failures 400, anything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, validation.ErrMissingFields),
		errors.Is(err, validation.ErrPasswordMismatch),
		errors.Is(err, validation.ErrInvalidEmail),
		errors.Is(err, validation.ErrWeakPassword),
		errors.Is(err, repo.ErrDuplicateEmail),
		errors.Is(err, repo.ErrInvalidPatch),
		errors.Is(err, application.ErrIncorrectEmail),
		errors.Is(err, application.ErrIncorrectPassword),
		errors.Is(err, application.ErrOldPasswordMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *AccountHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		}
		msg = "internal error"
	}
	response.Error(c, status, msg, nil)
}

// Signup POST /api/signup
func (h *AccountHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	in := application.SignupInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if req.Birthday != "" {
		bd, err := time.Parse(birthdayLayout, req.Birthday)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"birthday": "must match format " + birthdayLayout})
			return
		}
		in.Birthday = &bd
	}

	a, token, err := h.Svc.Signup(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"email": a.Email, "token": token}, "account created")
}

// Login POST /api/login
func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	a, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": a.ID, "token": token}, "login successful")
}

// Get GET /api/users/:id
func (h *AccountHandler) Get(c *gin.Context) {
	a, err := h.Svc.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, viewOf(a), "account")
}

// Update PATCH /api/users/:id
func (h *AccountHandler) Update(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	summary, err := h.Svc.UpdateProfile(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, summary)
}

// Delete DELETE /api/users/:id
func (h *AccountHandler) Delete(c *gin.Context) {
	a, err := h.Svc.DeleteAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, viewOf(a), "account deleted")
}

// ChangePassword POST /api/users/:id/password
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Svc.ChangePassword(c.Request.Context(), c.Param("id"), req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password changed successfully")
}

// Search GET /api/users/search?q=...
func (h *AccountHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "missing query", nil)
		return
	}
	hits, err := h.Svc.SearchAccounts(c.Request.Context(), q, 10)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "results")
}

// UploadAvatar POST /api/users/:id/avatar (multipart field "avatar")
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unreadable avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	contentType := fh.Header.Get("Content-Type")
	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.Param("id"), f, fh.Filename, contentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar uploaded")
}
