package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"accounthub/internal/container"
	handlers "accounthub/internal/interface/http"
	"accounthub/internal/interface/middleware"
)

// Module wires account HTTP handlers into routes.
// POST /api/signup, POST /api/login (rate limited per IP)
// GET/PATCH/DELETE /api/users/:id, POST /api/users/:id/password,
// POST /api/users/:id/avatar, GET /api/users/search

type Module struct {
	Handler *handlers.AccountHandler
}

func New(h *handlers.AccountHandler) *Module {
	return &Module{Handler: h}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	allowLocal := middleware.AllowPrivateIP()
	signupLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), allowLocal) // 5 req/min per IP
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), allowLocal)        // 10 req/min per IP

	rg.POST("/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/login", loginLimiter, m.Handler.Login)

	rg.GET("/users/search", m.Handler.Search)
	rg.GET("/users/:id", m.Handler.Get)
	rg.PATCH("/users/:id", m.Handler.Update)
	rg.DELETE("/users/:id", m.Handler.Delete)
	rg.POST("/users/:id/password", m.Handler.ChangePassword)
	rg.POST("/users/:id/avatar", m.Handler.UploadAvatar)
}
