package router

import (
	"accounthub/internal/application"
	"accounthub/internal/container"
	pginfra "accounthub/internal/infrastructure/postgres"
	handlers "accounthub/internal/interface/http"
	accountmodule "accounthub/internal/router/modules"
	"accounthub/pkg/helpers"
	"accounthub/pkg/validation"
)

func buildAccountModule() Module {
	cfg := container.GetConfig()

	repo := pginfra.NewAccountRepository(container.GetPGPool())
	checker := validation.NewCredentialChecker(validation.DefaultPasswordPolicy())
	hasher := helpers.NewPasswordHasher(cfg.BcryptCost)

	svc := application.NewService(repo, checker, hasher, container.GetTokens())
	svc.Redis = container.GetRedis()
	svc.Logger = container.GetLogger()
	svc.ES = container.GetES()
	svc.ESIndex = cfg.ESAccountsIndex
	svc.Pub = container.GetRabbitPub()
	svc.GCS = container.GetGCS()
	svc.GCSBucket = cfg.GCSBucket
	svc.AppName = cfg.AppName

	handler := handlers.NewAccountHandler(svc, container.GetLogger())
	return accountmodule.New(handler)
}

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	r.Add(buildAccountModule())
}
