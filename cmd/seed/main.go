package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"accounthub/config"
	"accounthub/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@example.com"
	password := "Demo1234!"
	hasher := helpers.NewPasswordHasher(cfg.BcryptCost)
	hash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO accounts (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lower(email)) DO UPDATE SET first_name = EXCLUDED.first_name
		RETURNING id
	`, "Demo", "Account", email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}
	fmt.Printf("seeded account: id=%s email=%s password=%s\n", id, email, password)
}
