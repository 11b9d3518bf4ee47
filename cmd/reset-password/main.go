package main

import (
	"context"
	"flag"
	"log"

	"crm-console/internal/config"
	"crm-console/internal/model"
	"crm-console/internal/repository"
	"crm-console/pkg/database"

	"github.com/google/uuid"
)

func main() {
	email := flag.String("email", "", "email of the user (default: ADMIN_EMAIL)")
	password := flag.String("password", "", "new password (default: ADMIN_PASSWORD)")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *email == "" {
		*email = cfg.AdminEmail
	}
	if *password == "" {
		*password = cfg.AdminPassword
	}
	if len(*password) < 6 {
		log.Fatal("password must be at least 6 characters")
	}

	// 2. Setup Database
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find user
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("user %s: %v", *email, err)
	}

	// 4. Hash and store; rotating the token version signs out every session
	var hashed model.User
	if err := hashed.SetPassword(*password); err != nil {
		log.Fatalf("hash password: %v", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, hashed.Password); err != nil {
		log.Fatalf("update password: %v", err)
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		log.Fatalf("rotate token version: %v", err)
	}

	log.Printf("password for %s has been reset", *email)
}
