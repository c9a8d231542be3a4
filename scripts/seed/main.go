package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/posts-project/posts/internal/app"
	"github.com/posts-project/posts/internal/auth"
	"github.com/posts-project/posts/internal/platform/db"
	"github.com/posts-project/posts/internal/posts"
)

var demoPosts = []posts.AddPostRequest{
	{Title: "Welcome to posts", Description: "Seeded by scripts/seed."},
	{Title: "Bearer tokens", Description: "POST /api/v1/users/token, then send Authorization: Bearer <token>."},
	{Title: "Removing posts", Description: "GET /api/v1/posts/remove/{post_id} deletes a post."},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	pool, err := db.New(ctx, cfg.DatabaseDSN(), db.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Seeding never verifies tokens, so any secret will do.
	codec, err := auth.NewCodec(cfg.SecretKey, cfg.Algorithm)
	if err != nil {
		log.Fatalf("init codec: %v", err)
	}
	authService := auth.NewService(auth.NewRepository(pool), codec, auth.ServiceConfig{BcryptCost: cfg.BcryptCost}, logger)
	postsService := posts.NewService(posts.NewRepository(pool), nil, logger)

	email := getenv("SEED_EMAIL", "demo@example.com")
	password := getenv("SEED_PASSWORD", "demo123")

	fmt.Println("→ Seeding user...")
	user, err := authService.Register(ctx, email, password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		fmt.Printf("  user %s already exists, skipping posts\n", email)
		return
	case err != nil:
		log.Fatalf("seed user: %v", err)
	}

	fmt.Println("→ Seeding posts...")
	for _, req := range demoPosts {
		id, err := postsService.Add(ctx, req, user.ID)
		if err != nil {
			log.Fatalf("seed post %q: %v", req.Title, err)
		}
		fmt.Printf("  post %d: %s\n", id, req.Title)
	}
	fmt.Printf("✓ Seed complete. Login with %s / %s\n", email, password)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
