// Package main seeds an eLibrary database with the default admin account and,
// optionally, a starter catalog.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -books
//	DATA_PATH=/var/lib/elibrary go run ./cmd/seed -admin-email ops@example.com -admin-password s3cret!
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/elibrary/elibrary-server/internal/auth"
	"github.com/elibrary/elibrary-server/internal/config"
	"github.com/elibrary/elibrary-server/internal/domain"
	"github.com/elibrary/elibrary-server/internal/logger"
	"github.com/elibrary/elibrary-server/internal/normalize"
	"github.com/elibrary/elibrary-server/internal/search"
	"github.com/elibrary/elibrary-server/internal/service"
	"github.com/elibrary/elibrary-server/internal/store/sqlstore"
)

var (
	withBooks     = flag.Bool("books", false, "Add a starter catalog when the catalog is empty")
	adminName     = flag.String("admin-name", "Administrator", "Display name of the seeded admin")
	adminEmail    = flag.String("admin-email", "admin@example.com", "Email of the seeded admin")
	adminPassword = flag.String("admin-password", "admin123", "Password of the seeded admin")
)

// starterBooks is a small public-domain catalog for local development.
var starterBooks = []service.BookRequest{
	{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "9780141439518", Quantity: 3},
	{Title: "Moby-Dick", Author: "Herman Melville", ISBN: "9780142437247", Quantity: 2},
	{Title: "Frankenstein", Author: "Mary Shelley", ISBN: "9780141439471", Quantity: 2},
	{Title: "The Adventures of Sherlock Holmes", Author: "Arthur Conan Doyle", ISBN: "9780140439076", Quantity: 4},
	{Title: "Great Expectations", Author: "Charles Dickens", ISBN: "9780141439563", Quantity: 1},
}

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Flags belong to the seeder; storage settings come from the environment and .env.
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	st, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, log.Component("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	index, err := search.NewBookIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Component("search"),
	})
	if err != nil {
		return err
	}
	defer index.Close()

	clock := clockwork.NewRealClock()
	key, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(key, cfg.Auth.AccessTokenTTL, clock)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(st, tokens, clock, log.Component("auth"))
	created, err := authService.EnsureAdmin(ctx, service.RegisterRequest{
		Name:     *adminName,
		Email:    *adminEmail,
		Password: *adminPassword,
	})
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		log.Info("Admin account seeded", "email", *adminEmail)
	} else {
		log.Info("Admin account already present", "email", *adminEmail)
	}

	if !*withBooks {
		return nil
	}

	count, err := st.CountBooks(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Info("Catalog is not empty, skipping starter books", "books", count)
		return nil
	}

	admin, err := st.GetUserByEmail(ctx, normalize.Email(*adminEmail))
	if err != nil {
		return fmt.Errorf("load admin: %w", err)
	}
	actor := auth.Actor{UserID: admin.ID, Role: domain.RoleAdmin}

	catalog := service.NewCatalogService(st, index, clock, log.Component("catalog"))
	for _, req := range starterBooks {
		book, err := catalog.CreateBook(ctx, actor, req)
		if err != nil {
			return fmt.Errorf("create %q: %w", req.Title, err)
		}
		log.Info("Book added", "id", book.ID, "title", book.Title, "quantity", book.Quantity)
	}

	return nil
}
