// Command devtoken prints a bearer token signed with JWT_SECRET, for local
// testing against the API. Production tokens come from the identity service.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/config"
	"github.com/Khelendrameena/zugu-ludo-backend/internal/middleware"
)

func main() {
	subject := flag.String("sub", "", "account id (random when empty)")
	role := flag.String("role", middleware.RolePlayer, "player, adjudicator or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	id := uuid.New()
	if *subject != "" {
		if id, err = uuid.Parse(*subject); err != nil {
			slog.Error("Invalid -sub", "error", err)
			os.Exit(1)
		}
	}

	tok, err := middleware.NewTokens(cfg.JWTSecret).Issue(id, *role, *ttl)
	if err != nil {
		slog.Error("Sign token", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "account %s role %s\n", id, *role)
	fmt.Println(tok)
}
