package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"vault-backend/internal/config"
	"vault-backend/internal/handlers"
)

// generate-jwt mints a token for local API testing.
func main() {
	principal := flag.String("principal", "", "owner address (20 or 32 byte hex) or service name")
	role := flag.String("role", handlers.RoleOwner, "token role: owner, backend or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	configPath := flag.String("config", "config.yaml", "config file for the JWT secret")
	flag.Parse()

	if *principal == "" {
		fmt.Fprintln(os.Stderr, "usage: generate-jwt -principal <address> [-role owner|backend|admin] [-ttl 24h]")
		os.Exit(1)
	}
	switch *role {
	case handlers.RoleOwner, handlers.RoleBackend, handlers.RoleAdmin:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(1)
	}

	if err := config.LoadConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	token, err := handlers.GenerateToken(*principal, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "\nprincipal: %s\nrole: %s\nexpires: %s\n", *principal, *role, time.Now().Add(*ttl).Format(time.RFC3339))
}
