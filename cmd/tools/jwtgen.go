package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/internal/config"
	"rdw-inventory-api/internal/models"
)

func main() {
	var (
		userID     = flag.Int64("user", 1, "User ID")
		username   = flag.String("username", "admin", "Username claim")
		role       = flag.String("role", models.RoleAdmin, "Role: admin, frontdesk, teknisi or manager")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	// Load config
	cfg := config.Load()

	// Override with command line flags if provided
	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}
	if !models.IsValidRole(*role) {
		log.Fatalf("Unknown role %q", *role)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatalf("Invalid JWT settings: %v", err)
	}

	token, err := jwtManager.GenerateToken(*userID, *username, *role)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("User ID: %d\n", *userID)
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("Role: %s\n", *role)
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/equipment\n", token)
}
