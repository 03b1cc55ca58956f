// Package main provides the backend authentication tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/maxify/internal/infra/backend"
)

var (
	app      = kingpin.New("maxify-auth", "Obtain a backend token for the maxify player")
	baseURL  = app.Flag("api-url", "Backend API base URL").Envar("MAXIFY_API_URL").Default(backend.DefaultBaseURL).String()
	username = app.Flag("username", "Backend username").Envar("MAXIFY_USERNAME").Required().String()
	password = app.Flag("password", "Backend password").Envar("MAXIFY_PASSWORD").Required().String()
	timeout  = app.Flag("timeout", "Request timeout").Default("30s").Duration()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse flags
	kingpin.MustParse(app.Parse(os.Args[1:]))

	client, err := backend.New(backend.Config{BaseURL: *baseURL, Timeout: *timeout})
	if err != nil {
		log.Fatalf("Failed to create backend client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := client.Login(ctx, *username, *password)
	if err != nil {
		if statusErr, ok := backend.AsStatusError(err); ok && statusErr.IsUnauthorized() {
			log.Fatalf("Login rejected: %s", statusErr.Message)
		}
		log.Fatalf("Login failed: %v", err)
	}

	// Print token
	fmt.Println("")
	fmt.Println("=== Login Successful ===")
	fmt.Println("")
	fmt.Println("Access Token:")
	fmt.Println(token.AccessToken)
	if !token.Expiry.IsZero() {
		fmt.Printf("Expires: %s (in %s)\n", token.Expiry.Local().Format(time.RFC1123), time.Until(token.Expiry).Round(time.Minute))
	}
	fmt.Println("")
	fmt.Println("Add this to your player.yaml:")
	fmt.Println("")
	fmt.Println("backend:")
	fmt.Printf("  token: \"%s\"\n", token.AccessToken)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export MAXIFY_TOKEN=\"%s\"\n", token.AccessToken)
}
