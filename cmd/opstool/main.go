// Package main provides a CLI for local operations: hashing admin passwords,
// signing webhook payloads, and minting dev session tokens. Output produced
// with the dev signing key will NOT work in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	adminauth "onboard-gateway/internal/admin/auth"
	"onboard-gateway/internal/webhook"
)

// Matches config.go defaults when the env vars are not set.
const (
	devSigningKey     = "dev-secret-key-change-in-production"
	defaultSessionTTL = time.Hour
)

func main() {
	hashCmd := flag.NewFlagSet("hash", flag.ExitOnError)
	hashPassword := hashCmd.String("password", "", "Password to hash (required)")
	hashCost := hashCmd.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")

	signCmd := flag.NewFlagSet("sign", flag.ExitOnError)
	signSecret := signCmd.String("secret", "", "Webhook shared secret (required)")
	signFile := signCmd.String("file", "-", "Payload file, - for stdin")

	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	sessionUsername := sessionCmd.String("username", "admin", "Operator username")
	sessionPassword := sessionCmd.String("password", "", "Operator password (required)")
	sessionKey := sessionCmd.String("key", devSigningKey, "JWT signing key")
	sessionTTL := sessionCmd.Duration("ttl", defaultSessionTTL, "Session time-to-live")
	sessionJSON := sessionCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "hash":
		hashCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		runHash(*hashPassword, *hashCost)
	case "sign":
		signCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		runSign(*signSecret, *signFile)
	case "session":
		sessionCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		runSession(*sessionUsername, *sessionPassword, *sessionKey, *sessionTTL, *sessionJSON)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: opstool <command> [flags]

commands:
  hash     Hash an admin password for ADMIN_PASSWORD_HASH
  sign     Compute the X-Payload-Digest header for a webhook payload
  session  Mint an admin session token for local testing`)
}

func runHash(password string, cost int) {
	if password == "" {
		fatal("hash: -password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		fatal("hash: %v", err)
	}
	fmt.Println(string(hash))
}

func runSign(secret, file string) {
	if secret == "" {
		fatal("sign: -secret is required")
	}

	var body []byte
	var err error
	if file == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(file)
	}
	if err != nil {
		fatal("sign: read payload: %v", err)
	}

	fmt.Println(webhook.NewAuthenticator(secret).Sign(body))
}

func runSession(username, password, key string, ttl time.Duration, asJSON bool) {
	if password == "" {
		fatal("session: -password is required")
	}

	// Hash the supplied password so Login accepts it; the token only has to
	// verify against the signing key.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		fatal("session: %v", err)
	}

	sessions := adminauth.NewSessionService(username, string(hash), key, ttl)
	token, err := sessions.Login(username, password)
	if err != nil {
		fatal("session: %v", err)
	}

	if asJSON {
		out, err := json.MarshalIndent(map[string]string{
			"token":     token,
			"tokenType": "Bearer",
			"expiresIn": ttl.String(),
			"usage":     fmt.Sprintf("curl -H 'Authorization: Bearer %s' http://localhost:8080/admin/applicants/pending-review", token),
		}, "", "  ")
		if err != nil {
			fatal("session: %v", err)
		}
		fmt.Println(string(out))
		return
	}
	fmt.Println(token)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
