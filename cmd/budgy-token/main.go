// Command budgy-token issues a bearer token for an owner, signed with the
// server's AUTH_JWT_SECRET. It is meant for development and scripting.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"budgy/internal/auth"
	"budgy/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	owner := flag.String("owner", "", "ledger owner the token is issued for")
	ttl := flag.Duration("ttl", 0, "token lifetime (default AUTH_TOKEN_TTL or 24h)")
	flag.Parse()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "usage: budgy-token -owner <name> [-ttl 24h]")
		os.Exit(2)
	}

	lifetime := *ttl
	if lifetime == 0 {
		if v, err := time.ParseDuration(os.Getenv("AUTH_TOKEN_TTL")); err == nil {
			lifetime = v
		}
	}

	tokens, err := auth.NewTokens(os.Getenv("AUTH_JWT_SECRET"), lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "budgy-token: %v\n", err)
		os.Exit(1)
	}
	token, err := tokens.Issue(*owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "budgy-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
