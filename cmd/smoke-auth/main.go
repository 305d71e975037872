package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"watchtower.dev/internal/console"
	"watchtower.dev/internal/policy"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	server := env("WATCHTOWER_SERVER", "http://localhost:8080")
	email := os.Getenv("WATCHTOWER_SMOKE_EMAIL")
	password := os.Getenv("WATCHTOWER_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("WATCHTOWER_SMOKE_EMAIL and WATCHTOWER_SMOKE_PASSWORD are required")
	}

	session, err := console.Open(console.NewMemoryStorage())
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	client, err := console.NewClient(server, session)
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.Login(ctx, email, "definitely-not-the-password", ""); !errors.Is(err, console.ErrInvalidCredentials) {
		log.Fatalf("wrong password: want invalid credentials, got %v", err)
	}

	user, err := client.Login(ctx, email, password, "")
	if err != nil {
		log.Fatalf("login %s: %v", email, err)
	}
	if !user.Role.Valid() {
		log.Fatalf("login returned non-canonical role %q", user.Role)
	}

	me, err := client.Me(ctx)
	if err != nil {
		log.Fatalf("auth/me: %v", err)
	}
	if me.ID != user.ID || me.Role != user.Role {
		log.Fatalf("auth/me mismatch: login=%s/%s me=%s/%s", user.ID, user.Role, me.ID, me.Role)
	}

	before := session.Current()
	if err := client.Refresh(ctx); err != nil {
		log.Fatalf("refresh: %v", err)
	}
	after := session.Current()
	if after.AccessToken == "" || after.RefreshToken == before.RefreshToken {
		log.Fatal("refresh did not rotate tokens")
	}
	if after.Role() != user.Role {
		log.Fatalf("refresh changed role: %s -> %s", user.Role, after.Role())
	}

	// Every rule must agree with the server: allowed views answer, others are
	// refused before a request is made.
	ctxCalls, cancelCalls := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCalls()
	checks := []struct {
		rule policy.Rule
		call func() error
	}{
		{policy.ManageUsers, func() error { _, err := client.Users(ctxCalls); return err }},
		{policy.ProfileTypes, func() error { _, err := client.ProfileTypes(ctxCalls); return err }},
		{policy.Notifications, func() error { _, err := client.NotificationRules(ctxCalls); return err }},
	}
	for _, c := range checks {
		err := c.call()
		switch {
		case c.rule.Allows(user.Role) && err != nil:
			log.Fatalf("%s as %s: %v", c.rule.Name, user.Role, err)
		case !c.rule.Allows(user.Role) && !errors.Is(err, console.ErrForbidden):
			log.Fatalf("%s as %s: want forbidden, got %v", c.rule.Name, user.Role, err)
		}
	}

	if err := client.Logout(); err != nil {
		log.Fatalf("logout: %v", err)
	}
	if _, err := client.Me(ctx); !errors.Is(err, console.ErrSignInRequired) {
		log.Fatalf("after logout: want sign-in required, got %v", err)
	}

	fmt.Printf("✅ auth smoke test passed: user=%s role=%s\n", user.Email, user.Role)
}
