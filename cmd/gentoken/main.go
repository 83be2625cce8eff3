// Command gentoken issues session token for local calls to the wallet API
//
//	gentoken --email student@mbcet.ac.in --secret-key $SECRET_KEY
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/campuswallet/internal/service/auth"
	"github.com/nkiryanov/campuswallet/internal/service/auth/tokenmanager"
)

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string, out io.Writer) error {
	fs := pflag.NewFlagSet("gentoken", pflag.ContinueOnError)
	email := fs.StringP("email", "u", "", "Session email")
	secret := fs.StringP("secret-key", "s", getenv("SECRET_KEY"), "Secret key the server runs with")
	domain := fs.String("email-domain", getenv("ALLOWED_EMAIL_DOMAIN"), "Allowed email domain")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return err
	}

	tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: *secret, TTL: *ttl})
	if err != nil {
		return fmt.Errorf("error while creating token manager: %w", err)
	}
	authService, err := auth.NewService(auth.Config{AllowedDomain: *domain}, tokens)
	if err != nil {
		return fmt.Errorf("error while creating auth service: %w", err)
	}

	token, err := authService.Login(*email)
	if err != nil {
		return fmt.Errorf("error while issuing token: %w", err)
	}

	_, err = fmt.Fprintln(out, token.Value)
	return err
}
