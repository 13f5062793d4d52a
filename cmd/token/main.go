// Command token mints a bearer token for an identity using the server's
// JWT_SIGNING_KEY and JWT_ISSUER. Intended for operators and local testing.
//
//	token -identity 0x00000000000000000000000000000000000000ad -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/platform/config"
	"kycgate/pkg/domain"
)

func main() {
	identity := flag.String("identity", "", "caller identity (0x-prefixed, 40 hex characters)")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to TOKEN_TTL")
	flag.Parse()

	if err := run(*identity, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(raw string, ttl time.Duration) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	caller, err := domain.RequireIdentity(raw)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cfg.TokenTTL
	}
	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer).GenerateAccessToken(caller, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
