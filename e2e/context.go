// Package e2e drives a running kycgate server through godog scenarios.
//
// The server must be started with the same JWT_SIGNING_KEY, JWT_ISSUER and
// BOOTSTRAP_ADMIN the suite is given:
//
//	E2E_BASE_URL=http://localhost:8080 E2E_ADMIN=0x…ad go test ./...
package e2e

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext holds per-scenario state: named identities, the last response
// and any values steps saved for later steps.
type TestContext struct {
	BaseURL    string
	SigningKey []byte
	Issuer     string
	Admin      string

	client     *http.Client
	identities map[string]string
	actor      string
	saved      map[string]string

	lastStatus int
	lastBody   []byte
}

// NewTestContext reads the suite environment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/"),
		SigningKey: []byte(getenv("E2E_JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		Issuer:     getenv("E2E_JWT_ISSUER", "kycgate"),
		Admin:      strings.ToLower(os.Getenv("E2E_ADMIN")),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears scenario state. Every scenario gets fresh identities so runs
// against a long-lived server do not collide.
func (tc *TestContext) Reset() {
	tc.identities = map[string]string{"admin": tc.Admin}
	tc.saved = map[string]string{}
	tc.actor = "admin"
	tc.lastStatus = 0
	tc.lastBody = nil
}

// Identity returns the address behind a scenario alias, minting one on first use.
func (tc *TestContext) Identity(alias string) string {
	if id, ok := tc.identities[alias]; ok {
		return id
	}
	var b [20]byte
	_, _ = rand.Read(b[:])
	id := "0x" + hex.EncodeToString(b[:])
	tc.identities[alias] = id
	return id
}

func (tc *TestContext) ActAs(alias string) {
	tc.actor = alias
}

func (tc *TestContext) Save(key, value string) {
	tc.saved[key] = value
}

func (tc *TestContext) Saved(key string) string {
	return tc.saved[key]
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.actor != "" {
		token, err := tc.token(tc.Identity(tc.actor))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) token(subject string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tc.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		ID:        uuid.NewString(),
	}).SignedString(tc.SigningKey)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
