//go:build integration
// +build integration

package auth0_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jwtguard/provider/auth0"
)

func TestAuth0Integration(t *testing.T) {
	domain := os.Getenv("AUTH0_DOMAIN")
	audience := os.Getenv("AUTH0_AUDIENCE")
	token := os.Getenv("AUTH0_TEST_TOKEN")
	if domain == "" || audience == "" || token == "" {
		t.Skip("AUTH0_DOMAIN, AUTH0_AUDIENCE, and AUTH0_TEST_TOKEN must be set")
	}

	cfg, err := auth0.LoadConfig()
	require.NoError(t, err)

	verifier, err := auth0.NewVerifier(cfg, nil)
	require.NoError(t, err)

	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.Subject())
}

func TestAuth0TokenClientIntegration(t *testing.T) {
	if os.Getenv("AUTH0_JWT_CLIENTID") == "" || os.Getenv("AUTH0_OAUTH_URL") == "" {
		t.Skip("AUTH0_JWT_CLIENTID and AUTH0_OAUTH_URL must be set")
	}

	cfg, err := auth0.LoadConfig()
	require.NoError(t, err)

	client, err := auth0.NewTokenClient(cfg, nil)
	require.NoError(t, err)

	token, err := client.Token(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, token)
}
