package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/client"
	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/testutil"
)

func newBackendClient(t *testing.T) (*testutil.FakeBackend, *client.Client) {
	t.Helper()
	backend := testutil.NewFakeBackend()
	t.Cleanup(backend.Close)
	return backend, client.New(client.Options{
		BaseURL:        backend.URL(),
		RequestTimeout: 2 * time.Second,
		SubmitTimeout:  2 * time.Second,
	})
}

func userProvider(t *testing.T, id string) *identity.Provider {
	t.Helper()
	p := identity.NewProvider(identity.NewMemoryStore(), nil)
	require.NoError(t, p.SetUserID(context.Background(), id))
	return p
}

func credentialsFile(size int) *models.CredentialsFile {
	body := testutil.CredentialsJSON(size)
	return &models.CredentialsFile{
		Name:        "service-account.json",
		ContentType: "application/json",
		Size:        int64(len(body)),
		Content:     bytes.NewReader(body),
	}
}

func newSlowClient(base string, submitTimeout time.Duration) *client.Client {
	return client.New(client.Options{BaseURL: base, SubmitTimeout: submitTimeout, RequestTimeout: time.Second})
}
