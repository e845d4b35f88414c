package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/testutil"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

type cliEnv struct {
	backend      *testutil.FakeBackend
	identityFile string
	dir          string
	keyFile      string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	backend := testutil.NewFakeBackend()
	t.Cleanup(backend.Close)
	dir := t.TempDir()
	key := filepath.Join(dir, "service-account.json")
	require.NoError(t, os.WriteFile(key, testutil.CredentialsJSON(400), 0o600))
	return &cliEnv{
		backend:      backend,
		identityFile: filepath.Join(dir, "identity.json"),
		dir:          dir,
		keyFile:      key,
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, e.backend.URL(), e.identityFile, args...)
}

func runCLI(t *testing.T, apiURL, identityFile string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(append([]string{"--api-url", apiURL, "--identity-file", identityFile}, args...))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestSubmitThenGallery(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "submit", "-c", env.keyFile, "Analyze", "Nairobi", "from", "2019", "to", "2023")
	require.NoError(t, err)
	assert.Contains(t, out, "session-1")
	assert.Contains(t, out, "/results/session-1/preview")

	subs := env.backend.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "Analyze Nairobi from 2019 to 2023", subs[0].Query)
	assert.Equal(t, "service-account.json", subs[0].Filename)

	idOut, _, err := env.run(t, "identity", "show")
	require.NoError(t, err)
	assert.Equal(t, subs[0].UserID, strings.TrimSpace(idOut))

	out, _, err = env.run(t, "gallery")
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "session-1")

	out, _, err = env.run(t, "--json", "cards")
	require.NoError(t, err)
	assert.Contains(t, out, `"session_id": "session-1"`)
}

func TestSubmitRejectsBadFileLocally(t *testing.T) {
	env := newCLIEnv(t)
	tiny := filepath.Join(env.dir, "tiny.json")
	require.NoError(t, os.WriteFile(tiny, []byte(`{}`), 0o600))

	_, _, err := env.run(t, "submit", "-c", tiny, "Analyze Nairobi")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeFileTooSmall))
	assert.Zero(t, env.backend.Requests())
}

func TestSubmitRejectsTextKeyWithJSONContent(t *testing.T) {
	env := newCLIEnv(t)
	txt := filepath.Join(env.dir, "creds.txt")
	require.NoError(t, os.WriteFile(txt, testutil.CredentialsJSON(350), 0o600))

	_, _, err := env.run(t, "submit", "-c", txt, "Analyze Nairobi")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeInvalidFileType), err.Error())
	assert.Zero(t, env.backend.Requests())
}

func TestSubmitStillProcessingExitsCleanly(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.AnalyzeDelay = 2 * time.Second

	_, errOut, err := env.run(t, "--timeout", "100ms", "submit", "-c", env.keyFile, "Analyze Nairobi")
	require.NoError(t, err)
	assert.Contains(t, errOut, "may still be completing")
}

func TestOfflineHint(t *testing.T) {
	env := newCLIEnv(t)
	url := env.backend.URL()
	env.backend.Close()

	_, _, err := runCLI(t, url, env.identityFile, "health")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeOffline))

	var buf bytes.Buffer
	reportError(&buf, err)
	assert.Contains(t, buf.String(), "offline/demo mode")

	out, errOut, err := runCLI(t, url, env.identityFile, "gallery")
	require.NoError(t, err)
	assert.Contains(t, out, "No analyses yet.")
	assert.NotEmpty(t, errOut)
}

func TestIdentityCommands(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run(t, "identity", "set", "user_cli_test")
	require.NoError(t, err)
	out, _, err := env.run(t, "identity", "show")
	require.NoError(t, err)
	assert.Equal(t, "user_cli_test", strings.TrimSpace(out))

	_, _, err = env.run(t, "identity", "set", "bad id")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeValidation))

	_, _, err = env.run(t, "identity", "reset")
	require.NoError(t, err)
	out, _, err = env.run(t, "identity", "show")
	require.NoError(t, err)
	assert.NotEqual(t, "user_cli_test", strings.TrimSpace(out))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "user_"))
}

func TestResultCommands(t *testing.T) {
	env := newCLIEnv(t)
	_, _, err := env.run(t, "identity", "set", "user_results")
	require.NoError(t, err)
	env.backend.Seed("s-42", "user_results", "Analyze Kenya 2020-2021", time.Now())

	out, _, err := env.run(t, "urls", "s-42")
	require.NoError(t, err)
	assert.Contains(t, out, env.backend.URL()+"/results/s-42/map")

	out, _, err = env.run(t, "metadata", "s-42")
	require.NoError(t, err)
	assert.Contains(t, out, `"session_id": "s-42"`)

	downloads := filepath.Join(env.dir, "downloads")
	out, _, err = env.run(t, "download", "s-42", "--dir", downloads)
	require.NoError(t, err)
	assert.Contains(t, out, "ndvi_s-42_bundle.zip")
	_, err = os.Stat(filepath.Join(downloads, "ndvi_s-42_bundle.zip"))
	require.NoError(t, err)

	out, _, err = env.run(t, "export", "--dir", downloads, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "1 analyses")

	env.backend.MissPreview(1)
	out, _, err = env.run(t, "preview-wait", "s-42", "--attempts", "3", "--interval", "5ms")
	require.NoError(t, err)
	assert.Contains(t, out, "/results/s-42/preview")

	out, _, err = env.run(t, "delete", "s-42")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted s-42")
	assert.Equal(t, []string{"s-42?user_results"}, env.backend.Deletes())

	_, _, err = env.run(t, "metadata", "s-42")
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeNotFound))
}
