package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

func TestValidateCredentialsFile(t *testing.T) {
	cases := []struct {
		name string
		file *models.CredentialsFile
		code string
	}{
		{"txt rejected regardless of size", &models.CredentialsFile{Name: "creds.txt", Size: 1024}, appErrors.CodeInvalidFileType},
		{"json 1KB accepted", &models.CredentialsFile{Name: "creds.json", Size: 1024}, ""},
		{"json 11MiB rejected", &models.CredentialsFile{Name: "creds.json", Size: 11 * 1024 * 1024}, appErrors.CodeFileTooLarge},
		{"json 50B rejected", &models.CredentialsFile{Name: "creds.json", Size: 50}, appErrors.CodeFileTooSmall},
		{"declared type accepted", &models.CredentialsFile{Name: "key", ContentType: "application/json; charset=utf-8", Size: 500}, ""},
		{"uppercase extension accepted", &models.CredentialsFile{Name: "KEY.JSON", Size: 500}, ""},
		{"lower bound inclusive", &models.CredentialsFile{Name: "creds.json", Size: 100}, ""},
		{"upper bound inclusive", &models.CredentialsFile{Name: "creds.json", Size: 10 * 1024 * 1024}, ""},
		{"missing file", nil, appErrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCredentialsFile(tc.file)
			if tc.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, appErrors.IsCode(err, tc.code), err.Error())
		})
	}
}

func TestOpenCredentialsFileUsesExtension(t *testing.T) {
	dir := t.TempDir()
	body := `{"type":"service_account","project_id":"demo","private_key":"` + strings.Repeat("k", 300) + `"}`

	open := func(name, content string) *models.CredentialsFile {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		file, closer, err := OpenCredentialsFile(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = closer.Close() })
		return file
	}

	key := open("service-account.json", body)
	require.Equal(t, "service-account.json", key.Name)
	require.Equal(t, int64(len(body)), key.Size)
	require.True(t, LooksLikeJSON(key))
	require.NoError(t, ValidateCredentialsFile(key))

	txt := open("creds.txt", body)
	require.True(t, LooksLikeJSON(txt))
	require.True(t, appErrors.IsCode(ValidateCredentialsFile(txt), appErrors.CodeInvalidFileType))

	bare := open("service-account", body)
	require.True(t, appErrors.IsCode(ValidateCredentialsFile(bare), appErrors.CodeInvalidFileType))

	notJSON := open("notes.json", strings.Repeat("plain text line\n", 20))
	require.NoError(t, ValidateCredentialsFile(notJSON))
	require.False(t, LooksLikeJSON(notJSON))
}

func TestValidateStructSession(t *testing.T) {
	valid := models.SessionAnalysis{
		SessionID: "abc123",
		Analysis: models.AnalysisInfo{
			Location:  models.Location{Name: "Zurich", Latitude: models.Range{Min: 47.3, Max: 47.4}, Longitude: models.Range{Min: 8.5, Max: 8.6}},
			StartYear: 2020,
			EndYear:   2024,
		},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	require.NoError(t, ValidateStruct(valid))

	missing := valid
	missing.SessionID = ""
	require.ErrorContains(t, ValidateStruct(missing), "session_id")

	reversed := valid
	reversed.Analysis.EndYear = 2019
	require.Error(t, ValidateStruct(reversed))

	offGlobe := valid
	offGlobe.Analysis.Location.Latitude = models.Range{Min: 80, Max: 95}
	require.Error(t, ValidateStruct(offGlobe))
}

func TestValidateUserID(t *testing.T) {
	require.NoError(t, ValidateUserID("user_k3j9x0a1b_1700000000000"))
	require.Error(t, ValidateUserID(""))
	require.Error(t, ValidateUserID(" user_a"))
	require.Error(t, ValidateUserID("user a"))
	require.Error(t, ValidateUserID("user;a"))
}
