package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/models"
)

func TestDerivedURLs(t *testing.T) {
	r := New("http://localhost:8000/")
	require.Equal(t, "http://localhost:8000/results/abc123/preview", r.PreviewURL("abc123"))
	require.Equal(t, "http://localhost:8000/results/abc123/map", r.MapURL("abc123"))
	require.Equal(t, "http://localhost:8000/results/abc123/chart", r.ChartURL("abc123"))
	require.Equal(t, "http://localhost:8000/results/abc123/download", r.DownloadURL("abc123"))
	require.Equal(t, "http://localhost:8000/results/abc123/metadata", r.MetadataURL("abc123"))
	require.Equal(t, "http://localhost:8000/gallery/user_abc", r.GalleryURL("user_abc"))
}

func TestURLsArePureAndDifferOnlyInSuffix(t *testing.T) {
	r := New("https://api.example.com")
	for _, id := range []string{"abc123", "a-b_c.d", "", "550e8400-e29b-41d4-a716-446655440000"} {
		require.Equal(t, r.Files(id), r.Files(id))
		prefix := r.SessionURL(id) + "/"
		seen := map[string]bool{}
		for _, kind := range Kinds {
			u := r.URL(id, kind)
			require.True(t, strings.HasPrefix(u, prefix))
			require.Equal(t, string(kind), strings.TrimPrefix(u, prefix))
			seen[u] = true
		}
		require.Len(t, seen, 5)
	}
}

func TestComplete(t *testing.T) {
	r := New("http://localhost:8000")
	require.Equal(t, r.Files("abc"), r.Complete("abc", models.SessionFiles{}))

	partial := models.SessionFiles{MapURL: "http://cdn.example/abc/map"}
	got := r.Complete("abc", partial)
	require.Equal(t, "http://cdn.example/abc/map", got.MapURL)
	require.Equal(t, r.PreviewURL("abc"), got.PreviewURL)
	require.Equal(t, r.MetadataURL("abc"), got.MetadataURL)
}

func TestVerify(t *testing.T) {
	r := New("http://localhost:8000")
	require.Empty(t, r.Verify("abc", r.Files("abc")))
	require.Empty(t, r.Verify("abc", models.SessionFiles{}))

	files := r.Files("abc")
	files.MapURL = "http://elsewhere/results/abc/map"
	mismatches := r.Verify("abc", files)
	require.Len(t, mismatches, 1)
	require.Contains(t, mismatches[0], "map")
}
