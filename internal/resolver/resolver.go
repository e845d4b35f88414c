// Package resolver derives backend result URLs from a session id without a
// network round trip.
package resolver

import (
	"fmt"
	"strings"

	"github.com/noah-isme/ndvi-gateway/internal/models"
)

// Kind names one derived resource of a session.
type Kind string

const (
	KindPreview  Kind = "preview"
	KindMap      Kind = "map"
	KindChart    Kind = "chart"
	KindDownload Kind = "download"
	KindMetadata Kind = "metadata"
)

// Kinds lists every derived resource in a stable order.
var Kinds = []Kind{KindPreview, KindMap, KindChart, KindDownload, KindMetadata}

// Resolver builds URLs against a backend origin.
type Resolver struct {
	base string
}

// New returns a Resolver for base; trailing slashes are dropped.
func New(base string) Resolver {
	return Resolver{base: strings.TrimRight(base, "/")}
}

// Base returns the normalised backend origin.
func (r Resolver) Base() string { return r.base }

// SessionURL is the resource itself, used for DELETE.
func (r Resolver) SessionURL(sessionID string) string {
	return r.base + "/results/" + sessionID
}

// URL returns the URL of one derived resource.
func (r Resolver) URL(sessionID string, kind Kind) string {
	return r.SessionURL(sessionID) + "/" + string(kind)
}

func (r Resolver) PreviewURL(sessionID string) string  { return r.URL(sessionID, KindPreview) }
func (r Resolver) MapURL(sessionID string) string      { return r.URL(sessionID, KindMap) }
func (r Resolver) ChartURL(sessionID string) string    { return r.URL(sessionID, KindChart) }
func (r Resolver) DownloadURL(sessionID string) string { return r.URL(sessionID, KindDownload) }
func (r Resolver) MetadataURL(sessionID string) string { return r.URL(sessionID, KindMetadata) }

// GalleryURL is the listing endpoint of a user's sessions.
func (r Resolver) GalleryURL(userID string) string {
	return r.base + "/gallery/" + userID
}

// Files derives the full SessionFiles record.
func (r Resolver) Files(sessionID string) models.SessionFiles {
	return models.SessionFiles{
		PreviewURL:  r.PreviewURL(sessionID),
		MapURL:      r.MapURL(sessionID),
		ChartURL:    r.ChartURL(sessionID),
		DownloadURL: r.DownloadURL(sessionID),
		MetadataURL: r.MetadataURL(sessionID),
	}
}

// Complete returns files with every empty field replaced by its derived URL.
// Fields the backend did supply are kept as is.
func (r Resolver) Complete(sessionID string, files models.SessionFiles) models.SessionFiles {
	derived := r.Files(sessionID)
	fill := func(got *string, want string) {
		if *got == "" {
			*got = want
		}
	}
	fill(&files.PreviewURL, derived.PreviewURL)
	fill(&files.MapURL, derived.MapURL)
	fill(&files.ChartURL, derived.ChartURL)
	fill(&files.DownloadURL, derived.DownloadURL)
	fill(&files.MetadataURL, derived.MetadataURL)
	return files
}

// Verify compares backend supplied URLs with the derived ones. Empty backend
// fields are skipped. The result lists one message per mismatch.
func (r Resolver) Verify(sessionID string, files models.SessionFiles) []string {
	derived := r.Files(sessionID)
	pairs := []struct {
		kind      Kind
		got, want string
	}{
		{KindPreview, files.PreviewURL, derived.PreviewURL},
		{KindMap, files.MapURL, derived.MapURL},
		{KindChart, files.ChartURL, derived.ChartURL},
		{KindDownload, files.DownloadURL, derived.DownloadURL},
		{KindMetadata, files.MetadataURL, derived.MetadataURL},
	}
	var mismatches []string
	for _, p := range pairs {
		if p.got != "" && p.got != p.want {
			mismatches = append(mismatches, fmt.Sprintf("%s: backend %q, derived %q", p.kind, p.got, p.want))
		}
	}
	return mismatches
}
