// Package cards derives display cards from backend sessions and gallery items.
package cards

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/noah-isme/ndvi-gateway/internal/models"
)

const (
	maxTitleRunes       = 60
	maxDescriptionRunes = 150
	maxTags             = 8

	// RecentWindow is how long after creation a card counts as recently
	// published.
	RecentWindow = 30 * 24 * time.Hour
)

var stopTokens = map[string]struct{}{
	"ndvi": {}, "analysis": {}, "in": {}, "of": {}, "the": {},
	"and": {}, "for": {}, "from": {}, "to": {}, "with": {},
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FromSession builds the card shown right after a submission completes.
func FromSession(s models.SessionAnalysis, now time.Time) models.AnalysisCard {
	loc := s.Analysis.Location.Name
	start, end := s.Analysis.StartYear, s.Analysis.EndYear
	return models.AnalysisCard{
		SessionID:    s.SessionID,
		Title:        defaultTitle(loc, start, end),
		Description:  defaultDescription(loc, start, end),
		Tags:         Tags(loc, start, end, ""),
		Category:     Category(s.CreatedAt, now),
		LocationName: loc,
		StartYear:    start,
		EndYear:      end,
		CreatedAt:    s.CreatedAt,
		ThumbnailURL: s.Files.PreviewURL,
		MapURL:       s.Files.MapURL,
		ChartURL:     s.Files.ChartURL,
		DownloadURL:  s.Files.DownloadURL,
	}
}

// FromGalleryItem builds the card for one gallery entry. The user's own
// query is preferred as title and description.
func FromGalleryItem(item models.GalleryItem, now time.Time) models.AnalysisCard {
	loc := item.LocationName
	start, end := item.StartYear, item.EndYear
	query := strings.TrimSpace(item.Query)

	title := defaultTitle(loc, start, end)
	description := defaultDescription(loc, start, end)
	if query != "" {
		title = truncate(query, maxTitleRunes)
		description = truncate(query, maxDescriptionRunes)
	}

	return models.AnalysisCard{
		SessionID:    item.SessionID,
		Title:        title,
		Description:  description,
		Tags:         Tags(loc, start, end, query),
		Category:     Category(item.CreatedAt, now),
		LocationName: loc,
		Query:        query,
		StartYear:    start,
		EndYear:      end,
		CreatedAt:    item.CreatedAt,
		ThumbnailURL: item.ThumbnailURL,
		MapURL:       item.MapURL,
		ChartURL:     item.ChartURL,
		DownloadURL:  item.DownloadURL,
	}
}

func defaultTitle(location string, start, end int) string {
	return fmt.Sprintf("%s NDVI Analysis (%d-%d)", location, start, end)
}

func defaultDescription(location string, start, end int) string {
	return fmt.Sprintf("NDVI vegetation analysis for %s from %d to %d.", location, start, end)
}

// truncate cuts s to at most max runes, replacing the tail with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// Tags returns the fixed tags followed by keywords of location and query,
// de-duplicated in order and capped at eight.
func Tags(location string, start, end int, query string) []string {
	seen := make(map[string]struct{}, maxTags)
	tags := make([]string, 0, maxTags)
	add := func(tag string) {
		if tag == "" || len(tags) >= maxTags {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add("ndvi")
	add("vegetation")
	add(strings.ToLower(strings.TrimSpace(location)))
	add(fmt.Sprintf("%d-%d", start, end))
	for _, tok := range keywords(location + " " + query) {
		add(tok)
	}
	return tags
}

func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopTokens[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Category buckets a card by age. Timestamps that cannot be parsed land in
// user_analyses.
func Category(createdAt string, now time.Time) models.CardCategory {
	ts, ok := ParseTimestamp(createdAt)
	if !ok {
		return models.CategoryUserAnalyses
	}
	if now.Sub(ts) <= RecentWindow {
		return models.CategoryRecentlyPublished
	}
	return models.CategoryUserAnalyses
}

// ParseTimestamp accepts RFC 3339 and the naive ISO forms the backend emits.
// Naive timestamps are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
