// Package testutil provides an in-process stand-in for the NDVI backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/resolver"
)

// Submission records what the fake backend received on POST /analyze.
type Submission struct {
	Query        string
	UserID       string
	DownloadData string
	Filename     string
	FileType     string
	FileBody     []byte
	RequestID    string
}

// FakeBackend serves the backend endpoints from memory.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	sessions    map[string]models.SessionAnalysis
	queries     map[string]string
	order       []string
	submissions []Submission
	deletes     []string
	previewMiss int

	// Location returned for every analysis.
	Location models.Location
	// AnalyzeDelay slows POST /analyze down.
	AnalyzeDelay time.Duration
	// AnalyzeStatus, when non-zero, makes POST /analyze fail with this status.
	AnalyzeStatus int
	// AnalyzeBody overrides the error or success body of POST /analyze.
	AnalyzeBody string
	// GalleryBody overrides the body of GET /gallery.
	GalleryBody string
	// GalleryDelay slows GET /gallery down.
	GalleryDelay time.Duration

	requests    atomic.Int64
	galleryHits atomic.Int64
	counter     atomic.Int64
}

// NewFakeBackend starts a fake backend; callers must Close it.
func NewFakeBackend() *FakeBackend {
	f := &FakeBackend{
		sessions: make(map[string]models.SessionAnalysis),
		queries:  make(map[string]string),
		Location: models.Location{
			Name:      "Zurich",
			Latitude:  models.Range{Min: 47.3, Max: 47.4},
			Longitude: models.Range{Min: 8.5, Max: 8.6},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", f.health)
	mux.HandleFunc("/analyze", f.analyze)
	mux.HandleFunc("/gallery/", f.gallery)
	mux.HandleFunc("/results/", f.results)
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	return f
}

// URL is the backend origin.
func (f *FakeBackend) URL() string { return f.Server.URL }

// Close stops the server.
func (f *FakeBackend) Close() { f.Server.Close() }

// Requests counts every request received.
func (f *FakeBackend) Requests() int64 { return f.requests.Load() }

// GalleryHits counts GET /gallery requests.
func (f *FakeBackend) GalleryHits() int64 { return f.galleryHits.Load() }

// Submissions returns the recorded analyze calls.
func (f *FakeBackend) Submissions() []Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Submission(nil), f.submissions...)
}

// Deletes returns "session_id?user_id" pairs of DELETE calls.
func (f *FakeBackend) Deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

// MissPreview makes the next n preview requests answer 404.
func (f *FakeBackend) MissPreview(n int) {
	f.mu.Lock()
	f.previewMiss = n
	f.mu.Unlock()
}

// Seed stores a session as if it had been analysed at createdAt.
func (f *FakeBackend) Seed(sessionID, userID, query string, createdAt time.Time) models.SessionAnalysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := f.newSession(sessionID, userID, createdAt)
	f.sessions[sessionID] = session
	f.queries[sessionID] = query
	f.order = append(f.order, sessionID)
	return session
}

func (f *FakeBackend) newSession(sessionID, userID string, createdAt time.Time) models.SessionAnalysis {
	return models.SessionAnalysis{
		SessionID: sessionID,
		UserID:    userID,
		Analysis: models.AnalysisInfo{
			Location:  f.Location,
			StartYear: 2020,
			EndYear:   2024,
		},
		Files:     resolver.New(f.Server.URL).Files(sessionID),
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		Status:    models.StatusCompleted,
	}
}

func (f *FakeBackend) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                   "healthy",
		"analyzer_initialized":     true,
		"gemini_model_initialized": true,
		"project_id":               "demo-project",
	})
}

func (f *FakeBackend) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	sub := Submission{
		Query:        r.FormValue("query"),
		UserID:       r.FormValue("user_id"),
		DownloadData: r.FormValue("download_data"),
		RequestID:    r.Header.Get("X-Request-ID"),
	}
	if file, header, err := r.FormFile("credentials_file"); err == nil {
		sub.Filename = header.Filename
		sub.FileType = header.Header.Get("Content-Type")
		sub.FileBody, _ = io.ReadAll(file)
		_ = file.Close()
	}

	f.mu.Lock()
	f.submissions = append(f.submissions, sub)
	delay, status, body := f.AnalyzeDelay, f.AnalyzeStatus, f.AnalyzeBody
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
		return
	}
	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
		return
	}

	id := fmt.Sprintf("session-%d", f.counter.Add(1))
	f.mu.Lock()
	session := f.newSession(id, sub.UserID, time.Now())
	f.sessions[id] = session
	f.queries[id] = sub.Query
	f.order = append(f.order, id)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, session)
}

func (f *FakeBackend) gallery(w http.ResponseWriter, r *http.Request) {
	f.galleryHits.Add(1)
	if f.GalleryDelay > 0 {
		time.Sleep(f.GalleryDelay)
	}
	if f.GalleryBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, f.GalleryBody)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/gallery/")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	f.mu.Lock()
	items := make([]models.GalleryItem, 0)
	for i := len(f.order) - 1; i >= 0; i-- {
		s := f.sessions[f.order[i]]
		if s.UserID != userID {
			continue
		}
		items = append(items, models.GalleryItem{
			SessionID:    s.SessionID,
			LocationName: s.Analysis.Location.Name,
			Query:        f.queries[s.SessionID],
			StartYear:    s.Analysis.StartYear,
			EndYear:      s.Analysis.EndYear,
			CreatedAt:    s.CreatedAt,
			ThumbnailURL: s.Files.PreviewURL,
			MapURL:       s.Files.MapURL,
			ChartURL:     s.Files.ChartURL,
			DownloadURL:  s.Files.DownloadURL,
		})
	}
	f.mu.Unlock()

	if offset >= len(items) {
		items = items[:0]
	} else {
		items = items[offset:]
	}
	if len(items) > limit {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, items)
}

func (f *FakeBackend) results(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/results/"), "/")
	id := parts[0]
	f.mu.Lock()
	session, ok := f.sessions[id]
	f.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID := r.URL.Query().Get("user_id")
		if userID != session.UserID {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Not authorized to delete this analysis"})
			return
		}
		f.mu.Lock()
		delete(f.sessions, id)
		f.deletes = append(f.deletes, id+"?"+userID)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
		return
	}

	switch parts[1] {
	case "preview":
		f.mu.Lock()
		miss := f.previewMiss > 0
		if miss {
			f.previewMiss--
		}
		f.mu.Unlock()
		if miss {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Preview not ready"})
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	case "chart":
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n"))
	case "map":
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html></html>")
	case "download":
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="ndvi_`+id+`_bundle.zip"`)
		_, _ = io.WriteString(w, "PK\x03\x04fake")
	case "metadata":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": id,
			"location":   session.Analysis.Location.Name,
			"start_year": session.Analysis.StartYear,
			"end_year":   session.Analysis.EndYear,
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// CredentialsJSON returns a syntactically valid service account key of at
// least size bytes.
func CredentialsJSON(size int) []byte {
	head := `{"type":"service_account","project_id":"demo","private_key":"`
	tail := `"}`
	pad := size - len(head) - len(tail)
	if pad < 0 {
		pad = 0
	}
	return []byte(head + strings.Repeat("k", pad) + tail)
}
