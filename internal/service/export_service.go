package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/export"
)

type cardLister interface {
	Cards(ctx context.Context, limit, offset int) (*models.CardPage, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Limit     int
	ResultTTL time.Duration
}

// ExportFile is a rendered gallery export.
type ExportFile struct {
	Filename    string        `json:"filename"`
	Format      export.Format `json:"format"`
	ContentType string        `json:"content_type"`
	Rows        int           `json:"rows"`
	Notice      string        `json:"notice,omitempty"`
	Path        string        `json:"path,omitempty"`
	Data        []byte        `json:"-"`
}

var exportHeaders = []string{"Session ID", "Title", "Location", "Years", "Created", "Category", "Tags", "Download URL"}

// ExportService renders a user's gallery as CSV or PDF.
type ExportService struct {
	gallery cardLister
	storage exportStorage
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService. storage is only needed by
// Save.
func NewExportService(gallery cardLister, storage exportStorage, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 200
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		gallery: gallery,
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Render builds the export in memory.
func (s *ExportService) Render(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	page, err := s.gallery.Cards(ctx, s.cfg.Limit, 0)
	if err != nil {
		return nil, err
	}

	dataset := buildDataset(page.Cards)
	var payload []byte
	switch format {
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("NDVI analyses of %s", page.UserID))
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("failed to render gallery export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("ndvi_gallery_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		Format:      format,
		ContentType: format.ContentType(),
		Rows:        len(page.Cards),
		Notice:      page.Notice,
		Data:        payload,
	}, nil
}

// Save renders the export and writes it into storage.
func (s *ExportService) Save(ctx context.Context, rawFormat string) (*ExportFile, error) {
	if s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no export directory configured")
	}
	file, err := s.Render(ctx, rawFormat)
	if err != nil {
		return nil, err
	}
	name, err := s.storage.Save(file.Filename, file.Data)
	if err != nil {
		s.logger.Error("failed to store gallery export", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to store export")
	}
	file.Filename = name
	file.Path = s.storage.Path(name)
	return file, nil
}

// Cleanup removes stored exports older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func buildDataset(cards []models.AnalysisCard) export.Dataset {
	rows := make([]map[string]string, 0, len(cards))
	for _, card := range cards {
		rows = append(rows, map[string]string{
			"Session ID":   card.SessionID,
			"Title":        card.Title,
			"Location":     card.LocationName,
			"Years":        strconv.Itoa(card.StartYear) + "-" + strconv.Itoa(card.EndYear),
			"Created":      card.CreatedAt,
			"Category":     string(card.Category),
			"Tags":         strings.Join(card.Tags, " "),
			"Download URL": card.DownloadURL,
		})
	}
	return export.Dataset{
		Headers: exportHeaders,
		Widths:  []float64{1.4, 2.4, 1.2, 0.8, 1.4, 1.2, 2, 2.6},
		Rows:    rows,
	}
}
