package validation

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const (
	// MinCredentialsSize rejects files too small to hold a service account key.
	MinCredentialsSize int64 = 100
	// MaxCredentialsSize is the upload ceiling, 10 MiB.
	MaxCredentialsSize int64 = 10 * 1024 * 1024

	jsonMIME = "application/json"
)

// ValidateCredentialsFile applies the local pre-flight rules for a
// credentials upload: JSON by declared type or by extension, and a size
// between MinCredentialsSize and MaxCredentialsSize inclusive.
func ValidateCredentialsFile(file *models.CredentialsFile) error {
	if file == nil {
		return appErrors.Clone(appErrors.ErrValidation, "a credentials file is required")
	}
	if !isJSONType(file.ContentType) && !strings.HasSuffix(strings.ToLower(file.Name), ".json") {
		return appErrors.Clone(appErrors.ErrInvalidFileType, fmt.Sprintf("%q is not a JSON file; upload the service account key ending in .json", file.Name))
	}
	if file.Size < MinCredentialsSize {
		return appErrors.Clone(appErrors.ErrFileTooSmall, fmt.Sprintf("credentials file is %d bytes; at least %d bytes are expected", file.Size, MinCredentialsSize))
	}
	if file.Size > MaxCredentialsSize {
		return appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("credentials file is %d bytes; the limit is 10 MB", file.Size))
	}
	return nil
}

func isJSONType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, jsonMIME)
}

// OpenCredentialsFile opens a key file from disk. The declared type is the
// one a browser would send for the file name, so only the extension counts
// towards validation. The sniffed content type is kept in DetectedType. The
// caller owns the returned closer.
func OpenCredentialsFile(path string) (*models.CredentialsFile, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.CodeValidation, appErrors.ErrValidation.Status, fmt.Sprintf("cannot open credentials file %s", path))
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, appErrors.Wrap(err, appErrors.CodeValidation, appErrors.ErrValidation.Status, fmt.Sprintf("cannot stat credentials file %s", path))
	}
	detected := ""
	if info.Size() > 0 {
		if mt, detectErr := mimetype.DetectReader(f); detectErr == nil {
			detected = mt.String()
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, nil, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "cannot rewind credentials file")
		}
	}
	return &models.CredentialsFile{
		Name:         filepath.Base(path),
		ContentType:  mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		DetectedType: detected,
		Size:         info.Size(),
		Content:      f,
	}, f, nil
}

// LooksLikeJSON reports whether the sniffed content of file is JSON. Files
// that were never sniffed count as JSON.
func LooksLikeJSON(file *models.CredentialsFile) bool {
	if file == nil || file.DetectedType == "" {
		return true
	}
	return isJSONType(file.DetectedType)
}
