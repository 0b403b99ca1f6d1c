// Package lead handles lead file uploads.
package lead

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/infrastructure/leadimport"
	"github.com/leadflow/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Errors
var (
	ErrUnsupportedFileType = shared.NewDomainError("UNSUPPORTED_FILE_TYPE", "Only .csv lead files are supported")
	ErrInvalidLeadFile     = shared.NewDomainError("INVALID_LEAD_FILE", "Lead file could not be read")
	ErrEmptyUpload         = shared.NewDomainError("EMPTY_FILE", "Uploaded file is empty")
	ErrFileStorageFailed   = shared.NewDomainError("FILE_STORAGE_UNAVAILABLE", "Lead file could not be stored")
)

// ObjectStorage keeps raw uploads
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
}

// RejectedFileError is returned for a file whose rows were all rejected.
// It matches ErrInvalidLeadFile with errors.Is.
type RejectedFileError struct {
	TotalRows    int                   `json:"totalRows"`
	InvalidCount int                   `json:"invalidCount"`
	Errors       []leadimport.RowError `json:"errors"`
}

func (e *RejectedFileError) Error() string {
	return fmt.Sprintf("lead file has no valid lead: %d of %d rows rejected", e.InvalidCount, e.TotalRows)
}

func (e *RejectedFileError) Unwrap() error {
	return ErrInvalidLeadFile
}

// UploadResult is returned to the uploader
type UploadResult struct {
	ProcessedCount int                   `json:"processedCount"`
	StorageKey     string                `json:"storageKey"`
	TotalRows      int                   `json:"totalRows"`
	InvalidCount   int                   `json:"invalidCount"`
	Errors         []leadimport.RowError `json:"errors,omitempty"`
	Leads          []map[string]string   `json:"leads"`
}

// UploadService validates lead files and archives them in object storage
type UploadService struct {
	storage ObjectStorage
	parser  *leadimport.LeadParser
	logger  *zap.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(storage ObjectStorage, parser *leadimport.LeadParser, logger *zap.Logger) *UploadService {
	if parser == nil {
		parser = leadimport.NewLeadParser()
	}
	return &UploadService{storage: storage, parser: parser, logger: logger}
}

// Upload parses a CSV lead file and stores the original bytes under
// leads/<userID>/<uuid>.csv. Nothing is stored when the file is rejected.
func (s *UploadService) Upload(ctx context.Context, userID, filename string, data []byte) (*UploadResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrUnauthorized
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".csv" {
		return nil, ErrUnsupportedFileType.WithMessage("unsupported file type " + quoteExt(ext) + ", upload a .csv file")
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	parsed, err := s.parser.Parse(data)
	if err != nil {
		return nil, classifyParseError(parsed, err)
	}

	key := StorageKey(userID, uuid.New())
	if err := s.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		logger.L(ctx).Error("Failed to store lead file",
			zap.String("storage_key", key),
			zap.Error(err),
		)
		return nil, ErrFileStorageFailed.Wrap(err)
	}

	leads := make([]map[string]string, len(parsed.Leads))
	for i, l := range parsed.Leads {
		leads[i] = l.Fields
	}

	logger.L(ctx).Info("Lead file uploaded",
		zap.String("storage_key", key),
		zap.Int("leads", len(parsed.Leads)),
		zap.Int("invalid_rows", parsed.TotalErrors),
	)
	return &UploadResult{
		ProcessedCount: len(parsed.Leads),
		StorageKey:     key,
		TotalRows:      parsed.TotalRows,
		InvalidCount:   parsed.TotalErrors,
		Errors:         parsed.Errors,
		Leads:          leads,
	}, nil
}

// StorageKey builds the object key for a user's upload
func StorageKey(userID string, id uuid.UUID) string {
	return "leads/" + userID + "/" + id.String() + ".csv"
}

// classifyParseError maps parser failures to upload errors. A partial result
// means rows existed but none was a valid lead.
func classifyParseError(partial *leadimport.Result, err error) error {
	if errors.Is(err, leadimport.ErrEmptyFile) {
		return ErrEmptyUpload
	}
	if partial != nil && errors.Is(err, leadimport.ErrNoDataRows) {
		return &RejectedFileError{
			TotalRows:    partial.TotalRows,
			InvalidCount: partial.TotalErrors,
			Errors:       partial.Errors,
		}
	}

	var missing *leadimport.MissingColumnsError
	switch {
	case errors.As(err, &missing),
		errors.Is(err, leadimport.ErrNoDataRows),
		errors.Is(err, leadimport.ErrTooManyRows),
		errors.Is(err, leadimport.ErrMissingHeader),
		errors.Is(err, leadimport.ErrInvalidEncoding):
		return ErrInvalidLeadFile.WithMessage(err.Error())
	default:
		return ErrInvalidLeadFile.Wrap(err)
	}
}

func quoteExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
