// Package export renders content items to PDF or HTML and archives the output.
package export

import (
	"errors"
)

// Format represents the export output format
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Request contains parameters for an export operation
type Request struct {
	ContentID              string
	Format                 Format
	IncludeRecommendations bool
	// Archive uploads the result to object storage and attaches a
	// presigned download link.
	Archive bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string

	// Set when the export was archived to object storage.
	ObjectKey   string
	DownloadURL string
}

var (
	// ErrContentUnavailable indicates the content item could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
