/*
Package report hands finished calculations to a document exporter.

PURPOSE:
  Defines the ReportExporter contract and guards it. An exporter receives a
  Document (inputs, period, party, result, branding) and returns the bytes
  of a PDF or a typed error.

CONTRACT:
  - success: bytes start with "%PDF-" and are longer than MinDocumentSize
  - failure: an error wrapping ErrExportFailed or ErrMalformedDocument
  A truncated or malformed stream is never returned as success; Checked
  enforces this around any Exporter.

IMPLEMENTATIONS:
  - pdf.go: built-in single-page PDF

USAGE:
  exporter := report.Checked(report.NewPDF())
  data, err := exporter.Export(ctx, report.Document{...})

SEE ALSO:
  - api/handlers.go: export endpoints
*/
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/workx/transition-engine/severance"
)

// MinDocumentSize is the floor below which a "PDF" is treated as truncated.
const MinDocumentSize = 256

// PDFMagic is the marker every exported document starts with.
var PDFMagic = []byte("%PDF-")

var (
	// ErrExportFailed is returned when the exporter could not produce a document.
	ErrExportFailed = errors.New("export failed")

	// ErrMalformedDocument is returned when an exporter returned bytes that
	// violate the document contract.
	ErrMalformedDocument = errors.New("exporter returned a malformed document")
)

// Branding is the firm metadata printed on every document.
type Branding struct {
	FirmName string
	Footer   string
}

// Document is everything an exporter needs. ID and timestamps are empty for
// unsaved evaluations.
type Document struct {
	ID        string
	Party     severance.Party
	Period    severance.EmploymentPeriod
	Inputs    severance.CompensationInputs
	Result    severance.Result
	Branding  Branding
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromSaved builds a Document from a stored calculation.
func FromSaved(c severance.SavedCalculation, b Branding) Document {
	return Document{
		ID:        c.ID,
		Party:     c.Party,
		Period:    c.Period,
		Inputs:    c.Inputs,
		Result:    c.Result,
		Branding:  b,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Exporter turns a Document into a byte stream.
type Exporter interface {
	Export(ctx context.Context, doc Document) ([]byte, error)
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, doc Document) ([]byte, error)

func (f ExporterFunc) Export(ctx context.Context, doc Document) ([]byte, error) { return f(ctx, doc) }

// Checked wraps next so that every success satisfies the document contract.
func Checked(next Exporter) Exporter {
	return ExporterFunc(func(ctx context.Context, doc Document) ([]byte, error) {
		data, err := next.Export(ctx, doc)
		if err != nil {
			if errors.Is(err, ErrExportFailed) || errors.Is(err, ErrMalformedDocument) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
		}
		if err := Verify(data); err != nil {
			return nil, err
		}
		return data, nil
	})
}

// Verify checks the magic marker and the size floor.
func Verify(data []byte) error {
	if !bytes.HasPrefix(data, PDFMagic) {
		return fmt.Errorf("%w: missing %q marker", ErrMalformedDocument, PDFMagic)
	}
	if len(data) <= MinDocumentSize {
		return fmt.Errorf("%w: %d bytes", ErrMalformedDocument, len(data))
	}
	return nil
}
