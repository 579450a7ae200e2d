package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edulink/admin-api/internal/models"
	appErrors "github.com/edulink/admin-api/pkg/errors"
	"github.com/edulink/admin-api/pkg/export"
)

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type guestBookingLister interface {
	List(ctx context.Context, filter models.GuestBookingFilter) ([]models.GuestBooking, int, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

// Supported export formats.
const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportService renders operator-facing reports as CSV or PDF.
type ExportService struct {
	enrollments enrollmentLister
	guests      guestBookingLister
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(enrollments enrollmentLister, guests guestBookingLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		guests:      guests,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Enrollments renders the enrollment queue in the requested format. Returns
// the payload and its content type.
func (s *ExportService) Enrollments(ctx context.Context, filter models.EnrollmentFilter, format ExportFormat) ([]byte, string, error) {
	filter.PageSize = 100
	rows, _, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Student", "Course", "Status", "Requested", "Decided"},
	}
	for _, e := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"ID":        e.ID,
			"Student":   e.StudentName,
			"Course":    e.CourseTitle,
			"Status":    string(e.Status),
			"Requested": e.RequestedAt.Format(time.RFC3339),
			"Decided":   formatTimePtr(e.DecidedAt),
		})
	}
	return s.render(data, "Enrollments", format)
}

// GuestBookings renders guest bookings in the requested format.
func (s *ExportService) GuestBookings(ctx context.Context, filter models.GuestBookingFilter, format ExportFormat) ([]byte, string, error) {
	filter.PageSize = 100
	rows, _, err := s.guests.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guest bookings")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Guest", "Email", "Topic", "Status", "Payment", "Amount"},
	}
	for _, b := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"ID":      b.ID,
			"Guest":   b.GuestName,
			"Email":   b.GuestEmail,
			"Topic":   b.Topic,
			"Status":  string(b.Status),
			"Payment": string(b.Payment),
			"Amount":  strconv.FormatInt(b.AmountCents, 10),
		})
	}
	return s.render(data, "Guest Bookings", format)
}

func (s *ExportService) render(data export.Dataset, title string, format ExportFormat) ([]byte, string, error) {
	switch format {
	case FormatCSV, "":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case FormatPDF:
		payload, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
