package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/workflow"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

// ErrVersionConflict is returned by compare-and-swap updates when the stored
// version no longer matches what the caller read. Operators see it as a
// finalized-by-someone-else condition.
var ErrVersionConflict = appErrors.Clone(appErrors.ErrAlreadyFinalized, "entity was modified concurrently")

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"requested_at": "e.requested_at",
		"student_name": "u.full_name",
		"course_title": "c.title",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "requested_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.requested_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.status, e.requested_at, e.decided_at, e.rejection_reason, e.version,
        u.full_name AS student_name, u.email AS student_email, c.title AS course_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, status, requested_at, decided_at, rejection_reason, version FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create persists a new enrollment record in the pending state.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.RequestedAt.IsZero() {
		enrollment.RequestedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = workflow.StatusPending
	}
	if enrollment.Version == 0 {
		enrollment.Version = 1
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, status, requested_at, decided_at, rejection_reason, version)
        VALUES (:id, :student_id, :course_id, :status, :requested_at, :decided_at, :rejection_reason, :version)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateFromSnapshot persists an engine decision with a compare-and-swap on
// the version the caller read. Zero rows affected means another session won
// the race; the snapshot's version is bumped on success.
func (r *EnrollmentRepository) UpdateFromSnapshot(ctx context.Context, snap workflow.Snapshot, expectedVersion int) (int, error) {
	const query = `UPDATE enrollments SET status = $2, decided_at = $3, rejection_reason = $4, version = version + 1
        WHERE id = $1 AND version = $5`
	res, err := r.db.ExecContext(ctx, query, snap.ID, snap.Status, snap.DecidedAt, snap.RejectionReason, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("update enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update enrollment rows: %w", err)
	}
	if affected == 0 {
		return 0, ErrVersionConflict
	}
	return expectedVersion + 1, nil
}
