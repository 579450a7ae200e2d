package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edulink/admin-api/internal/models"
)

// CourseRepository handles persistence of catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses"
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.SeriesName != "" {
		conditions = append(conditions, fmt.Sprintf("series_name = $%d", len(args)+1))
		args = append(args, filter.SeriesName)
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT id, title, description, instructor_id, series_name, part_number, price_cents, published, created_at, updated_at
        %s ORDER BY created_at ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, description, instructor_id, series_name, part_number, price_cents, published, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListBySeries returns the members of a named series in creation order.
// Creation order matters: it is the tie-breaker when two members share a
// part number.
func (r *CourseRepository) ListBySeries(ctx context.Context, seriesName string) ([]models.Course, error) {
	const query = `SELECT id, title, description, instructor_id, series_name, part_number, price_cents, published, created_at, updated_at
        FROM courses WHERE series_name = $1 ORDER BY created_at ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, seriesName); err != nil {
		return nil, fmt.Errorf("list series members: %w", err)
	}
	return courses, nil
}

// ListAllOrdered returns every course in creation order, for grouping.
func (r *CourseRepository) ListAllOrdered(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, title, description, instructor_id, series_name, part_number, price_cents, published, created_at, updated_at
        FROM courses ORDER BY created_at ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses ordered: %w", err)
	}
	return courses, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, description, instructor_id, series_name, part_number, price_cents, published, created_at, updated_at)
        VALUES (:id, :title, :description, :instructor_id, :series_name, :part_number, :price_cents, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateSeries moves a course to a (possibly empty) series with the given
// part number.
func (r *CourseRepository) UpdateSeries(ctx context.Context, id, seriesName string, partNumber int) error {
	const query = `UPDATE courses SET series_name = $2, part_number = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, seriesName, partNumber, time.Now().UTC()); err != nil {
		return fmt.Errorf("retag course series: %w", err)
	}
	return nil
}

// UpdatePublished flips the published flag.
func (r *CourseRepository) UpdatePublished(ctx context.Context, id string, published bool) error {
	const query = `UPDATE courses SET published = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, published, time.Now().UTC()); err != nil {
		return fmt.Errorf("update course published: %w", err)
	}
	return nil
}
