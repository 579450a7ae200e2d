package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/series"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListBySeries(ctx context.Context, seriesName string) ([]models.Course, error)
	ListAllOrdered(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	UpdateSeries(ctx context.Context, id, seriesName string, partNumber int) error
	UpdatePublished(ctx context.Context, id string, published bool) error
}

// CreateCourseRequest registers a new catalog course. A non-empty SeriesName
// appends the course to that series with the next part number.
type CreateCourseRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	InstructorID string `json:"instructor_id" validate:"required"`
	SeriesName   string `json:"series_name"`
	PriceCents   int64  `json:"price_cents" validate:"gte=0"`
}

// RetagCourseRequest moves a course into (or out of) a series. PartNumber
// zero means "assign the next free part"; an explicit part is honored even
// when it collides, with the collision surfaced as a warning.
type RetagCourseRequest struct {
	SeriesName string `json:"series_name"`
	PartNumber int    `json:"part_number" validate:"gte=0"`
}

// SeriesWarning flags a data-quality condition within one series.
type SeriesWarning struct {
	SeriesName     string `json:"series_name"`
	DuplicateParts []int  `json:"duplicate_parts"`
}

// CourseService manages the catalog and its series grouping.
type CourseService struct {
	repo      courseRepository
	audits    auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, audits auditRecorder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, audits: audits, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Grouped returns the catalog partitioned into series display groups, with
// per-series duplicate-part warnings. Duplicates are surfaced, never
// renumbered.
func (s *CourseService) Grouped(ctx context.Context) ([]series.Group, []SeriesWarning, error) {
	courses, err := s.repo.ListAllOrdered(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	groups := series.GroupBySeries(courses)
	var warnings []SeriesWarning
	for _, group := range groups {
		if group.Name == series.IndividualBucket {
			continue
		}
		dupes := series.DuplicateParts(membersOf(group.Courses))
		if len(dupes) > 0 {
			warnings = append(warnings, SeriesWarning{SeriesName: group.Name, DuplicateParts: dupes})
		}
	}
	return groups, warnings, nil
}

// Create registers a course, sequencing it into its series when one is named.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, actor Actor) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: req.InstructorID,
		SeriesName:   req.SeriesName,
		PriceCents:   req.PriceCents,
	}
	if req.SeriesName != "" {
		part, err := s.nextPart(ctx, req.SeriesName)
		if err != nil {
			return nil, err
		}
		course.PartNumber = part
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.recordAudit(ctx, actor, models.AuditActionCourseCreate, course.ID, nil, course)
	return course, nil
}

// Retag moves a course into (or out of) a series. Returns the updated course
// plus a warning when the assigned part number collides with an existing
// member.
func (s *CourseService) Retag(ctx context.Context, id string, req RetagCourseRequest, actor Actor) (*models.Course, *SeriesWarning, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid retag payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	before := *course
	part := 0
	var warning *SeriesWarning
	if req.SeriesName != "" {
		members, err := s.seriesMembers(ctx, req.SeriesName, id)
		if err != nil {
			return nil, nil, err
		}
		part = req.PartNumber
		if part == 0 {
			part = series.NextPartNumber(req.SeriesName, members)
		} else {
			for _, m := range members {
				if m.PartNumber == part {
					warning = &SeriesWarning{SeriesName: req.SeriesName, DuplicateParts: []int{part}}
					s.logger.Warn("duplicate part number in series",
						zap.String("series", req.SeriesName), zap.Int("part", part))
					break
				}
			}
		}
	}

	if err := s.repo.UpdateSeries(ctx, id, req.SeriesName, part); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retag course")
	}
	course.SeriesName = req.SeriesName
	course.PartNumber = part
	s.recordAudit(ctx, actor, models.AuditActionCourseRetag, id, &before, course)
	return course, warning, nil
}

// SetPublished flips a course's published flag.
func (s *CourseService) SetPublished(ctx context.Context, id string, published bool) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.UpdatePublished(ctx, id, published); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	course.Published = published
	return course, nil
}

// nextPart reads the latest member set and assigns one past the highest
// part. Two concurrent creations into the same series can both read the same
// set and compute the same part; the duplicate shows up as a grouping
// warning, not a broken invariant.
func (s *CourseService) nextPart(ctx context.Context, seriesName string) (int, error) {
	members, err := s.seriesMembers(ctx, seriesName, "")
	if err != nil {
		return 0, err
	}
	return series.NextPartNumber(seriesName, members), nil
}

func (s *CourseService) seriesMembers(ctx context.Context, seriesName, excludeID string) ([]series.Member, error) {
	courses, err := s.repo.ListBySeries(ctx, seriesName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("failed to load series %s", seriesName))
	}
	members := make([]series.Member, 0, len(courses))
	for _, c := range courses {
		if c.ID == excludeID {
			continue
		}
		members = append(members, series.Member{CourseID: c.ID, PartNumber: c.PartNumber})
	}
	return members, nil
}

func membersOf(courses []models.Course) []series.Member {
	members := make([]series.Member, 0, len(courses))
	for _, c := range courses {
		members = append(members, series.Member{CourseID: c.ID, PartNumber: c.PartNumber})
	}
	return members
}

func (s *CourseService) recordAudit(ctx context.Context, actor Actor, action, id string, before, after *models.Course) {
	if s.audits == nil {
		return
	}
	var oldValues, newValues []byte
	if before != nil {
		oldValues, _ = json.Marshal(map[string]interface{}{"series_name": before.SeriesName, "part_number": before.PartNumber})
	}
	if after != nil {
		newValues, _ = json.Marshal(map[string]interface{}{"series_name": after.SeriesName, "part_number": after.PartNumber})
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "courses",
		ResourceID: &id,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		log.UserID = &userID
	}
	if err := s.audits.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.Error(err))
	}
}
