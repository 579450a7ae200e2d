package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/series"
	appErrors "github.com/edulink/admin-api/pkg/errors"
)

type mockCourseRepo struct {
	courses []models.Course
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return m.courses, len(m.courses), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.ID == id {
			course := c
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListBySeries(ctx context.Context, seriesName string) ([]models.Course, error) {
	var members []models.Course
	for _, c := range m.courses {
		if c.SeriesName == seriesName {
			members = append(members, c)
		}
	}
	return members, nil
}

func (m *mockCourseRepo) ListAllOrdered(ctx context.Context) ([]models.Course, error) {
	return m.courses, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses = append(m.courses, *course)
	return nil
}

func (m *mockCourseRepo) UpdateSeries(ctx context.Context, id, seriesName string, partNumber int) error {
	for i, c := range m.courses {
		if c.ID == id {
			m.courses[i].SeriesName = seriesName
			m.courses[i].PartNumber = partNumber
		}
	}
	return nil
}

func (m *mockCourseRepo) UpdatePublished(ctx context.Context, id string, published bool) error {
	for i, c := range m.courses {
		if c.ID == id {
			m.courses[i].Published = published
		}
	}
	return nil
}

func seriesCourse(id, seriesName string, part int) models.Course {
	return models.Course{ID: id, Title: id, InstructorID: "inst-1", SeriesName: seriesName, PartNumber: part}
}

func TestCourseServiceCreateSequencesIntoSeries(t *testing.T) {
	repo := &mockCourseRepo{courses: []models.Course{
		seriesCourse("c-1", "Go Basics", 1),
		seriesCourse("c-2", "Go Basics", 2),
	}}
	svc := NewCourseService(repo, &mockAuditRecorder{}, nil, nil)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:        "Go Basics III",
		InstructorID: "inst-1",
		SeriesName:   "Go Basics",
	}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, 3, course.PartNumber)
}

func TestCourseServiceCreateStandalone(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, &mockAuditRecorder{}, nil, nil)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:        "One-off Workshop",
		InstructorID: "inst-1",
	}, Actor{})
	require.NoError(t, err)
	assert.Empty(t, course.SeriesName)
	assert.Zero(t, course.PartNumber)
}

func TestCourseServiceRetagAssignsNextPart(t *testing.T) {
	repo := &mockCourseRepo{courses: []models.Course{
		seriesCourse("c-1", "Go Basics", 1),
		seriesCourse("solo", "", 0),
	}}
	svc := NewCourseService(repo, &mockAuditRecorder{}, nil, nil)

	course, warning, err := svc.Retag(context.Background(), "solo", RetagCourseRequest{SeriesName: "Go Basics"}, Actor{})
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, "Go Basics", course.SeriesName)
	assert.Equal(t, 2, course.PartNumber)
}

func TestCourseServiceRetagExplicitCollisionWarns(t *testing.T) {
	repo := &mockCourseRepo{courses: []models.Course{
		seriesCourse("c-1", "Go Basics", 1),
		seriesCourse("solo", "", 0),
	}}
	svc := NewCourseService(repo, &mockAuditRecorder{}, nil, nil)

	course, warning, err := svc.Retag(context.Background(), "solo", RetagCourseRequest{SeriesName: "Go Basics", PartNumber: 1}, Actor{})
	require.NoError(t, err)
	// The collision is honored and surfaced, never silently renumbered.
	assert.Equal(t, 1, course.PartNumber)
	require.NotNil(t, warning)
	assert.Equal(t, []int{1}, warning.DuplicateParts)
}

func TestCourseServiceGroupedWarnsOnDuplicates(t *testing.T) {
	repo := &mockCourseRepo{courses: []models.Course{
		seriesCourse("c-1", "Go Basics", 1),
		seriesCourse("c-2", "Go Basics", 1),
		seriesCourse("solo", "", 0),
	}}
	svc := NewCourseService(repo, &mockAuditRecorder{}, nil, nil)

	groups, warnings, err := svc.Grouped(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, series.IndividualBucket, groups[1].Name)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Go Basics", warnings[0].SeriesName)
	assert.Equal(t, []int{1}, warnings[0].DuplicateParts)
}

func TestCourseServiceRetagMissingCourse(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, &mockAuditRecorder{}, nil, nil)
	_, _, err := svc.Retag(context.Background(), "missing", RetagCourseRequest{SeriesName: "Go Basics"}, Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
