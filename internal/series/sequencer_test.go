package series

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edulink/admin-api/internal/models"
)

func TestNextPartNumber(t *testing.T) {
	t.Run("empty series starts at one", func(t *testing.T) {
		assert.Equal(t, 1, NextPartNumber("Go Basics", nil))
	})

	t.Run("no series name starts at one", func(t *testing.T) {
		members := []Member{{CourseID: "c1", PartNumber: 5}}
		assert.Equal(t, 1, NextPartNumber("", members))
	})

	t.Run("one past the highest part", func(t *testing.T) {
		members := []Member{
			{CourseID: "c1", PartNumber: 1},
			{CourseID: "c2", PartNumber: 2},
			{CourseID: "c3", PartNumber: 3},
		}
		assert.Equal(t, 4, NextPartNumber("Go Basics", members))
	})

	t.Run("gaps are not filled", func(t *testing.T) {
		members := []Member{
			{CourseID: "c1", PartNumber: 1},
			{CourseID: "c3", PartNumber: 7},
		}
		assert.Equal(t, 8, NextPartNumber("Go Basics", members))
	})
}

func TestGroupBySeries(t *testing.T) {
	course := func(id, series string, part int) models.Course {
		return models.Course{ID: id, Title: id, SeriesName: series, PartNumber: part}
	}

	t.Run("named groups in first-encounter order", func(t *testing.T) {
		groups := GroupBySeries([]models.Course{
			course("b1", "Backend", 1),
			course("f1", "Frontend", 1),
			course("b2", "Backend", 2),
		})

		assert.Len(t, groups, 2)
		assert.Equal(t, "Backend", groups[0].Name)
		assert.Equal(t, "Frontend", groups[1].Name)
	})

	t.Run("members sorted ascending by part", func(t *testing.T) {
		groups := GroupBySeries([]models.Course{
			course("b3", "Backend", 3),
			course("b1", "Backend", 1),
			course("b2", "Backend", 2),
		})

		assert.Len(t, groups, 1)
		ids := make([]string, 0, 3)
		for _, c := range groups[0].Courses {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"b1", "b2", "b3"}, ids)
	})

	t.Run("duplicate parts keep input order", func(t *testing.T) {
		groups := GroupBySeries([]models.Course{
			course("older", "Backend", 2),
			course("newer", "Backend", 2),
			course("b1", "Backend", 1),
		})

		assert.Equal(t, "b1", groups[0].Courses[0].ID)
		assert.Equal(t, "older", groups[0].Courses[1].ID)
		assert.Equal(t, "newer", groups[0].Courses[2].ID)
	})

	t.Run("individual bucket trails named groups", func(t *testing.T) {
		groups := GroupBySeries([]models.Course{
			course("solo", "", 0),
			course("b1", "Backend", 1),
		})

		assert.Len(t, groups, 2)
		assert.Equal(t, "Backend", groups[0].Name)
		assert.Equal(t, IndividualBucket, groups[1].Name)
		assert.Equal(t, "solo", groups[1].Courses[0].ID)
	})

	t.Run("individual bucket omitted when empty", func(t *testing.T) {
		groups := GroupBySeries([]models.Course{course("b1", "Backend", 1)})

		assert.Len(t, groups, 1)
		assert.Equal(t, "Backend", groups[0].Name)
	})

	t.Run("no courses yields no groups", func(t *testing.T) {
		assert.Empty(t, GroupBySeries(nil))
	})
}

func TestDuplicateParts(t *testing.T) {
	t.Run("no collisions", func(t *testing.T) {
		members := []Member{
			{CourseID: "c1", PartNumber: 1},
			{CourseID: "c2", PartNumber: 2},
		}
		assert.Empty(t, DuplicateParts(members))
	})

	t.Run("collisions reported ascending", func(t *testing.T) {
		members := []Member{
			{CourseID: "c1", PartNumber: 3},
			{CourseID: "c2", PartNumber: 3},
			{CourseID: "c3", PartNumber: 1},
			{CourseID: "c4", PartNumber: 1},
			{CourseID: "c5", PartNumber: 2},
		}
		assert.Equal(t, []int{1, 3}, DuplicateParts(members))
	})
}
