// Package series assigns and orders (series name, part number) pairs for
// catalog courses. Grouping is derived on read; a series exists exactly as
// long as at least one course carries its name.
package series

import (
	"sort"

	"github.com/edulink/admin-api/internal/models"
)

// IndividualBucket is the synthetic group collecting courses without a
// series, always appended after the named groups.
const IndividualBucket = "Individual Courses"

// Member is a course's position within a series.
type Member struct {
	CourseID   string
	PartNumber int
}

// Group is one display bucket: a named series ordered by part number, or the
// trailing individual-courses bucket.
type Group struct {
	Name    string          `json:"name"`
	Courses []models.Course `json:"courses"`
}

// NextPartNumber returns the part number a new course in seriesName should
// take: one past the highest existing part, or 1 for an empty or unset
// series. The caller must pass the latest member set it can read; the value
// is never cached because a stale read is exactly the concurrent-creation
// race documented for this feature.
func NextPartNumber(seriesName string, members []Member) int {
	if seriesName == "" {
		return 1
	}
	max := 0
	for _, m := range members {
		if m.PartNumber > max {
			max = m.PartNumber
		}
	}
	return max + 1
}

// GroupBySeries partitions courses into ordered display groups. Named groups
// appear in first-encounter order of the input; within a group courses are
// sorted ascending by part number with ties left in input (creation) order.
// Courses without a series land in the IndividualBucket group, appended last
// and only when non-empty.
func GroupBySeries(courses []models.Course) []Group {
	var order []string
	byName := make(map[string][]models.Course)
	var individual []models.Course

	for _, course := range courses {
		if course.SeriesName == "" {
			individual = append(individual, course)
			continue
		}
		if _, seen := byName[course.SeriesName]; !seen {
			order = append(order, course.SeriesName)
		}
		byName[course.SeriesName] = append(byName[course.SeriesName], course)
	}

	groups := make([]Group, 0, len(order)+1)
	for _, name := range order {
		members := byName[name]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].PartNumber < members[j].PartNumber
		})
		groups = append(groups, Group{Name: name, Courses: members})
	}

	if len(individual) > 0 {
		groups = append(groups, Group{Name: IndividualBucket, Courses: individual})
	}

	return groups
}

// DuplicateParts returns the part numbers shared by more than one member,
// ascending. Collisions are a data-quality condition to surface, never to
// repair: the sequencer must not renumber existing members.
func DuplicateParts(members []Member) []int {
	counts := make(map[int]int, len(members))
	for _, m := range members {
		counts[m.PartNumber]++
	}
	var dupes []int
	for part, n := range counts {
		if n > 1 {
			dupes = append(dupes, part)
		}
	}
	sort.Ints(dupes)
	return dupes
}
