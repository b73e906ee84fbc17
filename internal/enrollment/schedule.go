package enrollment

import "github.com/dkhp/registration-backend/internal/model"

// blocks returns the timetable slots a course occupies: itself plus its
// linked theory offering when it is a practice section.
func blocks(c *model.Course) []*model.Course {
	if c.MainCourse != nil {
		return []*model.Course{c, c.MainCourse}
	}
	return []*model.Course{c}
}

func slotsOverlap(a, b *model.Course) bool {
	return a.DayOfWeek == b.DayOfWeek && a.BeginShift <= b.EndShift && a.EndShift >= b.BeginShift
}

// overlaps reports whether any slot of a clashes with any slot of b.
func overlaps(a, b []*model.Course) bool {
	for _, x := range a {
		for _, y := range b {
			if x.ID == y.ID {
				continue
			}
			if slotsOverlap(x, y) {
				return true
			}
		}
	}
	return false
}
