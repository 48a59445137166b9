package domain

// Grade is the discrete outcome derived from an analysis score.
type Grade string

const (
	GradeExcellent  Grade = "excellent"
	GradeVeryGood   Grade = "very_good"
	GradeGood       Grade = "good"
	GradeAcceptable Grade = "acceptable"
	GradeFailing    Grade = "failing"
)

// Label returns the traditional Arabic grade name shown to learners.
func (g Grade) Label() string {
	switch g {
	case GradeExcellent:
		return "mumtaz"
	case GradeVeryGood:
		return "jayyid_jiddan"
	case GradeGood:
		return "jayyid"
	case GradeAcceptable:
		return "maqbul"
	case GradeFailing:
		return "rasib"
	}
	return string(g)
}

// Valid reports whether g is one of the five grades.
func (g Grade) Valid() bool {
	switch g {
	case GradeExcellent, GradeVeryGood, GradeGood, GradeAcceptable, GradeFailing:
		return true
	}
	return false
}
