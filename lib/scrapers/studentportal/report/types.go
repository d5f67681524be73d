// Package report recovers typed records from the student portal's
// legacy report page. Every parser is a pure function over a parsed
// document, scoped to a named container element, and tolerant of
// missing data: absent fields come back empty rather than failing.
package report

// StudentInfo bundles every record recoverable from one report page.
type StudentInfo struct {
	Transcript Transcript
	Academic   []AcademicSemester
	Curriculum []CurriculumSemester
	Schedule   []ScheduleSlot
	Semester   SemesterDetail
	Financial  Financial
}

type Transcript struct {
	Student   StudentMeta
	Semesters []TranscriptSemester
	Notes     []string
}

type StudentMeta struct {
	FamilyName      string
	GivenName       string
	StudentNo       string
	Faculty         string
	Department      string
	DateOfEntry     string
	ReasonOfLeaving string
	DateOfLeaving   string
}

type TranscriptSemester struct {
	Name    string
	Courses []CourseLine
	Summary Summary
}

type CourseLine struct {
	Code        string
	Name        string
	Credit      string
	Grade       string
	TotalCredit string
	EctsCredit  string
}

// Summary values are kept as formatted strings with decimal commas
// normalized to periods.
type Summary struct {
	Gpa              string
	CumGpa           string
	TotalCredits     string
	TotalGradePoints string
	Standing         string
}

type AcademicSemester struct {
	Name    string
	Courses []AcademicCourse
	Summary Summary
}

type AcademicCourse struct {
	Name        string
	Grade       string
	Credit      string
	GradePoints string
}

type CurriculumSemester struct {
	Name    string
	Courses []CurriculumCourse
}

// CurriculumCourse.Grade is empty when the course has not been taken.
type CurriculumCourse struct {
	Code      string
	Category  string
	Grade     string
	Completed bool
}

// ScheduleSlot maps weekday names to course labels for one time slot;
// only occupied days are present.
type ScheduleSlot struct {
	Time string
	Days map[string]string
}

type SemesterDetail struct {
	RegistrationCourses []RegistrationCourse
	Advisor             string
}

type RegistrationCourse struct {
	Code             string
	Name             string
	Credit           string
	ReplaceCode      string
	ReplaceName      string
	ReplacedSemester string
	Category         string
	Section          string
}

type Financial struct {
	Tuition Tuition
	Library Library
}

type Tuition struct {
	Debt    string
	Payment string
}

type Library struct {
	Books string
	Debt  string
}
