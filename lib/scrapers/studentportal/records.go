package studentportal

import (
	"context"

	"odtucli/lib/scrapers/studentportal/report"
)

// Each accessor performs the full SSO hop and parses one record type
// from the fetched report page.

func (c *Client) Transcript(ctx context.Context) (report.Transcript, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return report.Transcript{}, err
	}
	return report.ParseTranscript(doc), nil
}

func (c *Client) AcademicRecord(ctx context.Context) ([]report.AcademicSemester, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return nil, err
	}
	return report.ParseAcademicRecord(doc), nil
}

func (c *Client) Curriculum(ctx context.Context) ([]report.CurriculumSemester, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return nil, err
	}
	return report.ParseCurriculum(doc), nil
}

func (c *Client) CourseSchedule(ctx context.Context) ([]report.ScheduleSlot, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return nil, err
	}
	return report.ParseCourseSchedule(doc), nil
}

func (c *Client) SemesterDetail(ctx context.Context) (report.SemesterDetail, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return report.SemesterDetail{}, err
	}
	return report.ParseSemesterDetail(doc), nil
}

func (c *Client) Financial(ctx context.Context) (report.Financial, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return report.Financial{}, err
	}
	return report.ParseFinancial(doc), nil
}

// AllStudentInfo fetches the report page once and runs every parser
// against it, avoiding five redundant SSO hops.
func (c *Client) AllStudentInfo(ctx context.Context) (report.StudentInfo, error) {
	doc, err := c.reportDocument(ctx)
	if err != nil {
		return report.StudentInfo{}, err
	}
	return report.StudentInfo{
		Transcript: report.ParseTranscript(doc),
		Academic:   report.ParseAcademicRecord(doc),
		Curriculum: report.ParseCurriculum(doc),
		Schedule:   report.ParseCourseSchedule(doc),
		Semester:   report.ParseSemesterDetail(doc),
		Financial:  report.ParseFinancial(doc),
	}, nil
}
