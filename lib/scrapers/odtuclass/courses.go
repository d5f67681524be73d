package odtuclass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"

	"odtucli/lib/htmlutil"
	"odtucli/lib/textutil"
)

type Course struct {
	Id          int64  `json:"id"`
	FullName    string `json:"fullname"`
	Category    string `json:"coursecategory"`
	IsFavourite bool   `json:"isfavourite"`
}

type Section struct {
	Id      int64    `json:"id"`
	Name    string   `json:"name"`
	Modules []Module `json:"modules"`
}

type Module struct {
	Id      int64        `json:"id"`
	Name    string       `json:"name"`
	ModName string       `json:"modname"`
	Url     string       `json:"url"`
	Dates   []ModuleDate `json:"dates"`
}

type ModuleDate struct {
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
}

// Assignment is an assignment-like activity. A zero timestamp means the
// date is unknown.
type Assignment struct {
	CourseId   int64
	ActivityId int64
	Name       string
	ModName    string
	OpenDate   int64
	DueDate    int64
	Url        string
}

type GradeOverviewRow struct {
	CourseName string
	CourseId   int64
	Grade      string
}

// GradeItem fields beyond the name are present only when the source
// table exposes that column.
type GradeItem struct {
	ItemName     string
	Grade        string
	Range        string
	Percentage   string
	Weight       string
	Feedback     string
	Contribution string
}

type CalendarEvent struct {
	Name      string `json:"name"`
	TimeSort  int64  `json:"timesort"`
	EventType string `json:"eventtype"`
	Url       string `json:"url"`
	Course    struct {
		FullName string `json:"fullname"`
	} `json:"course"`
	Action struct {
		Name string `json:"name"`
	} `json:"action"`
}

type Forum struct {
	Id     int64  `json:"id"`
	Course int64  `json:"course"`
	Name   string `json:"name"`
	// "news" marks the announcements forum
	Type           string `json:"type"`
	NumDiscussions int64  `json:"numdiscussions"`
}

type Discussion struct {
	Name         string `json:"name"`
	UserFullName string `json:"userfullname"`
	Created      int64  `json:"created"`
	TimeModified int64  `json:"timemodified"`
	Message      string `json:"message"`
}

type Announcement struct {
	CourseId   int64
	ForumName  string
	Discussion Discussion
}

type SiteInfo struct {
	UserId   int64  `json:"userid"`
	UserName string `json:"username"`
	FullName string `json:"fullname"`
	SiteName string `json:"sitename"`
}

// activity types treated as assignment-like
var assignmentModNames = []string{"assign", "turnitintooltwo", "quiz"}

func isAssignmentModName(modname string) bool {
	for _, m := range assignmentModNames {
		if modname == m {
			return true
		}
	}
	return false
}

func (c *Client) Courses(ctx context.Context, classification string) ([]Course, error) {
	if classification == "" {
		classification = "all"
	}
	data, err := c.Call(ctx, "core_course_get_enrolled_courses_by_timeline_classification", map[string]any{
		"offset":           0,
		"limit":            0,
		"classification":   classification,
		"sort":             "fullname",
		"customfieldname":  "",
		"customfieldvalue": "",
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Courses []Course `json:"courses"`
	}
	err = json.Unmarshal(data, &out)
	if err != nil {
		return nil, &APIError{Message: "unexpected course list payload"}
	}
	return out.Courses, nil
}

func (c *Client) CourseContents(ctx context.Context, courseId int64) ([]Section, error) {
	data, err := c.Call(ctx, "core_course_get_contents", map[string]any{
		"courseid": courseId,
	})
	if err != nil {
		return nil, err
	}
	var sections []Section
	err = json.Unmarshal(data, &sections)
	if err != nil {
		return nil, &APIError{Message: "unexpected course contents payload"}
	}
	return sections, nil
}

// Assignments collects assignment-like activities for the given courses
// over RPC. Courses whose contents fail with an API-classified error are
// recovered by scraping the course page instead.
func (c *Client) Assignments(ctx context.Context, courseIds []int64) ([]Assignment, error) {
	ctx, span := tracer.Start(ctx, "client:Assignments")
	defer span.End()

	var assignments []Assignment
	for _, courseId := range courseIds {
		sections, err := c.CourseContents(ctx, courseId)
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to fetch course contents")
				return nil, err
			}
			scraped, err := c.scrapeAssignments(ctx, courseId)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "assignment scrape fallback failed")
				return nil, err
			}
			assignments = append(assignments, scraped...)
			continue
		}

		for _, section := range sections {
			for _, module := range section.Modules {
				if !isAssignmentModName(module.ModName) {
					continue
				}
				assignment := Assignment{
					CourseId:   courseId,
					ActivityId: module.Id,
					Name:       module.Name,
					ModName:    module.ModName,
					Url:        module.Url,
				}
				for _, date := range module.Dates {
					label := strings.ToLower(date.Label)
					switch {
					case strings.Contains(label, "due") || strings.Contains(label, "close"):
						assignment.DueDate = date.Timestamp
					case strings.Contains(label, "open"):
						assignment.OpenDate = date.Timestamp
					}
				}
				assignments = append(assignments, assignment)
			}
		}
	}
	return assignments, nil
}

// scrapeAssignments recovers activities from the plain course page:
// name, URL and CSS-class-derived type, with dates unknown.
func (c *Client) scrapeAssignments(ctx context.Context, courseId int64) ([]Assignment, error) {
	html, err := c.PageHtml(ctx, fmt.Sprintf("/course/view.php?id=%d", courseId))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var assignments []Assignment
	doc.Find("li.activity").Each(func(_ int, activity *goquery.Selection) {
		modType := ""
		for _, class := range strings.Fields(activity.AttrOr("class", "")) {
			if strings.HasPrefix(class, "modtype_") {
				modType = strings.TrimPrefix(class, "modtype_")
			}
		}
		if !isAssignmentModName(modType) {
			return
		}
		link := activity.Find("a.aalink").First()
		if link.Length() == 0 {
			link = activity.Find("a").First()
		}
		if link.Length() == 0 {
			return
		}
		assignments = append(assignments, Assignment{
			CourseId: courseId,
			Name:     textutil.CollapseSpace(link.Text()),
			ModName:  modType,
			Url:      link.AttrOr("href", ""),
		})
	})
	return assignments, nil
}

var courseIdRegex = regexp.MustCompile(`id=(\d+)`)

// GradesOverview scrapes the cross-course grade report. There is no RPC
// method exposing it.
func (c *Client) GradesOverview(ctx context.Context) ([]GradeOverviewRow, error) {
	html, err := c.PageHtml(ctx, "/grade/report/overview/index.php")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var rows []GradeOverviewRow
	doc.Find("table#overview-grade tbody tr").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("emptyrow") {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		first := cells.Eq(0)
		link := first.Find("a")
		name := textutil.CollapseSpace(first.Text())
		var courseId int64
		if link.Length() > 0 {
			name = textutil.CollapseSpace(link.Text())
			if groups := courseIdRegex.FindStringSubmatch(link.AttrOr("href", "")); len(groups) == 2 {
				courseId, _ = strconv.ParseInt(groups[1], 10, 64)
			}
		}
		grade := textutil.CollapseSpace(cells.Eq(1).Text())
		if grade == "" {
			grade = "-"
		}
		rows = append(rows, GradeOverviewRow{
			CourseName: name,
			CourseId:   courseId,
			Grade:      grade,
		})
	})
	return rows, nil
}

// CourseGrades scrapes the per-course user grade table, mapping columns
// by header name so layouts with missing columns still parse.
func (c *Client) CourseGrades(ctx context.Context, courseId int64) ([]GradeItem, error) {
	html, err := c.PageHtml(ctx, fmt.Sprintf(
		"/course/user.php?mode=grade&id=%d&user=%d",
		courseId, c.session.UserId,
	))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.user-grade")
	if table.Length() == 0 {
		table = doc.Find("table.generaltable")
	}
	if table.Length() == 0 {
		return nil, nil
	}

	headerScope := table.Find("thead")
	if headerScope.Length() == 0 {
		headerScope = table
	}
	var headers []string
	headerScope.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.ToLower(textutil.CollapseSpace(th.Text())))
	})

	var items []GradeItem
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return
		}

		item := GradeItem{ItemName: textutil.CollapseSpace(cells.Eq(0).Text())}
		if item.ItemName == "" {
			return
		}
		for i := 1; i < cells.Length() && i < len(headers); i++ {
			text := textutil.CollapseSpace(cells.Eq(i).Text())
			header := headers[i]
			switch {
			case strings.Contains(header, "grade"):
				item.Grade = text
			case strings.Contains(header, "range"):
				item.Range = text
			case strings.Contains(header, "percentage") || strings.Contains(header, "%"):
				item.Percentage = text
			case strings.Contains(header, "feedback"):
				item.Feedback = text
			case strings.Contains(header, "weight"):
				item.Weight = text
			case strings.Contains(header, "contribution"):
				item.Contribution = text
			}
		}
		items = append(items, item)
	})
	return items, nil
}

// UpcomingEvents lists action events in [timeFrom, timeTo) by sort time.
func (c *Client) UpcomingEvents(ctx context.Context, timeFrom, timeTo int64, limit int) ([]CalendarEvent, error) {
	data, err := c.Call(ctx, "core_calendar_get_action_events_by_timesort", map[string]any{
		"limitnum":                  limit,
		"timesortfrom":              timeFrom,
		"timesortto":                timeTo,
		"limittononsuspendedevents": true,
	})
	if err != nil {
		return nil, err
	}
	return decodeEvents(data)
}

func (c *Client) CourseEvents(ctx context.Context, courseId int64, limit int) ([]CalendarEvent, error) {
	data, err := c.Call(ctx, "core_calendar_get_action_events_by_course", map[string]any{
		"courseid": courseId,
		"limitnum": limit,
	})
	if err != nil {
		return nil, err
	}
	return decodeEvents(data)
}

func decodeEvents(data json.RawMessage) ([]CalendarEvent, error) {
	var out struct {
		Events []CalendarEvent `json:"events"`
	}
	err := json.Unmarshal(data, &out)
	if err != nil {
		return nil, &APIError{Message: "unexpected calendar payload"}
	}
	return out.Events, nil
}

func (c *Client) Forums(ctx context.Context, courseIds []int64) ([]Forum, error) {
	data, err := c.Call(ctx, "mod_forum_get_forums_by_courses", map[string]any{
		"courseids": courseIds,
	})
	if err != nil {
		return nil, err
	}
	var forums []Forum
	err = json.Unmarshal(data, &forums)
	if err != nil {
		return nil, &APIError{Message: "unexpected forum payload"}
	}
	return forums, nil
}

func (c *Client) ForumDiscussions(ctx context.Context, forumId int64) ([]Discussion, error) {
	data, err := c.Call(ctx, "mod_forum_get_forum_discussions", map[string]any{
		"forumid":       forumId,
		"sortby":        "timemodified",
		"sortdirection": "DESC",
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Discussions []Discussion `json:"discussions"`
	}
	err = json.Unmarshal(data, &out)
	if err != nil {
		return nil, &APIError{Message: "unexpected discussion payload"}
	}
	for i := range out.Discussions {
		out.Discussions[i].Message = htmlutil.StripTags(out.Discussions[i].Message)
	}
	return out.Discussions, nil
}

// Announcements aggregates discussions from every announcement forum of
// the given courses. A forum whose discussions cannot be fetched is
// skipped, not fatal.
func (c *Client) Announcements(ctx context.Context, courseIds []int64) ([]Announcement, error) {
	forums, err := c.Forums(ctx, courseIds)
	if err != nil {
		return nil, err
	}

	var announcements []Announcement
	for _, forum := range forums {
		if forum.Type != "news" {
			continue
		}
		discussions, err := c.ForumDiscussions(ctx, forum.Id)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable announcement forum",
				"forum", forum.Name, "course", forum.Course, "err", err)
			continue
		}
		for _, discussion := range discussions {
			announcements = append(announcements, Announcement{
				CourseId:   forum.Course,
				ForumName:  forum.Name,
				Discussion: discussion,
			})
		}
	}
	return announcements, nil
}

// Dashboard groups the pieces of the summary screen: who is logged in,
// the running courses and the next events. All three are fetched in one
// physical request.
type Dashboard struct {
	Site    SiteInfo
	Courses []Course
	Events  []CalendarEvent
}

func (c *Client) Dashboard(ctx context.Context, timeFrom, timeTo int64, limit int) (Dashboard, error) {
	results, err := c.BatchCall(ctx, []RPCCall{
		{Method: "core_webservice_get_site_info", Args: map[string]any{}},
		{Method: "core_course_get_enrolled_courses_by_timeline_classification", Args: map[string]any{
			"offset":           0,
			"limit":            0,
			"classification":   "inprogress",
			"sort":             "fullname",
			"customfieldname":  "",
			"customfieldvalue": "",
		}},
		{Method: "core_calendar_get_action_events_by_timesort", Args: map[string]any{
			"limitnum":                  limit,
			"timesortfrom":              timeFrom,
			"timesortto":                timeTo,
			"limittononsuspendedevents": true,
		}},
	})
	if err != nil {
		return Dashboard{}, err
	}
	if len(results) != 3 {
		return Dashboard{}, &APIError{Message: "unexpected dashboard payload"}
	}

	var dashboard Dashboard
	if err := json.Unmarshal(results[0], &dashboard.Site); err != nil {
		return Dashboard{}, &APIError{Message: "unexpected site info payload"}
	}
	var courses struct {
		Courses []Course `json:"courses"`
	}
	if err := json.Unmarshal(results[1], &courses); err != nil {
		return Dashboard{}, &APIError{Message: "unexpected course list payload"}
	}
	dashboard.Courses = courses.Courses
	events, err := decodeEvents(results[2])
	if err != nil {
		return Dashboard{}, err
	}
	dashboard.Events = events
	return dashboard, nil
}

func (c *Client) SiteInfo(ctx context.Context) (SiteInfo, error) {
	data, err := c.Call(ctx, "core_webservice_get_site_info", map[string]any{})
	if err != nil {
		return SiteInfo{}, err
	}
	var info SiteInfo
	err = json.Unmarshal(data, &info)
	if err != nil {
		return SiteInfo{}, &APIError{Message: "unexpected site info payload"}
	}
	return info, nil
}
