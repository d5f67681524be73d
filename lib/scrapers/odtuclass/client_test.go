package odtuclass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"odtucli/lib/telemetry"
)

// fakeMoodle emulates the three-step form login and the ajax endpoint.
// The valid sesskey can be rotated mid-test to simulate expiry.
type fakeMoodle struct {
	mu           sync.Mutex
	validSesskey string
	failLogin    bool
	loginPosts   int
	rpcCalls     int
	// error messages served for the next rpc calls, in order
	rpcErrors []string
}

func (f *fakeMoodle) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login/index.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("testsession") != "" {
			http.Redirect(w, r, "/my/", http.StatusFound)
			return
		}

		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "MoodleSession", Value: "anon"})
			fmt.Fprint(w, `<html><body><form method="post">
				<input type="hidden" name="logintoken" value="tok-1">
			</form></body></html>`)
			return
		}

		f.mu.Lock()
		f.loginPosts++
		fail := f.failLogin
		f.mu.Unlock()

		if fail || r.FormValue("logintoken") != "tok-1" ||
			r.FormValue("username") == "" || r.FormValue("password") != "hunter2" {
			fmt.Fprint(w, `<html><body>
				<a href="#" id="loginerrormessage">Invalid login, please try again</a>
			</body></html>`)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: "MoodleSession", Value: "authed"})
		http.Redirect(w, r, "/login/index.php?testsession=7", http.StatusSeeOther)
	})

	mux.HandleFunc("/my/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		sesskey := f.validSesskey
		f.mu.Unlock()
		fmt.Fprintf(w, `<html><body><script>
			var M = {}; M.cfg = {"sesskey":%q,"userId":42,"wwwroot":"x"};
		</script></body></html>`, sesskey)
	})

	mux.HandleFunc("/lib/ajax/service.php", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.rpcCalls++
		valid := f.validSesskey
		var scripted string
		if len(f.rpcErrors) > 0 {
			scripted = f.rpcErrors[0]
			f.rpcErrors = f.rpcErrors[1:]
		}
		f.mu.Unlock()

		w.Header().Set("content-type", "application/json")
		if scripted != "" {
			fmt.Fprintf(w, `[{"error":%q,"data":null}]`, scripted)
			return
		}
		if r.URL.Query().Get("sesskey") != valid {
			fmt.Fprint(w, `[{"error":"You are not logged in (session expired)","data":null}]`)
			return
		}

		var envelopes []struct {
			Index      int    `json:"index"`
			MethodName string `json:"methodname"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelopes); err != nil || len(envelopes) == 0 {
			fmt.Fprint(w, `{"error":"invalidrequest","message":"invalid request"}`)
			return
		}
		results := make([]string, len(envelopes))
		for i, envelope := range envelopes {
			switch envelope.MethodName {
			case "core_webservice_get_site_info":
				results[i] = `{"error":false,"data":{"userid":42,"username":"ayse","fullname":"Ayse Yilmaz","sitename":"ODTUClass"}}`
			case "core_course_get_enrolled_courses_by_timeline_classification":
				results[i] = `{"error":false,"data":{"courses":[{"id":7,"fullname":"CENG 242","coursecategory":"CENG"}]}}`
			case "core_calendar_get_action_events_by_timesort":
				results[i] = `{"error":false,"data":{"events":[{"name":"Homework 3 is due","timesort":1718000000}]}}`
			default:
				results[i] = fmt.Sprintf(`{"error":false,"data":{"method":%q}}`, envelope.MethodName)
			}
		}
		fmt.Fprint(w, "["+strings.Join(results, ",")+"]")
	})

	return mux
}

func newTestClient(t *testing.T, baseUrl string) *Client {
	client, err := NewClient(ClientOptions{
		Year:        2024,
		Semester:    "f",
		SessionPath: filepath.Join(t.TempDir(), "session.json"),
		BaseUrl:     baseUrl,
	})
	require.NoError(t, err)
	return client
}

func TestMakeBaseUrl(t *testing.T) {
	require.Equal(t, "https://odtuclass2024f.metu.edu.tr", MakeBaseUrl(2024, "F"))
	require.Equal(t, "https://odtuclass2023s.metu.edu.tr", MakeBaseUrl(2023, "s"))
}

func TestLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:odtuclass")
	defer cleanup()

	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), "e230987", "hunter2", nil)
	require.NoError(t, err)

	session := client.Session()
	require.Equal(t, "key-1", session.Sesskey)
	require.Equal(t, int64(42), session.UserId)
	require.Equal(t, "authed", session.Cookies["MoodleSession"])

	info, err := client.SiteInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), info.UserId)
	require.Equal(t, "Ayse Yilmaz", info.FullName)
	require.True(t, client.IsAuthenticated(context.Background()))
}

func TestLoginBadCredentials(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), "e230987", "wrong", nil)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "Invalid login, please try again", authErr.Message)
}

func TestSessionPersistsAcrossClients(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	first, err := NewClient(ClientOptions{Year: 2024, Semester: "f", SessionPath: path, BaseUrl: server.URL})
	require.NoError(t, err)
	require.NoError(t, first.Login(context.Background(), "e230987", "hunter2", nil))

	second, err := NewClient(ClientOptions{Year: 2024, Semester: "f", SessionPath: path, BaseUrl: server.URL})
	require.NoError(t, err)
	require.NoError(t, second.EnsureAuthenticated())
	require.Equal(t, "key-1", second.Session().Sesskey)

	require.NoError(t, second.Logout())
	third, err := NewClient(ClientOptions{Year: 2024, Semester: "f", SessionPath: path, BaseUrl: server.URL})
	require.NoError(t, err)
	var authErr *AuthError
	require.ErrorAs(t, third.EnsureAuthenticated(), &authErr)
}

func TestCallRetriesOnceAfterRelogin(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2", nil))

	// expire the session on the server side
	moodle.mu.Lock()
	moodle.validSesskey = "key-2"
	moodle.loginPosts = 0
	moodle.rpcCalls = 0
	moodle.mu.Unlock()

	info, err := client.SiteInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), info.UserId)
	require.Equal(t, "key-2", client.Session().Sesskey)

	moodle.mu.Lock()
	defer moodle.mu.Unlock()
	require.Equal(t, 1, moodle.loginPosts)
	require.Equal(t, 2, moodle.rpcCalls)
}

func TestCallSurfacesRetryError(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2", nil))

	// first failure classifies as auth-related, the retry's does not
	moodle.mu.Lock()
	moodle.rpcErrors = []string{"Invalid sesskey detected", "Course not found"}
	moodle.loginPosts = 0
	moodle.mu.Unlock()

	_, err := client.SiteInfo(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Course not found", apiErr.Message)

	moodle.mu.Lock()
	defer moodle.mu.Unlock()
	require.Equal(t, 1, moodle.loginPosts)
}

func TestCallSurfacesOriginalErrorWhenReloginFails(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2", nil))

	moodle.mu.Lock()
	moodle.validSesskey = "key-2"
	moodle.failLogin = true
	moodle.mu.Unlock()

	_, err := client.SiteInfo(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.Message, "session expired")
}

func TestRedirectChainIsCapped(t *testing.T) {
	var requests int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PageHtml(context.Background(), "/loop")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1+maxRedirects, requests)
}

func TestCookiesAccumulateAcrossRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "first", Value: "1"})
		http.Redirect(w, r, "/mid", http.StatusFound)
	})
	mux.HandleFunc("/mid", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "second", Value: "2"})
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.Header.Get("cookie"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	body, err := client.PageHtml(context.Background(), "/start")
	require.NoError(t, err)
	require.Contains(t, body, "first=1")
	require.Contains(t, body, "second=2")
}

func TestBatchCall(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2", nil))

	data, err := client.BatchCall(context.Background(), []RPCCall{
		{Method: "core_course_get_contents", Args: map[string]any{"courseid": 7}},
		{Method: "mod_forum_get_forums_by_courses", Args: map[string]any{"courseids": []int64{7}}},
	})
	require.NoError(t, err)
	require.Len(t, data, 2)
	require.JSONEq(t, `{"method":"core_course_get_contents"}`, string(data[0]))
	require.JSONEq(t, `{"method":"mod_forum_get_forums_by_courses"}`, string(data[1]))
}

func TestDashboard(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2", nil))

	moodle.mu.Lock()
	moodle.rpcCalls = 0
	moodle.mu.Unlock()

	dashboard, err := client.Dashboard(context.Background(), 1717000000, 1719000000, 10)
	require.NoError(t, err)
	require.Equal(t, "Ayse Yilmaz", dashboard.Site.FullName)
	require.Equal(t, []Course{{Id: 7, FullName: "CENG 242", Category: "CENG"}}, dashboard.Courses)
	require.Len(t, dashboard.Events, 1)
	require.Equal(t, "Homework 3 is due", dashboard.Events[0].Name)

	// the three pieces travel in one physical request
	moodle.mu.Lock()
	defer moodle.mu.Unlock()
	require.Equal(t, 1, moodle.rpcCalls)
}

func TestSwitchSemester(t *testing.T) {
	moodle := &fakeMoodle{validSesskey: "key-1"}
	server := httptest.NewServer(moodle.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2", nil))

	moodle.mu.Lock()
	moodle.loginPosts = 0
	moodle.mu.Unlock()

	require.NoError(t, client.SwitchSemester(context.Background(), 2023, "s"))

	session := client.Session()
	require.Equal(t, 2023, session.Year)
	require.Equal(t, "s", session.Semester)
	require.Equal(t, "key-1", session.Sesskey)

	moodle.mu.Lock()
	defer moodle.mu.Unlock()
	require.Equal(t, 1, moodle.loginPosts)
}

func TestSwitchSemesterWithoutCredentials(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")
	var authErr *AuthError
	require.ErrorAs(t, client.SwitchSemester(context.Background(), 2023, "s"), &authErr)
}

func TestGradesOverviewScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/grade/report/overview/index.php", r.URL.Path)
		fmt.Fprint(w, `<html><body><table id="overview-grade"><tbody>
			<tr><td><a href="/course/user.php?mode=grade&id=77">CENG 242</a></td><td>85,00</td></tr>
			<tr class="emptyrow"><td colspan="2">No data</td></tr>
			<tr><td>ENG 211</td><td></td></tr>
		</tbody></table></body></html>`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	rows, err := client.GradesOverview(context.Background())
	require.NoError(t, err)

	require.Equal(t, []GradeOverviewRow{
		{CourseName: "CENG 242", CourseId: 77, Grade: "85,00"},
		{CourseName: "ENG 211", Grade: "-"},
	}, rows)
}

func TestIsAuthRelated(t *testing.T) {
	testCases := []struct {
		err      error
		expected bool
	}{
		{&AuthError{Message: "could not find logintoken on login page"}, true},
		{&APIError{Message: "Invalid sesskey, please log in again"}, true},
		{&APIError{Message: "Your session has expired"}, true},
		{&APIError{Message: "unexpected response from server"}, true},
		{&APIError{Message: "Course or activity not accessible"}, false},
		{&TransportError{Status: 500, Message: "Internal Server Error"}, false},
		{errors.New("connection refused"), false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, isAuthRelated(test.err), "err: %v", test.err)
	}
}
