package studentportal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"odtucli/lib/sessionstore"
)

// fakePortal emulates the signin endpoint, the token-gated portal
// backend and the legacy report application behind the SSO hop.
type fakePortal struct {
	mu         sync.Mutex
	validToken string
	signins    int
}

const reportPage = `<html><body>
<div id="studentTranscript">
	<table>
		<tr><td colspan="6">2023-2024 FALL SEMESTER</td></tr>
		<tr><td>CENG 140</td><td>C PROGRAMMING</td><td>4,0</td><td>AA</td><td>4,0</td><td>6</td></tr>
		<tr><td colspan="6">CumGPA: 2,75 GPA: 3,10 TOT.CR: 120 TOT.GR: 372 STAN: SATISFACTORY</td></tr>
	</table>
</div>
</body></html>`

func (f *fakePortal) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Header.Get("Token") == f.validToken
}

func (f *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/sso/backend/request/user/signin", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.signins++
		token := f.validToken
		f.mu.Unlock()

		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if json.NewDecoder(r.Body).Decode(&creds) != nil || creds.Password != "hunter2" {
			w.Header().Set("Token-Valid", "0")
			fmt.Fprint(w, `{}`)
			return
		}
		w.Header().Set("Token", token)
		w.Header().Set("Token-Valid", "1")
		fmt.Fprint(w, `{}`)
	})

	mux.HandleFunc("/portal/backend/request/route/get_menu", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"menu":[],"profile":{"name":"Ayse Yilmaz","program":"Computer Engineering"}}`)
	})

	mux.HandleFunc("/portal/backend/request/route/get_content", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"pkg":"pkg-123"}`)
	})

	mux.HandleFunc("/portal/content.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pkg") != "pkg-123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<html><body>
			<form id="autologin" action="/oibs/autologin.php" method="post">
				<input type="hidden" name="ticket" value="t-1">
				<input type="hidden" name="lang" value="en">
			</form>
		</body></html>`)
	})

	mux.HandleFunc("/oibs/autologin.php", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("ticket") != "t-1" || r.FormValue("lang") != "en" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "report-sess"})
		http.Redirect(w, r, "/oibs/report.php", http.StatusFound)
	})

	mux.HandleFunc("/oibs/report.php", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("PHPSESSID")
		if err != nil || cookie.Value != "report-sess" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, reportPage)
	})

	return mux
}

func newTestClient(t *testing.T, baseUrl string) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl:     baseUrl,
		SessionPath: filepath.Join(t.TempDir(), "student-session.json"),
	})
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), "e230987", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "tok-1", client.Session().Token)
}

func TestLoginBadCredentials(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Login(context.Background(), "e230987", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestEnsureAuthenticatedReloginAfterExpiry(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2"))

	// invalidate the issued token server-side
	portal.mu.Lock()
	portal.validToken = "tok-2"
	portal.signins = 0
	portal.mu.Unlock()

	require.NoError(t, client.EnsureAuthenticated(context.Background()))
	require.Equal(t, "tok-2", client.Session().Token)

	portal.mu.Lock()
	defer portal.mu.Unlock()
	require.Equal(t, 1, portal.signins)
}

func TestEnsureAuthenticatedWithoutCredentials(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.EnsureAuthenticated(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestEnsureAuthenticatedIgnoresCredentiallessSession(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	// a live token persisted without credentials is useless: it cannot
	// be refreshed once it expires, so it must not be adopted
	path := filepath.Join(t.TempDir(), "student-session.json")
	require.NoError(t, sessionstore.Open[Session](path).Save(Session{Token: "tok-1"}))

	client, err := NewClient(ClientOptions{BaseUrl: server.URL, SessionPath: path})
	require.NoError(t, err)

	var authErr *AuthError
	require.ErrorAs(t, client.EnsureAuthenticated(context.Background()), &authErr)
	require.Empty(t, client.Session().Token)
}

func TestTranscriptViaReportHop(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2"))

	transcript, err := client.Transcript(context.Background())
	require.NoError(t, err)

	require.Len(t, transcript.Semesters, 1)
	require.Equal(t, "2023-2024 FALL SEMESTER", transcript.Semesters[0].Name)
	require.Equal(t, "2.75", transcript.Semesters[0].Summary.CumGpa)
	require.Equal(t, "3.10", transcript.Semesters[0].Summary.Gpa)
	require.Len(t, transcript.Semesters[0].Courses, 1)
	require.Equal(t, "AA", transcript.Semesters[0].Courses[0].Grade)
}

func TestProfile(t *testing.T) {
	portal := &fakePortal{validToken: "tok-1"}
	server := httptest.NewServer(portal.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Login(context.Background(), "e230987", "hunter2"))

	data, err := client.Profile(context.Background())
	require.NoError(t, err)

	var payload struct {
		Profile map[string]string `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, "Ayse Yilmaz", payload.Profile["name"])
}
