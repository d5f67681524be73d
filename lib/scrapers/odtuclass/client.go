package odtuclass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"odtucli/lib/htmlutil"
	"odtucli/lib/sessionstore"
	"odtucli/lib/telemetry"
	"odtucli/lib/textutil"
)

var tracer = otel.Tracer("scrapers/odtuclass")

// SessionFile is the fixed per-user location of the persisted course
// backend session, relative to the configuration directory.
const SessionFile = "session.json"

const maxRedirects = 10

// MakeBaseUrl derives the per-semester service origin. Each academic
// term lives on its own host.
func MakeBaseUrl(year int, semester string) string {
	return fmt.Sprintf("https://odtuclass%d%s.metu.edu.tr", year, strings.ToLower(semester))
}

// Session is the mutable per-user state behind every request. Username
// and password are retained only to enable silent re-login.
type Session struct {
	Cookies  map[string]string `json:"cookies"`
	Sesskey  string            `json:"sesskey"`
	UserId   int64             `json:"user_id"`
	Username string            `json:"username"`
	Password string            `json:"password"`
	Year     int               `json:"year"`
	Semester string            `json:"semester"`
}

func (s Session) BaseUrl() string {
	if s.Year == 0 || s.Semester == "" {
		return ""
	}
	return MakeBaseUrl(s.Year, s.Semester)
}

// Authenticated reports whether the session holds a sesskey and a
// resolved origin. It does not prove the sesskey is still live.
func (s Session) Authenticated() bool {
	return s.Sesskey != "" && s.BaseUrl() != ""
}

func (s Session) SemesterDisplay() string {
	if s.Year == 0 || s.Semester == "" {
		return "?"
	}
	names := map[string]string{"f": "Fall", "s": "Spring", "u": "Summer"}
	name, ok := names[strings.ToLower(s.Semester)]
	if !ok {
		name = strings.ToUpper(s.Semester)
	}
	return fmt.Sprintf("%d-%d %s", s.Year, s.Year+1, name)
}

type Client struct {
	Http *resty.Client

	store   sessionstore.Store[Session]
	session Session

	baseUrlOverride string
}

type ClientOptions struct {
	Year     int
	Semester string
	// overrides the default location under ~/.odtuclass, mainly for tests
	SessionPath string
	// overrides the derived per-semester origin, mainly for tests
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	sessionPath := opts.SessionPath
	if sessionPath == "" {
		var err error
		sessionPath, err = sessionstore.DefaultPath(SessionFile)
		if err != nil {
			return nil, err
		}
	}

	client := resty.New()
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("accept", "application/json, text/javascript, */*; q=0.01")
	client.SetHeader("x-requested-with", "XMLHttpRequest")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	// cookies are tracked by hand on the session so login flows can
	// observe redirects; never auto-follow
	client.GetClient().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	telemetry.InstrumentResty(client, "scrapers/odtuclass/http")

	c := &Client{
		Http:  client,
		store: sessionstore.Open[Session](sessionPath),
		session: Session{
			Cookies:  map[string]string{},
			Year:     opts.Year,
			Semester: opts.Semester,
		},
	}
	if opts.BaseUrl != "" {
		c.baseUrlOverride = opts.BaseUrl
	}
	return c, nil
}

// Session returns a snapshot of the current session state.
func (c *Client) Session() Session {
	return c.session
}

func (c *Client) baseUrl() string {
	if c.baseUrlOverride != "" {
		return c.baseUrlOverride
	}
	return c.session.BaseUrl()
}

func (c *Client) cookieHeader() string {
	pairs := make([]string, 0, len(c.session.Cookies))
	for name, value := range c.session.Cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

func (c *Client) collectCookies(res *resty.Response) {
	for _, cookie := range res.Cookies() {
		if cookie.Name == "" {
			continue
		}
		c.session.Cookies[cookie.Name] = cookie.Value
	}
}

// execute performs one request, replaying tracked cookies and following
// redirects by hand so cookies set mid-redirect are preserved. The loop
// is capped: an over-long chain falls through with the last response.
// Returns the response and the landing URL.
func (c *Client) execute(ctx context.Context, method, rawurl string, build func(*resty.Request)) (*resty.Response, string, error) {
	req := c.Http.R().SetContext(ctx)
	if cookie := c.cookieHeader(); cookie != "" {
		req.SetHeader("cookie", cookie)
	}
	if build != nil {
		build(req)
	}
	res, err := req.Execute(method, rawurl)
	if err != nil {
		return nil, "", err
	}
	c.collectCookies(res)

	finalUrl := rawurl
	for hop := 0; hop < maxRedirects; hop++ {
		if res.StatusCode() < 300 || res.StatusCode() >= 400 {
			break
		}
		location := res.Header().Get("Location")
		if location == "" {
			break
		}
		next, err := resolveReference(finalUrl, location)
		if err != nil {
			return nil, "", &TransportError{Message: fmt.Sprintf("malformed redirect target %q", location)}
		}

		redirect := c.Http.R().SetContext(ctx)
		if cookie := c.cookieHeader(); cookie != "" {
			redirect.SetHeader("cookie", cookie)
		}
		res, err = redirect.Get(next)
		if err != nil {
			return nil, "", err
		}
		c.collectCookies(res)
		finalUrl = next
	}

	if res.StatusCode() >= 400 {
		return nil, "", &TransportError{
			Status:  res.StatusCode(),
			Message: res.Status(),
		}
	}
	return res, finalUrl, nil
}

func resolveReference(base, location string) (string, error) {
	baseUrl, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseUrl.ResolveReference(ref).String(), nil
}

var moodleConfigRegex = regexp.MustCompile(`(?s)M\.cfg\s*=\s*(\{.*?\});`)

// Login runs the three-step form login: scrape the logintoken off the
// login page, post credentials, then pull the sesskey and user id out
// of the authenticated landing page. On success the session persists.
func (c *Client) Login(ctx context.Context, username, password string, onProgress func(string)) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	base := c.baseUrl()
	if base == "" {
		return &AuthError{Message: "no semester selected"}
	}

	progress(onProgress, "Connecting to ODTUClass...")
	res, _, err := c.execute(ctx, resty.MethodGet, base+"/login/index.php", nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login page html")
		return err
	}
	logintoken := doc.Find("input[name=logintoken]").AttrOr("value", "")
	if logintoken == "" {
		span.SetStatus(codes.Error, "failed to find login token")
		return &AuthError{Message: "could not find logintoken on login page"}
	}

	progress(onProgress, "Authenticating...")
	res, finalUrl, err := c.execute(ctx, resty.MethodPost, base+"/login/index.php", func(r *resty.Request) {
		r.SetFormData(map[string]string{
			"username":   username,
			"password":   password,
			"logintoken": logintoken,
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}
	// a successful login redirects away from the login path; the
	// "testsession" bounce is a post-login cookie check, not a failure
	if strings.Contains(finalUrl, "/login/index.php") && !strings.Contains(finalUrl, "testsession") {
		errDoc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		message := "login failed"
		if err == nil {
			if text := textutil.CollapseSpace(errDoc.Find("a#loginerrormessage").Text()); text != "" {
				message = text
			}
		}
		span.SetStatus(codes.Error, message)
		return &AuthError{Message: message}
	}

	progress(onProgress, "Loading profile...")
	res, _, err = c.execute(ctx, resty.MethodGet, base+"/my/", nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request dashboard after login")
		return err
	}
	err = c.extractSessionInfo(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract session config")
		return err
	}

	c.session.Username = username
	c.session.Password = password
	return c.store.Save(c.session)
}

// extractSessionInfo scans the script tags of the authenticated landing
// page for the embedded M.cfg configuration blob.
func (c *Client) extractSessionInfo(dashboard []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(dashboard))
	if err != nil {
		return &AuthError{Message: "could not parse dashboard html"}
	}
	var rawConfig string
	for _, script := range doc.Find("script").Nodes {
		groups := moodleConfigRegex.FindStringSubmatch(htmlutil.GetText(script))
		if len(groups) == 2 {
			rawConfig = groups[1]
			break
		}
	}
	if rawConfig == "" {
		return &AuthError{Message: "could not extract session config from dashboard"}
	}
	var cfg struct {
		Sesskey string `json:"sesskey"`
		UserId  int64  `json:"userId"`
	}
	if err := json.Unmarshal([]byte(rawConfig), &cfg); err != nil {
		return &AuthError{Message: "could not parse session config"}
	}
	if cfg.Sesskey == "" {
		return &AuthError{Message: "no sesskey found in session config"}
	}
	c.session.Sesskey = cfg.Sesskey
	c.session.UserId = cfg.UserId
	return nil
}

// EnsureAuthenticated makes the session usable without a network call:
// either it already holds a sesskey, or the persisted session does.
func (c *Client) EnsureAuthenticated() error {
	if c.session.Authenticated() {
		return nil
	}
	loaded, ok := c.store.Load()
	if ok && loaded.Authenticated() {
		if loaded.Cookies == nil {
			loaded.Cookies = map[string]string{}
		}
		c.session = loaded
		return nil
	}
	return &AuthError{Message: "not logged in, run: odtu login"}
}

// IsAuthenticated probes the backend to check the sesskey is still live.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if c.session.Sesskey == "" {
		return false
	}
	info, err := c.SiteInfo(ctx)
	return err == nil && info.UserId != 0
}

func (c *Client) Logout() error {
	err := c.store.Clear()
	c.session = Session{
		Cookies:  map[string]string{},
		Year:     c.session.Year,
		Semester: c.session.Semester,
	}
	return err
}

// SwitchSemester re-logs the stored credentials in to another academic
// term. Each term lives on its own host, so a fresh login is required.
func (c *Client) SwitchSemester(ctx context.Context, year int, semester string) error {
	if c.session.Username == "" || c.session.Password == "" {
		return &AuthError{Message: "no stored credentials, run: odtu login"}
	}
	c.session.Year = year
	c.session.Semester = semester
	return c.relogin(ctx)
}

func (c *Client) canRelogin() bool {
	return c.session.Username != "" && c.session.Password != "" &&
		c.session.Year != 0 && c.session.Semester != ""
}

func (c *Client) relogin(ctx context.Context) error {
	c.session.Cookies = map[string]string{}
	c.session.Sesskey = ""
	c.session.UserId = 0
	return c.Login(ctx, c.session.Username, c.session.Password, nil)
}

// PageHtml fetches a page relative to the service origin. Landing back
// on the login path means the session expired: re-login once and retry.
func (c *Client) PageHtml(ctx context.Context, path string) (string, error) {
	return c.pageHtml(ctx, path, false)
}

func (c *Client) pageHtml(ctx context.Context, path string, retried bool) (string, error) {
	res, finalUrl, err := c.execute(ctx, resty.MethodGet, c.baseUrl()+path, nil)
	if err != nil {
		return "", err
	}
	if !retried && strings.Contains(finalUrl, "/login/index.php") && c.canRelogin() {
		if err := c.relogin(ctx); err == nil {
			return c.pageHtml(ctx, path, true)
		}
		// re-login failed: hand back whatever we got
	}
	return string(res.Body()), nil
}

func progress(onProgress func(string), message string) {
	if onProgress != nil {
		onProgress(message)
	}
}
