package studentportal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"odtucli/lib/sessionstore"
	"odtucli/lib/telemetry"
)

var tracer = otel.Tracer("scrapers/studentportal")

// SessionFile is the fixed per-user location of the persisted portal
// session, relative to the configuration directory.
const SessionFile = "student-session.json"

const defaultBaseUrl = "https://student.metu.edu.tr"

const signinPath = "/sso/backend/request/user/signin"
const menuPath = "/portal/backend/request/route/get_menu"
const contentPath = "/portal/backend/request/route/get_content"

// app id of the Student Information report behind the SSO hop
const studentInfoApp = "61"

// Session state for the student portal. The origin is fixed; only the
// token and the credentials enabling silent re-login persist.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Client struct {
	Http    *resty.Client
	BaseUrl string

	store   sessionstore.Store[Session]
	session Session
}

type ClientOptions struct {
	// overrides the fixed portal origin, mainly for tests
	BaseUrl string
	// overrides the default location under ~/.odtuclass, mainly for tests
	SessionPath string
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
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko)")
	// the SSO hop inspects Location headers and carries cookies by hand
	client.GetClient().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	telemetry.InstrumentResty(client, "scrapers/studentportal/http")

	return &Client{
		Http:    client,
		BaseUrl: baseUrl,
		store:   sessionstore.Open[Session](sessionPath),
	}, nil
}

func (c *Client) Session() Session {
	return c.session
}

// Login exchanges credentials for an opaque token carried in the
// response headers. The companion Token-Valid header gates success.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json;charset=UTF-8").
		SetHeader("origin", c.BaseUrl).
		SetHeader("referer", c.BaseUrl+"/sso/").
		SetBody(map[string]string{
			"username": username,
			"password": password,
		}).
		Post(signinPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make signin request")
		return err
	}

	token := res.Header().Get("Token")
	valid := res.Header().Get("Token-Valid")
	if token == "" || valid != "1" {
		span.SetStatus(codes.Error, "signin rejected")
		return &AuthError{Message: "student portal login failed, check your credentials"}
	}

	c.session = Session{
		Token:    token,
		Username: username,
		Password: password,
	}
	return c.store.Save(c.session)
}

// EnsureAuthenticated proves the token is still live with a cheap probe
// and silently re-logs-in from stored credentials when it isn't.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	if c.session.Token == "" {
		// a persisted session without credentials cannot be refreshed
		// once the token dies, so it is not adopted at all
		if loaded, ok := c.store.Load(); ok &&
			loaded.Token != "" && loaded.Username != "" && loaded.Password != "" {
			c.session = loaded
		}
	}
	if c.session.Token != "" {
		_, err := c.portalPost(ctx, menuPath, nil)
		if err == nil {
			return nil
		}
	}
	if c.session.Username == "" || c.session.Password == "" {
		return &AuthError{Message: "not logged in to student portal, run: odtu login"}
	}
	return c.Login(ctx, c.session.Username, c.session.Password)
}

func (c *Client) Logout() error {
	err := c.store.Clear()
	c.session = Session{}
	return err
}

func (c *Client) portalPost(ctx context.Context, path string, body any) (json.RawMessage, error) {
	req := c.Http.R().
		SetContext(ctx).
		SetHeader("Token", c.session.Token).
		SetHeader("content-type", "application/json;charset=UTF-8").
		SetHeader("origin", c.BaseUrl).
		SetHeader("referer", c.BaseUrl+"/portal/")
	if body != nil {
		req.SetBody(body)
	}
	res, err := req.Post(path)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, &APIError{Message: "portal API error", Status: res.StatusCode()}
	}
	return json.RawMessage(res.Body()), nil
}

// Profile returns the portal menu payload, which carries the student's
// profile block.
func (c *Client) Profile(ctx context.Context) (json.RawMessage, error) {
	err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	return c.portalPost(ctx, menuPath, nil)
}

// reportDocument performs the four-step delegated login required to
// reach the legacy report application, and fetches the report page:
// request a content package, scrape its auto-submitting login form,
// submit the form without following the redirect, then follow the
// redirect by hand with the cookies the submission set. The hop is
// repeated on every call since the package is session-scoped and
// short-lived.
func (c *Client) reportDocument(ctx context.Context) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:reportDocument")
	defer span.End()

	err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	// step 1: content package descriptor
	data, err := c.portalPost(ctx, contentPath, map[string]any{
		"app":            studentInfoApp,
		"additionalInfo": false,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request content package")
		return nil, err
	}
	var content struct {
		Pkg string `json:"pkg"`
	}
	if json.Unmarshal(data, &content) != nil || content.Pkg == "" {
		span.SetStatus(codes.Error, "no package identifier")
		return nil, &APIError{Message: "could not get student information package"}
	}

	// step 2: auto-login form
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("pkg", content.Pkg).
		Get("/portal/content.php")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch auto-login form")
		return nil, err
	}
	form, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse auto-login form html")
		return nil, err
	}
	action := form.Find("form#autologin").AttrOr("action", "")
	if action == "" {
		span.SetStatus(codes.Error, "no auto-login form action")
		return nil, &APIError{Message: "could not find auto-login form"}
	}
	fields := map[string]string{}
	form.Find("form#autologin input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name != "" {
			fields[name] = input.AttrOr("value", "")
		}
	})

	// step 3: submit, capture cookies, do not follow
	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(fields).
		Post(action)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit auto-login form")
		return nil, err
	}
	cookies := res.Cookies()
	location := res.Header().Get("Location")
	if location == "" {
		span.SetStatus(codes.Error, "auto-login did not redirect")
		return nil, &APIError{Message: "student information redirect failed"}
	}
	target, err := resolveReference(action, location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed redirect target")
		return nil, &TransportError{Message: "malformed redirect target"}
	}

	// step 4: follow the redirect with the captured cookies
	req := c.Http.R().SetContext(ctx)
	for _, cookie := range cookies {
		req.SetCookie(cookie)
	}
	res, err = req.Get(target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch report page")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse report page html")
		return nil, err
	}
	return doc, nil
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
