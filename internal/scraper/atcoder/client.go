// client.go contains the session-authenticated access to the contest
// site itself. Orchestration (paging loops, politeness between users,
// cache decisions) lives in the pipeline package.

package atcoder

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"sessionscout-backend/internal/assert"
	"sessionscout-backend/internal/fetch"
	"sessionscout-backend/internal/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_get_standings = "client.get-standings"
	report_client_get_login     = "client.get-login-user"
)

const sessionCookieName = "REVEL_SESSION"

type ClientOptions struct {
	BaseUrl string
	// SessionCookie is the value of the site's login cookie. Anonymous
	// access works for public contests but hides /submissions/me.
	SessionCookie string
	// RequestInterval spaces out page fetches. Defaults to one second.
	RequestInterval time.Duration
	// Retry falls back to fetch.DefaultRetryPolicy when left zero.
	Retry fetch.RetryPolicy
}

type Client struct {
	baseUrl *url.URL
	http    *fetch.Client

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("atcoder", tel)

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.SessionCookie != "" {
		httpClient.SetCookie(&http.Cookie{
			Name:   sessionCookieName,
			Value:  opts.SessionCookie,
			Path:   "/",
			Domain: parsedBaseUrl.Hostname(),
		})
	}

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(time.Second * 30)

	interval := opts.RequestInterval
	if interval <= 0 {
		interval = time.Second
	}
	rateLimiter := rate.NewLimiter(rate.Every(interval), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	retry := opts.Retry
	if retry == (fetch.RetryPolicy{}) {
		retry = fetch.DefaultRetryPolicy()
	}

	c := &Client{
		baseUrl: parsedBaseUrl,
		http:    fetch.NewClient(httpClient, retry, tel),
		tel:     tel,
	}
	return c, nil
}

func parseDoc(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ListingPage is one page of a submission listing. The contest window
// and login handle are extracted opportunistically since the page
// carries them anyway.
type ListingPage struct {
	IDs       []int64
	Window    *Window
	LoginUser string
}

func (c *Client) listingPage(ctx context.Context, contest string, path string) (ListingPage, error) {
	html, err := c.http.Get(ctx, path)
	if err != nil {
		return ListingPage{}, err
	}
	doc, err := parseDoc(html)
	if err != nil {
		return ListingPage{}, fmt.Errorf("parse %s: %w", path, err)
	}

	page := ListingPage{
		IDs:       ExtractSubmissionIDs(doc, contest),
		LoginUser: ExtractLoginUser(html),
	}
	if window, ok := ExtractContestWindow(html, doc); ok {
		page.Window = &window
	}
	return page, nil
}

// MySubmissionsPage fetches one page of the logged-in account's own
// submission listing.
func (c *Client) MySubmissionsPage(ctx context.Context, contest string, page int) (ListingPage, error) {
	path := fmt.Sprintf("/contests/%s/submissions/me?page=%d", contest, page)
	return c.listingPage(ctx, contest, path)
}

// UserSubmissionsPage fetches one page of the public listing filtered
// to a single user.
func (c *Client) UserSubmissionsPage(ctx context.Context, contest string, user string, page int) (ListingPage, error) {
	path := fmt.Sprintf(
		"/contests/%s/submissions?f.Task=&f.LanguageName=&f.Status=&f.User=%s&page=%d",
		contest, url.QueryEscape(user), page,
	)
	return c.listingPage(ctx, contest, path)
}

func (c *Client) SubmissionDetail(ctx context.Context, contest string, id int64) (SubmissionDetail, error) {
	path := fmt.Sprintf("/contests/%s/submissions/%d", contest, id)
	html, err := c.http.Get(ctx, path)
	if err != nil {
		return SubmissionDetail{}, err
	}
	doc, err := parseDoc(html)
	if err != nil {
		return SubmissionDetail{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ExtractSubmissionDetail(doc, contest, id), nil
}

func (c *Client) TaskList(ctx context.Context, contest string) ([]TaskRow, error) {
	path := fmt.Sprintf("/contests/%s/tasks", contest)
	html, err := c.http.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := parseDoc(html)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ExtractTaskList(doc, contest), nil
}

func (c *Client) TaskDetail(ctx context.Context, contest string, taskId string) (TaskDetail, error) {
	path := fmt.Sprintf("/contests/%s/tasks/%s", contest, taskId)
	html, err := c.http.Get(ctx, path)
	if err != nil {
		return TaskDetail{}, err
	}
	doc, err := parseDoc(html)
	if err != nil {
		return TaskDetail{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return ExtractTaskDetail(doc), nil
}

// Standings fetches the full standings, preferring the JSON feed and
// falling back to scraping the HTML table when the feed is missing or
// empty. Cancellation is never swallowed by the fallback.
func (c *Client) Standings(ctx context.Context, contest string) ([]StandingsRow, error) {
	var feed standingsFeed
	err := c.http.GetJSON(ctx, fmt.Sprintf("/contests/%s/standings/json", contest), &feed)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		c.tel.ReportWarning(report_client_get_standings, fmt.Errorf("json feed: %w", err))
	}

	var rows []StandingsRow
	for _, entry := range feed.StandingsData {
		if entry.UserScreenName == "" {
			continue
		}
		rows = append(rows, StandingsRow{
			User: entry.UserScreenName,
			Rank: fmt.Sprintf("%d", entry.Rank),
		})
	}
	if len(rows) > 0 {
		return rows, nil
	}

	path := fmt.Sprintf("/contests/%s/standings", contest)
	html, err := c.http.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := parseDoc(html)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ExtractStandingsDoc(doc, 0), nil
}

// LoginUser fetches the contest top page and reads the logged-in
// handle from it. Empty without error when the session is anonymous.
func (c *Client) LoginUser(ctx context.Context, contest string) (string, error) {
	html, err := c.http.Get(ctx, fmt.Sprintf("/contests/%s", contest))
	if err != nil {
		c.tel.ReportWarning(report_client_get_login, err)
		return "", err
	}
	return ExtractLoginUser(html), nil
}
