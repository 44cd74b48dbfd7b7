// extract.go contains the pure HTML extractors. They take parsed
// documents and never touch the network, so layout changes can be
// covered by fixture tests.

package atcoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sessionscout-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// a full listing page; fewer rows means the last page
const FullPage = 20

type TaskRow struct {
	ID    string
	Title string
	URL   string
}

type TaskDetail struct {
	Title         string
	StatementText string
	TimeLimit     string
	MemoryLimit   string
}

type SubmissionDetail struct {
	ID            int64
	User          string
	Task          string
	Result        string
	Score         string
	Language      string
	ExecutionTime string
	Memory        string
	SubmittedAt   string
	Code          string
}

type StandingsRow struct {
	User string
	Rank string
}

type Window struct {
	Start time.Time
	End   time.Time
}

var userHrefRegex = regexp.MustCompile(`^/users/([A-Za-z0-9_]+)$`)

// ExtractTaskList pulls the task ids and titles out of a
// `/contests/<c>/tasks` listing. Duplicate anchors (the table links
// both the id and title cells) are collapsed to the first occurrence.
func ExtractTaskList(doc *goquery.Document, contest string) []TaskRow {
	prefix := fmt.Sprintf("/contests/%s/tasks/", contest)
	hrefRegex := regexp.MustCompile(
		fmt.Sprintf(`^/contests/%s/tasks/([^/?#]+)$`, regexp.QuoteMeta(contest)),
	)

	var tasks []TaskRow
	seen := map[string]bool{}
	doc.Find(fmt.Sprintf(`a[href^="%s"]`, prefix)).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		groups := hrefRegex.FindStringSubmatch(href)
		if len(groups) < 2 {
			return
		}
		id := groups[1]
		title := htmlutil.SelectionText(sel)
		if seen[id] {
			// a later anchor may carry the title the first one lacked
			if title != "" {
				for i := range tasks {
					if tasks[i].ID == id && tasks[i].Title == "" {
						tasks[i].Title = title
					}
				}
			}
			return
		}
		seen[id] = true
		tasks = append(tasks, TaskRow{
			ID:    id,
			Title: title,
			URL:   href,
		})
	})
	return tasks
}

var (
	enLimitRegex = regexp.MustCompile(`(?i)Time Limit\s*[:：]?\s*([^/]+?)\s*/\s*Memory Limit\s*[:：]?\s*([^\n]+)`)
	jpLimitRegex = regexp.MustCompile(`実行時間制限\s*[:：]?\s*([^/]+?)\s*/\s*メモリ制限\s*[:：]?\s*([^\n]+)`)
)

// ExtractTaskDetail reads a task page. Limits come from the
// "Time Limit ... / Memory Limit ..." line in either site language and
// stay empty when neither variant is present.
func ExtractTaskDetail(doc *goquery.Document) TaskDetail {
	var out TaskDetail

	title := doc.Find("span.h2").First()
	if title.Length() == 0 {
		title = doc.Find("h2").First()
	}
	if title.Length() == 0 {
		title = doc.Find("h1").First()
	}
	out.Title = htmlutil.SelectionText(title)

	statement := doc.Find("#task-statement").First()
	var rawStatement string
	if statement.Length() > 0 {
		rawStatement = statement.Text()
		out.StatementText = htmlutil.CollapseSpace(rawStatement)
	}

	// limits are matched before whitespace collapsing: the memory limit
	// capture runs to end of line, and collapsing would erase the line
	// break that stops it ahead of the statement body
	baseText := rawStatement
	if baseText == "" {
		baseText = doc.Find("body").Text()
	}
	groups := enLimitRegex.FindStringSubmatch(baseText)
	if groups == nil {
		groups = jpLimitRegex.FindStringSubmatch(baseText)
	}
	if len(groups) >= 3 {
		out.TimeLimit = strings.TrimSpace(groups[1])
		out.MemoryLimit = strings.TrimSpace(groups[2])
	}

	return out
}

// ExtractSubmissionIDs pulls numeric submission ids out of a listing
// page, deduplicated in page order.
func ExtractSubmissionIDs(doc *goquery.Document, contest string) []int64 {
	prefix := fmt.Sprintf("/contests/%s/submissions/", contest)
	hrefRegex := regexp.MustCompile(
		fmt.Sprintf(`^/contests/%s/submissions/(\d+)$`, regexp.QuoteMeta(contest)),
	)

	var ids []int64
	seen := map[int64]bool{}
	doc.Find(fmt.Sprintf(`a[href^="%s"]`, prefix)).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		groups := hrefRegex.FindStringSubmatch(href)
		if len(groups) < 2 {
			return
		}
		id, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids
}

func tableValue(doc *goquery.Document, labels []string) string {
	var out string
	doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		th := tr.Find("th").First()
		td := tr.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return true
		}
		key := htmlutil.SelectionText(th)
		for _, label := range labels {
			if strings.EqualFold(key, label) {
				out = htmlutil.SelectionText(td)
				return false
			}
		}
		return true
	})
	return out
}

func userFromSubmissionTable(doc *goquery.Document) string {
	labels := []string{"User", "ユーザ", "ユーザー"}
	var out string
	doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		th := tr.Find("th").First()
		td := tr.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return true
		}
		key := htmlutil.SelectionText(th)
		matched := false
		for _, label := range labels {
			if strings.EqualFold(key, label) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}
		link := td.Find(`a[href^="/users/"]`).First()
		if href, ok := link.Attr("href"); ok {
			if groups := userHrefRegex.FindStringSubmatch(href); len(groups) >= 2 {
				out = groups[1]
				return false
			}
		}
		out = htmlutil.SelectionText(td)
		return out == ""
	})
	return out
}

// ExtractSubmissionDetail reads one submission page. The user comes
// from the labeled info table first; the first profile anchor on the
// page is only a fallback since the nav bar links the viewer's own
// profile.
func ExtractSubmissionDetail(doc *goquery.Document, contest string, id int64) SubmissionDetail {
	out := SubmissionDetail{ID: id}

	out.User = userFromSubmissionTable(doc)
	if out.User == "" {
		link := doc.Find(`a[href^="/users/"]`).First()
		if href, ok := link.Attr("href"); ok {
			if groups := userHrefRegex.FindStringSubmatch(href); len(groups) >= 2 {
				out.User = groups[1]
			}
		}
	}

	taskRegex := regexp.MustCompile(
		fmt.Sprintf(`^/contests/%s/tasks/([^/?#]+)`, regexp.QuoteMeta(contest)),
	)
	taskLink := doc.Find(fmt.Sprintf(`a[href^="/contests/%s/tasks/"]`, contest)).First()
	if href, ok := taskLink.Attr("href"); ok {
		if groups := taskRegex.FindStringSubmatch(href); len(groups) >= 2 {
			out.Task = groups[1]
		}
	}

	out.Code = extractCode(doc)

	out.Result = tableValue(doc, []string{"Result", "結果"})
	out.Score = tableValue(doc, []string{"Score", "スコア"})
	out.Language = tableValue(doc, []string{"Language", "言語"})
	out.ExecutionTime = tableValue(doc, []string{"Execution Time", "実行時間"})
	out.Memory = tableValue(doc, []string{"Memory", "メモリ"})
	out.SubmittedAt = tableValue(doc, []string{"Submission Time", "Submitted", "提出日時"})

	return out
}

func extractCode(doc *goquery.Document) string {
	candidates := []*goquery.Selection{
		doc.Find("#submission-code").First(),
		doc.Find("pre#submission-code").First(),
		doc.Find("pre.prettyprint").First(),
		doc.Find("pre").First(),
	}
	for _, c := range candidates {
		if c.Length() == 0 {
			continue
		}
		target := c
		if !c.Is("pre") {
			pre := c.Find("pre").First()
			if pre.Length() == 0 {
				continue
			}
			target = pre
		}
		code := target.Text()
		if strings.TrimSpace(code) == "" {
			continue
		}
		return strings.ReplaceAll(code, "\r\n", "\n")
	}
	return ""
}

// standings/json feed shape
type standingsFeed struct {
	StandingsData []struct {
		UserScreenName string `json:"UserScreenName"`
		Rank           int64  `json:"Rank"`
	} `json:"StandingsData"`
}

// ExtractStandingsDoc is the HTML fallback when the JSON feed is
// unavailable. It reads the first table, one user link per row, rank
// from the leading cell, truncated to limit.
func ExtractStandingsDoc(doc *goquery.Document, limit int) []StandingsRow {
	var rows []StandingsRow
	seen := map[string]bool{}

	table := doc.Find("table").First()
	table.Find("tbody tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		link := tr.Find(`a[href^="/users/"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		groups := userHrefRegex.FindStringSubmatch(href)
		if len(groups) < 2 || seen[groups[1]] {
			return true
		}
		seen[groups[1]] = true
		rows = append(rows, StandingsRow{
			User: groups[1],
			Rank: htmlutil.SelectionText(tr.Find("td").First()),
		})
		return limit <= 0 || len(rows) < limit
	})

	if len(rows) > 0 {
		return rows
	}

	// no table rows matched: fall back to any profile anchors, which at
	// least yields the users even without ranks
	doc.Find(`a[href^="/users/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		groups := userHrefRegex.FindStringSubmatch(href)
		if len(groups) < 2 || seen[groups[1]] {
			return true
		}
		seen[groups[1]] = true
		rows = append(rows, StandingsRow{User: groups[1]})
		return limit <= 0 || len(rows) < limit
	})
	return rows
}

var (
	startTimeRegex = regexp.MustCompile(`startTime\s*=\s*moment\("([^"]+)"\)`)
	endTimeRegex   = regexp.MustCompile(`endTime\s*=\s*moment\("([^"]+)"\)`)
)

var siteTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
}

func parseSiteTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range siteTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractContestWindow finds the contest start and end times, from the
// `startTime = moment("...")` script literals first, then from the two
// `.contest-duration time` elements. It is all or nothing: a window
// with only one bound is useless for filtering.
func ExtractContestWindow(html string, doc *goquery.Document) (Window, bool) {
	var start, end time.Time
	var haveStart, haveEnd bool

	if groups := startTimeRegex.FindStringSubmatch(html); len(groups) >= 2 {
		start, haveStart = parseSiteTime(groups[1])
	}
	if groups := endTimeRegex.FindStringSubmatch(html); len(groups) >= 2 {
		end, haveEnd = parseSiteTime(groups[1])
	}

	if (!haveStart || !haveEnd) && doc != nil {
		times := doc.Find(".contest-duration time")
		if times.Length() >= 2 {
			if !haveStart {
				start, haveStart = parseSiteTime(htmlutil.SelectionText(times.Eq(0)))
			}
			if !haveEnd {
				end, haveEnd = parseSiteTime(htmlutil.SelectionText(times.Eq(1)))
			}
		}
	}

	if !haveStart || !haveEnd {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

var loginUserRegex = regexp.MustCompile(`var\s+userScreenName\s*=\s*"([^"]+)"`)

// ExtractLoginUser reads the logged-in handle out of the page's inline
// config script. Empty when the session is anonymous.
func ExtractLoginUser(html string) string {
	groups := loginUserRegex.FindStringSubmatch(html)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}
