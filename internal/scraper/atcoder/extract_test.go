package atcoder

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractTaskList(t *testing.T) {
	doc := mustDoc(t, `
<table>
<tr>
	<td><a href="/contests/abc300/tasks/abc300_a">A</a></td>
	<td><a href="/contests/abc300/tasks/abc300_a">N-choice question</a></td>
</tr>
<tr>
	<td><a href="/contests/abc300/tasks/abc300_b">B</a></td>
	<td><a href="/contests/abc300/tasks/abc300_b">Same Map in the RPG World</a></td>
</tr>
<tr>
	<td><a href="/contests/abc300/tasks/abc300_a?lang=en">ignored, query suffix</a></td>
	<td><a href="/contests/abc999/tasks/abc999_a">ignored, other contest</a></td>
</tr>
</table>`)

	tasks := ExtractTaskList(doc, "abc300")
	require.Len(t, tasks, 2)
	require.Equal(t, "abc300_a", tasks[0].ID)
	require.Equal(t, "A", tasks[0].Title)
	require.Equal(t, "/contests/abc300/tasks/abc300_a", tasks[0].URL)
	require.Equal(t, "abc300_b", tasks[1].ID)
}

func TestExtractTaskDetail(t *testing.T) {
	{
		doc := mustDoc(t, `
<span class="h2">A - N-choice question</span>
<div id="task-statement">
	<p>Time Limit: 2 sec / Memory Limit: 1024 MB</p>
	<p>Given an integer N, answer the question.</p>
</div>`)
		detail := ExtractTaskDetail(doc)
		require.Equal(t, "A - N-choice question", detail.Title)
		require.Equal(t, "2 sec", detail.TimeLimit)
		require.Equal(t, "1024 MB", detail.MemoryLimit)
		require.Contains(t, detail.StatementText, "Given an integer N")
	}
	{
		// japanese limit line, h2 fallback
		doc := mustDoc(t, `
<h2>A - 問題</h2>
<div id="task-statement">実行時間制限: 2 sec / メモリ制限: 1024 MB</div>`)
		detail := ExtractTaskDetail(doc)
		require.Equal(t, "A - 問題", detail.Title)
		require.Equal(t, "2 sec", detail.TimeLimit)
		require.Equal(t, "1024 MB", detail.MemoryLimit)
	}
	{
		// the statement body directly follows the limit line; the
		// memory limit must stop at the line break instead of running
		// into the body text
		doc := mustDoc(t, `
<span class="h2">B - Same Map</span>
<div id="task-statement">
	<p>Time Limit: 2 sec / Memory Limit: 1024 MB</p>
	<p>Score: 200 points</p>
	<p>Two grids are given.</p>
</div>`)
		detail := ExtractTaskDetail(doc)
		require.Equal(t, "2 sec", detail.TimeLimit)
		require.Equal(t, "1024 MB", detail.MemoryLimit)
		require.Contains(t, detail.StatementText, "1024 MB Score: 200 points")
	}
	{
		// no limit line at all
		doc := mustDoc(t, `<h1>Hello</h1><div id="task-statement">nothing here</div>`)
		detail := ExtractTaskDetail(doc)
		require.Empty(t, detail.TimeLimit)
		require.Empty(t, detail.MemoryLimit)
	}
}

func TestExtractSubmissionIDs(t *testing.T) {
	doc := mustDoc(t, `
<table><tbody>
<tr><td><a href="/contests/abc300/submissions/1001">Detail</a></td></tr>
<tr><td><a href="/contests/abc300/submissions/1002">Detail</a></td></tr>
<tr><td><a href="/contests/abc300/submissions/1001">Detail</a></td></tr>
<tr><td><a href="/contests/abc300/submissions/me">not an id</a></td></tr>
<tr><td><a href="/contests/abc999/submissions/5">other contest</a></td></tr>
</tbody></table>`)

	ids := ExtractSubmissionIDs(doc, "abc300")
	require.Equal(t, []int64{1001, 1002}, ids)
}

func TestExtractSubmissionDetail(t *testing.T) {
	doc := mustDoc(t, `
<nav><a href="/users/viewer_self">viewer_self</a></nav>
<a href="/contests/abc300/tasks/abc300_a">A - N-choice question</a>
<table>
<tr><th>Submission Time</th><td>2023-04-29 21:05:12+0900</td></tr>
<tr><th>Task</th><td>A - N-choice question</td></tr>
<tr><th>User</th><td><a href="/users/tourist">tourist</a></td></tr>
<tr><th>Language</th><td>C++ 20 (gcc 12.2)</td></tr>
<tr><th>Score</th><td>100</td></tr>
<tr><th>Result</th><td><span>AC</span></td></tr>
<tr><th>Execution Time</th><td>1 ms</td></tr>
<tr><th>Memory</th><td>3616 KB</td></tr>
</table>
<pre id="submission-code">#include &lt;bits/stdc++.h&gt;&#13;
int main() {}</pre>`)

	detail := ExtractSubmissionDetail(doc, "abc300", 1001)
	require.Equal(t, int64(1001), detail.ID)
	// labeled row wins over the nav bar profile link
	require.Equal(t, "tourist", detail.User)
	require.Equal(t, "abc300_a", detail.Task)
	require.Equal(t, "AC", detail.Result)
	require.Equal(t, "100", detail.Score)
	require.Equal(t, "C++ 20 (gcc 12.2)", detail.Language)
	require.Equal(t, "1 ms", detail.ExecutionTime)
	require.Equal(t, "3616 KB", detail.Memory)
	require.Equal(t, "2023-04-29 21:05:12+0900", detail.SubmittedAt)
	require.Contains(t, detail.Code, "#include <bits/stdc++.h>")
	require.NotContains(t, detail.Code, "\r\n")
}

func TestExtractSubmissionDetailUserFallback(t *testing.T) {
	doc := mustDoc(t, `
<a href="/users/snuke">snuke</a>
<pre class="prettyprint">print(1)</pre>`)

	detail := ExtractSubmissionDetail(doc, "abc300", 7)
	require.Equal(t, "snuke", detail.User)
	require.Equal(t, "print(1)", detail.Code)
}

func TestExtractStandingsDoc(t *testing.T) {
	doc := mustDoc(t, `
<nav><a href="/users/viewer_self">viewer_self</a></nav>
<table><tbody>
<tr><td>1</td><td><a href="/users/tourist">tourist</a></td></tr>
<tr><td>2</td><td><a href="/users/snuke">snuke</a></td></tr>
<tr><td>3</td><td><a href="/users/chokudai">chokudai</a></td></tr>
</tbody></table>`)

	rows := ExtractStandingsDoc(doc, 2)
	require.Equal(t, []StandingsRow{
		{User: "tourist", Rank: "1"},
		{User: "snuke", Rank: "2"},
	}, rows)
}

func TestExtractContestWindow(t *testing.T) {
	{
		html := `<script>
var startTime = moment("2023-04-29T21:00:00+09:00");
var endTime = moment("2023-04-29T22:40:00+09:00");
</script>`
		window, ok := ExtractContestWindow(html, nil)
		require.True(t, ok)
		require.Equal(t, 100*time.Minute, window.End.Sub(window.Start))
	}
	{
		html := `
<div class="contest-duration">
	<a><time class="fixtime-full">2023-04-29 21:00:00+0900</time></a> -
	<a><time class="fixtime-full">2023-04-29 22:40:00+0900</time></a>
</div>`
		window, ok := ExtractContestWindow(html, mustDoc(t, html))
		require.True(t, ok)
		require.Equal(t, 100*time.Minute, window.End.Sub(window.Start))
	}
	{
		// one bound only: all or nothing
		html := `<script>var startTime = moment("2023-04-29T21:00:00+09:00");</script>`
		_, ok := ExtractContestWindow(html, mustDoc(t, html))
		require.False(t, ok)
	}
}

func TestExtractLoginUser(t *testing.T) {
	html := `<script>var userScreenName = "tourist";</script>`
	require.Equal(t, "tourist", ExtractLoginUser(html))
	require.Empty(t, ExtractLoginUser(`<script>var somethingElse = 1;</script>`))
}
