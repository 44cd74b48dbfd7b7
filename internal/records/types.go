package records

import "strings"

// Source tags record which collection channel produced a submission
// row. A row seen by both channels carries both tags.
const (
	SourceSelf = "me"
	SourceTop  = "top"
)

// SelfSentinel marks rows scraped from the logged-in "my submissions"
// listing when the account's handle is not yet known.
const SelfSentinel = "__self__"

// Submission is one row of a contest submission listing, optionally
// carrying the source code fetched from the detail page.
type Submission struct {
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
	// SelfUserKey is set when the row was scraped from a page that only
	// the logged-in account can see. It is used later to infer whose
	// session produced the data.
	SelfUserKey string
	Sources     []string
}

type Task struct {
	ID            string
	Title         string
	URL           string
	StatementText string
	TimeLimit     string
	MemoryLimit   string
}

type User struct {
	Name string
	Rank string
}

type Window struct {
	Start int64
	End   int64
}

type ProgressState struct {
	Contest  string
	Text     string
	IsError  bool
	Done     bool
	Running  bool
	Progress float64
}

type UpsertStats struct {
	Added   int
	Updated int
}

type Counts struct {
	Submissions int64
	Tasks       int64
	Users       int64
}

// CanonicalUser normalizes a handle for comparisons and map keys.
// AtCoder handles are case-insensitive.
func CanonicalUser(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
