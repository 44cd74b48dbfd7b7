package exportcache

import (
	"strings"
	"time"

	"sessionscout-backend/internal/records"
)

// Payload is the serialized form of one contest's collected data, the
// thing a review prompt or a download is built from.
type Payload struct {
	Contest             string              `json:"contest"`
	ContestWindow       *WindowPayload      `json:"contestWindow"`
	SelfUser            string              `json:"selfUser"`
	GeneratedAt         string              `json:"generatedAt"`
	Tasks               []records.Task      `json:"tasks"`
	TopUsers            []records.User      `json:"topUsers"`
	MySubmissions       []SubmissionPayload `json:"mySubmissions"`
	TopUsersSubmissions []SubmissionPayload `json:"topUsersSubmissions"`
}

type WindowPayload struct {
	StartAt string `json:"startAt"`
	EndAt   string `json:"endAt"`
}

type SubmissionPayload struct {
	SubmissionID  int64  `json:"submissionId"`
	User          string `json:"user"`
	Task          string `json:"task"`
	Result        string `json:"result"`
	Score         string `json:"score"`
	Language      string `json:"language"`
	ExecutionTime string `json:"executionTime"`
	Memory        string `json:"memory"`
	SubmittedAt   string `json:"submittedAt"`
	Code          string `json:"code"`
	// Rank is only set on top-user rows, from the resolved standings.
	Rank string `json:"rank,omitempty"`
}

func submissionPayload(sub records.Submission) SubmissionPayload {
	return SubmissionPayload{
		SubmissionID:  sub.ID,
		User:          sub.User,
		Task:          sub.Task,
		Result:        sub.Result,
		Score:         sub.Score,
		Language:      sub.Language,
		ExecutionTime: sub.ExecutionTime,
		Memory:        sub.Memory,
		SubmittedAt:   sub.SubmittedAt,
		Code:          sub.Code,
	}
}

var submittedAtLayouts = []string{
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

func parseSubmittedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range submittedAtLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// filterByWindow keeps submissions made inside the contest window.
// Rows whose timestamp cannot be parsed are excluded rather than
// guessed in, since the window exists to cut out practice-mode runs.
func filterByWindow(subs []SubmissionPayload, window records.Window) []SubmissionPayload {
	start := time.Unix(window.Start, 0)
	end := time.Unix(window.End, 0)

	out := make([]SubmissionPayload, 0, len(subs))
	for _, sub := range subs {
		at, ok := parseSubmittedAt(sub.SubmittedAt)
		if !ok {
			continue
		}
		if at.Before(start) || at.After(end) {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// pickSelfUser resolves whose submissions the "mine" pool belongs to.
// An explicit preference wins; otherwise the handle occurring most
// often in the pool does, as a recovery from historical rows saved
// under different sessions.
func pickSelfUser(pool []records.Submission, preferred string) string {
	prefKey := records.CanonicalUser(preferred)
	if prefKey != "" {
		for _, sub := range pool {
			if records.CanonicalUser(sub.User) == prefKey {
				return sub.User
			}
		}
		return preferred
	}

	counts := map[string]int{}
	firstSeen := map[string]string{}
	for _, sub := range pool {
		key := records.CanonicalUser(sub.User)
		if key == "" {
			continue
		}
		counts[key]++
		if _, ok := firstSeen[key]; !ok {
			firstSeen[key] = sub.User
		}
	}

	var best string
	bestCount := 0
	for key, count := range counts {
		if count > bestCount {
			best = key
			bestCount = count
		}
	}
	if best != "" {
		return firstSeen[best]
	}
	return preferred
}
