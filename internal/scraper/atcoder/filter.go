package atcoder

import "strings"

type Mode string

const (
	ModeAll      Mode = "all"
	ModeAC       Mode = "ac"
	ModeLatestAC Mode = "latest-ac"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeAll, ModeAC, ModeLatestAC:
		return true
	}
	return false
}

// IsAC reports whether a result cell counts as accepted. Partial
// verdicts like "AC × 2" still count.
func IsAC(result string) bool {
	return strings.Contains(strings.ToUpper(result), "AC")
}

// FilterMode applies the configured collection mode to a batch of
// submission details.
func FilterMode(items []SubmissionDetail, mode Mode) []SubmissionDetail {
	switch mode {
	case ModeAC:
		var out []SubmissionDetail
		for _, item := range items {
			if IsAC(item.Result) {
				out = append(out, item)
			}
		}
		return out
	case ModeLatestAC:
		var accepted []SubmissionDetail
		for _, item := range items {
			if IsAC(item.Result) {
				accepted = append(accepted, item)
			}
		}
		return LatestACPerTask(accepted)
	}
	return items
}

// LatestACPerTask keeps the submission with the highest id per
// (user, task) pair, in first-seen key order. Rows without a task id
// cannot be grouped and are dropped.
func LatestACPerTask(items []SubmissionDetail) []SubmissionDetail {
	type key struct {
		user string
		task string
	}
	best := map[key]SubmissionDetail{}
	var order []key

	for _, item := range items {
		if item.Task == "" {
			continue
		}
		k := key{user: strings.ToLower(item.User), task: item.Task}
		prev, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = item
			continue
		}
		if item.ID > prev.ID {
			best[k] = item
		}
	}

	out := make([]SubmissionDetail, len(order))
	for i, k := range order {
		out[i] = best[k]
	}
	return out
}
