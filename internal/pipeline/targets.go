package pipeline

import (
	"fmt"

	"sessionscout-backend/internal/records"
)

type TargetMode string

const (
	// TargetAbsolute selects n users starting at scoreboard rank k.
	TargetAbsolute TargetMode = "absolute"
	// TargetRelative selects up to n users starting k places above the
	// runner's own rank.
	TargetRelative TargetMode = "relative"
	// TargetManual uses an explicit handle list; the scoreboard is
	// only consulted to annotate ranks.
	TargetManual TargetMode = "manual"
)

// MaxManualTargets caps an explicit handle list. More users than this
// makes the export payload too large to be a useful review input.
const MaxManualTargets = 5

type TargetConfig struct {
	Mode  TargetMode
	K     int
	N     int
	Users []string
}

// DefaultTargets is the legacy behavior: the top topN finishers.
func DefaultTargets(topN int) TargetConfig {
	if topN <= 0 {
		topN = 3
	}
	return TargetConfig{Mode: TargetAbsolute, K: 1, N: topN}
}

func (c TargetConfig) withDefaults() TargetConfig {
	if c.Mode == "" {
		c.Mode = TargetAbsolute
	}
	if c.K <= 0 {
		if c.Mode == TargetRelative {
			// effectively "the best user above me" for small boards
			c.K = 1000
		} else {
			c.K = 1
		}
	}
	if c.N <= 0 {
		c.N = 3
	}
	return c
}

// ResolveTargets picks the comparison users out of the standings.
// standings is ordered by rank; selfIndex is the zero based position
// of the runner's own row, or -1 when unknown. Only users placed
// strictly above the runner qualify in absolute and relative modes.
func ResolveTargets(cfg TargetConfig, standings []records.User, selfIndex int) ([]records.User, error) {
	cfg = cfg.withDefaults()

	switch cfg.Mode {
	case TargetAbsolute:
		return resolveAbsolute(cfg, standings, selfIndex)
	case TargetRelative:
		return resolveRelative(cfg, standings, selfIndex)
	case TargetManual:
		return resolveManual(cfg, standings)
	default:
		return nil, fmt.Errorf("unknown target mode %q", cfg.Mode)
	}
}

func resolveAbsolute(cfg TargetConfig, standings []records.User, selfIndex int) ([]records.User, error) {
	start := cfg.K - 1
	if start > len(standings) {
		start = len(standings)
	}
	end := start + cfg.N
	if end > len(standings) {
		end = len(standings)
	}

	selected := make([]records.User, 0, cfg.N)
	for i := start; i < end; i++ {
		if selfIndex != -1 && i >= selfIndex {
			continue
		}
		selected = append(selected, standings[i])
	}
	if len(selected) == 0 {
		return nil, &EmptyResultError{
			Stage:   "target users",
			Message: "no users placed above you in the requested rank range; lower the start rank or raise the count",
		}
	}
	return selected, nil
}

func resolveRelative(cfg TargetConfig, standings []records.User, selfIndex int) ([]records.User, error) {
	if selfIndex == -1 {
		return nil, &EmptyResultError{
			Stage:   "target users",
			Message: "your own row was not found in the standings; relative targeting needs you on the scoreboard",
		}
	}

	ownRank := selfIndex + 1
	startRank := ownRank - cfg.K
	if startRank < 1 {
		startRank = 1
	}
	endRank := startRank + cfg.N - 1
	if endRank > ownRank-1 {
		endRank = ownRank - 1
	}
	if endRank < startRank {
		return nil, &EmptyResultError{
			Stage:   "target users",
			Message: "no users placed above you within the requested distance; raise the distance or count",
		}
	}
	return standings[startRank-1 : endRank], nil
}

func resolveManual(cfg TargetConfig, standings []records.User) ([]records.User, error) {
	if len(cfg.Users) == 0 {
		return nil, &EmptyResultError{
			Stage:   "target users",
			Message: "no comparison users were specified",
		}
	}

	byKey := make(map[string]records.User, len(standings))
	for _, row := range standings {
		byKey[records.CanonicalUser(row.Name)] = row
	}

	seen := make(map[string]bool, len(cfg.Users))
	selected := make([]records.User, 0, len(cfg.Users))
	for _, name := range cfg.Users {
		key := records.CanonicalUser(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if row, ok := byKey[key]; ok {
			selected = append(selected, row)
		} else {
			selected = append(selected, records.User{Name: name})
		}
		if len(selected) == MaxManualTargets {
			break
		}
	}
	if len(selected) == 0 {
		return nil, &EmptyResultError{
			Stage:   "target users",
			Message: "no comparison users were specified",
		}
	}
	return selected, nil
}
