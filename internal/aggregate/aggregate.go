// Package aggregate turns raw per-channel messages into the compact, deduplicated
// and size-bounded text bundle handed to the generation client.
package aggregate

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/edgard/mediadesk/internal/pick"
	"github.com/edgard/mediadesk/internal/source"
	"github.com/edgard/mediadesk/internal/text"
)

// Bundle is the prompt material of one pipeline run. It is built once and not
// modified afterwards.
type Bundle struct {
	// Groups lists group names in first-seen order.
	Groups       []string
	PerGroupText map[string]string
	CombinedText string
	SizeBudget   int
}

// Empty reports whether the bundle carries no text.
func (b Bundle) Empty() bool {
	return strings.TrimSpace(b.CombinedText) == ""
}

// Dedup drops messages whose fingerprint already appeared earlier in the
// same group, keeping first-seen order. Applying it twice changes nothing.
func Dedup(msgs []source.Message, fingerprintLength int) []source.Message {
	seen := make(map[string]map[string]struct{})
	out := make([]source.Message, 0, len(msgs))

	for _, m := range msgs {
		fp := text.Fingerprint(m.Content, fingerprintLength)
		groupSeen, ok := seen[m.Group]
		if !ok {
			groupSeen = make(map[string]struct{})
			seen[m.Group] = groupSeen
		}
		if _, dup := groupSeen[fp]; dup {
			continue
		}
		groupSeen[fp] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Window keeps messages newer than now-lookback and, per channel, only the
// perChannel most recent ones. A zero lookback or perChannel disables that
// restriction. Input order is preserved.
func Window(msgs []source.Message, now time.Time, lookback time.Duration, perChannel int) []source.Message {
	var cutoff time.Time
	if lookback > 0 {
		cutoff = now.Add(-lookback)
	}

	type slot struct{ group, label string }
	fresh := make([]source.Message, 0, len(msgs))
	counts := make(map[slot]int)
	for _, m := range msgs {
		if !cutoff.IsZero() && !m.Timestamp.After(cutoff) {
			continue
		}
		fresh = append(fresh, m)
		counts[slot{m.Group, m.ChannelLabel}]++
	}
	if perChannel <= 0 {
		return fresh
	}

	// Skip the oldest surplus of each channel so the newest N remain.
	skip := make(map[slot]int, len(counts))
	for k, n := range counts {
		if n > perChannel {
			skip[k] = n - perChannel
		}
	}
	if len(skip) == 0 {
		return fresh
	}

	drop := make(map[int]bool)
	order := make([]int, len(fresh))
	for i := range fresh {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return fresh[a].Timestamp.Compare(fresh[b].Timestamp) })
	for _, i := range order {
		k := slot{fresh[i].Group, fresh[i].ChannelLabel}
		if skip[k] > 0 {
			skip[k]--
			drop[i] = true
		}
	}

	out := make([]source.Message, 0, len(fresh)-len(drop))
	for i, m := range fresh {
		if !drop[i] {
			out = append(out, m)
		}
	}
	return out
}

// Line renders a message as a single prompt line.
func Line(m source.Message) string {
	author := m.Author
	if author == "" {
		author = "unknown"
	}
	return fmt.Sprintf("[%s:%s] %s: %s", m.Group, m.ChannelLabel, author, text.CollapseWhitespace(m.Content))
}

// Budget selects the newest lines whose combined length, newline separators
// included, fits within budget runes, and returns them in their original
// chronological order. The newest line is truncated rather than dropped when
// it alone exceeds the budget. A non-positive budget disables the limit.
func Budget(lines []string, budget int) []string {
	if budget <= 0 || len(lines) == 0 {
		return lines
	}

	used := 0
	first := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		cost := text.RuneLen(lines[i])
		if first < len(lines) {
			cost++ // separator
		}
		if used+cost > budget {
			break
		}
		used += cost
		first = i
	}

	if first == len(lines) {
		return []string{text.Truncate(lines[len(lines)-1], budget)}
	}
	return lines[first:]
}

// Build groups messages, orders each group chronologically and applies the
// size budget to every group text and to the combined text independently.
func Build(msgs []source.Message, budget int) Bundle {
	b := Bundle{
		PerGroupText: make(map[string]string),
		SizeBudget:   budget,
	}

	byGroup := make(map[string][]source.Message)
	for _, m := range msgs {
		if _, ok := byGroup[m.Group]; !ok {
			b.Groups = append(b.Groups, m.Group)
		}
		byGroup[m.Group] = append(byGroup[m.Group], m)
	}

	for _, g := range b.Groups {
		b.PerGroupText[g] = strings.Join(Budget(lines(byGroup[g]), budget), "\n")
	}
	b.CombinedText = strings.Join(Budget(lines(msgs), budget), "\n")

	return b
}

func lines(msgs []source.Message) []string {
	sorted := slices.Clone(msgs)
	slices.SortStableFunc(sorted, func(a, b source.Message) int { return a.Timestamp.Compare(b.Timestamp) })

	out := make([]string, len(sorted))
	for i, m := range sorted {
		out[i] = Line(m)
	}
	return out
}

// SelectActiveGroup picks the group to prompt on: the one with the most text,
// skipping groups whose text mentions lastTopic and groups reported by
// recentlyCovered. When every group is skipped it returns the largest.
// Groups without text are never chosen.
func SelectActiveGroup(b Bundle, lastTopic string, recentlyCovered func(group string) bool) (string, bool) {
	candidates := make([]pick.Candidate[string], 0, len(b.Groups))
	for _, g := range b.Groups {
		if n := text.RuneLen(strings.TrimSpace(b.PerGroupText[g])); n > 0 {
			candidates = append(candidates, pick.Candidate[string]{Item: g, Weight: float64(n)})
		}
	}

	topic := strings.ToLower(strings.TrimSpace(lastTopic))
	return pick.Top(candidates, func(g string) bool {
		if topic != "" && strings.Contains(strings.ToLower(text.CollapseWhitespace(b.PerGroupText[g])), topic) {
			return true
		}
		return recentlyCovered != nil && recentlyCovered(g)
	})
}
