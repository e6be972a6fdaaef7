package memory

import (
	"sort"
	"strings"
	"unicode"

	"github.com/seobando/agentkit/core"
)

// EntriesFromSession turns every non-partial text event of sess into a
// memory entry keyed by the event id.
func EntriesFromSession(sess *core.Session) []core.MemoryEntry {
	events := sess.GetEvents()
	out := make([]core.MemoryEntry, 0, len(events))
	for _, ev := range events {
		if ev.Partial || ev.Content == nil {
			continue
		}
		text := strings.TrimSpace(ev.Content.Text())
		if text == "" {
			continue
		}
		out = append(out, core.MemoryEntry{
			ID:        ev.ID,
			SessionID: sess.ID,
			Author:    ev.Author,
			Text:      text,
			Timestamp: ev.Timestamp,
		})
	}
	return out
}

// Words lowercases s and splits it on anything that is not a letter or digit.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Score returns the fraction of distinct query words found in text.
func Score(queryWords []string, text string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, w := range Words(text) {
		have[w] = struct{}{}
	}
	seen := make(map[string]struct{}, len(queryWords))
	matched := 0
	for _, q := range queryWords {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		if _, ok := have[q]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

// Rank scores candidates against query, drops misses and orders the rest by
// score, newest first within a score. A limit <= 0 keeps every hit.
func Rank(candidates []core.MemoryEntry, query string, limit int) []core.MemoryEntry {
	words := Words(query)
	hits := make([]core.MemoryEntry, 0)
	for _, e := range candidates {
		score := Score(words, e.Text)
		if score == 0 {
			continue
		}
		e.Score = score
		hits = append(hits, e)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Timestamp.After(hits[j].Timestamp)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
