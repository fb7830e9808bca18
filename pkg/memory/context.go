// Package memory implements the cumulative-context discipline for agent
// memory blocks: append with deduplication, oldest-first truncation to a
// byte budget, and the block manager that applies it through the runtime API.
package memory

import (
	"regexp"
	"strings"
	"time"
)

const (
	// MaxBlockBytes is the hard byte cap on any memory block value written
	// by this service.
	MaxBlockBytes = 4800

	// TruncationMarker is the literal first line of a block whose older
	// entries were dropped.
	TruncationMarker = "--- OLDER ENTRIES TRUNCATED ---"

	// SimilarityThreshold is the textual-similarity cutoff above which a new
	// entry is considered a duplicate of the most recent one.
	SimilarityThreshold = 0.90

	truncatedSuffix = " [CONTENT TRUNCATED]"

	delimiterTimeLayout = "2006-01-02 15:04:05"
)

// entryDelimiterRe matches the timestamped delimiter separating context
// entries inside a block value.
var entryDelimiterRe = regexp.MustCompile(`\n\n--- CONTEXT ENTRY \(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} UTC\) ---\n\n`)

// queryTagRe extracts the search-query tag a context entry may carry. Two
// entries with different tags are never deduplicated against each other.
var queryTagRe = regexp.MustCompile(`(?m)^Query: (.+)$`)

// EntryDelimiter returns the literal delimiter that precedes a context entry
// recorded at ts.
func EntryDelimiter(ts time.Time) string {
	return "\n\n--- CONTEXT ENTRY (" + ts.UTC().Format(delimiterTimeLayout) + " UTC) ---\n\n"
}

// entry is one parsed context entry with the delimiter that preceded it.
// The delimiter is empty for a block's first entry.
type entry struct {
	delim string
	body  string
}

// parseEntries splits a block value into ordered entries, dropping a leading
// truncation marker left by an earlier truncation.
func parseEntries(value string) []entry {
	locs := entryDelimiterRe.FindAllStringIndex(value, -1)
	entries := make([]entry, 0, len(locs)+1)

	prevEnd := 0
	prevDelim := ""
	for _, loc := range locs {
		entries = append(entries, entry{delim: prevDelim, body: value[prevEnd:loc[0]]})
		prevDelim = value[loc[0]:loc[1]]
		prevEnd = loc[1]
	}
	entries = append(entries, entry{delim: prevDelim, body: value[prevEnd:]})

	if strings.TrimSpace(entries[0].body) == TruncationMarker {
		entries = entries[1:]
	}
	return entries
}

// Append adds newEntry to the cumulative context in existing, returning the
// updated value. The result never exceeds MaxBlockBytes. Appending the same
// entry twice in a row is a no-op (dedup against the most recent entry).
func Append(existing, newEntry string, now time.Time) string {
	if strings.TrimSpace(newEntry) == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		if len(newEntry) <= MaxBlockBytes {
			return newEntry
		}
		return truncateOversized(newEntry, EntryDelimiter(now))
	}

	entries := parseEntries(existing)
	if len(entries) == 0 {
		// Legacy block holding only the truncation marker and no entries.
		if len(newEntry) <= MaxBlockBytes {
			return newEntry
		}
		return truncateOversized(newEntry, EntryDelimiter(now))
	}
	if Similar(entries[len(entries)-1].body, newEntry) {
		return existing
	}

	candidate := existing + EntryDelimiter(now) + newEntry
	if len(candidate) <= MaxBlockBytes {
		return candidate
	}
	return truncate(parseEntries(candidate))
}

// truncate drops oldest entries from the parsed candidate until the value
// fits, always keeping the newest entry and prefixing the result with the
// truncation marker.
func truncate(entries []entry) string {
	newest := entries[len(entries)-1]
	delimLen := len(newest.delim)
	if delimLen == 0 {
		delimLen = len(EntryDelimiter(time.Time{}))
	}

	if len(newest.body)+len(TruncationMarker)+delimLen > MaxBlockBytes {
		delim := newest.delim
		if delim == "" {
			delim = EntryDelimiter(time.Now())
		}
		return truncateOversized(newest.body, delim)
	}

	size := len(TruncationMarker) + delimLen + len(newest.body)
	kept := []entry{newest}
	for i := len(entries) - 2; i >= 0; i-- {
		e := entries[i]
		cost := len(e.delim) + len(e.body)
		if e.delim == "" {
			cost += delimLen
		}
		if size+cost > MaxBlockBytes {
			break
		}
		size += cost
		kept = append([]entry{e}, kept...)
	}

	var b strings.Builder
	b.WriteString(TruncationMarker)
	for _, e := range kept {
		if e.delim == "" {
			// The original first entry had no delimiter; it needs one now
			// that the marker precedes it.
			b.WriteString(newest.delim)
		} else {
			b.WriteString(e.delim)
		}
		b.WriteString(e.body)
	}
	return b.String()
}

// truncateOversized handles a single entry that alone exceeds the budget:
// keep a prefix and flag the cut.
func truncateOversized(body, delim string) string {
	keep := MaxBlockBytes - len(TruncationMarker) - len(delim) - len(truncatedSuffix)
	return TruncationMarker + delim + body[:keep] + truncatedSuffix
}

// Similar reports whether two context entries are near-duplicates. Entries
// carrying different query tags are never similar regardless of text overlap.
func Similar(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}

	if qa, qb := queryTag(a), queryTag(b); qa != "" && qb != "" && qa != qb {
		return false
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if float64(len(shorter)) < SimilarityThreshold*float64(len(longer)) {
		return false
	}
	if strings.Contains(longer, shorter) {
		return true
	}
	return trigramOverlap(a, b) > SimilarityThreshold
}

func queryTag(s string) string {
	if m := queryTagRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// trigramOverlap computes the Jaccard coefficient over character trigrams.
func trigramOverlap(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for g := range ta {
		if tb[g] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func trigrams(s string) map[string]bool {
	set := make(map[string]bool)
	for i := 0; i+3 <= len(s); i++ {
		set[s[i:i+3]] = true
	}
	return set
}
