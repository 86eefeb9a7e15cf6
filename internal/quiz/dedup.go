package quiz

import (
	"hash/fnv"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SeenSet records question fingerprints so repeated generation rounds can
// filter out questions the caller has already received.
type SeenSet interface {
	Contains(fingerprint string) (bool, error)
	Add(fingerprint string) error
}

var (
	// \w would be ASCII-only here; letters and digits from any script are
	// word characters.
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Strips combining marks after NFD decomposition, so accented and
	// unaccented spellings of the same word collapse together.
	foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize produces the canonical form of a question text used for
// duplicate detection: lowercased, diacritics folded, punctuation removed
// and whitespace collapsed. Normalize is idempotent.
func Normalize(text string) string {
	s := strings.ToLower(text)
	if folded, _, err := transform.String(foldDiacritics, s); err == nil {
		s = folded
	}
	s = nonWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Fingerprint returns a compact stable identifier for a question derived
// from its normalized text.
func Fingerprint(q Question) string {
	h := fnv.New64a()
	h.Write([]byte(Normalize(q.Text)))
	return strconv.FormatUint(h.Sum64(), 16)
}

// FilterNew returns the questions not present in seen, preserving order,
// and records their fingerprints. Duplicates within the batch itself are
// also dropped, first occurrence wins. Store errors degrade to treating
// the question as unseen so a flaky backend cannot block generation.
func FilterNew(questions []Question, seen SeenSet) []Question {
	fresh := make([]Question, 0, len(questions))
	batch := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		fp := Fingerprint(q)
		if _, dup := batch[fp]; dup {
			continue
		}
		if seen != nil {
			known, err := seen.Contains(fp)
			if err != nil {
				slog.Warn("seen-set lookup failed, keeping question", "error", err)
			} else if known {
				continue
			}
			if err := seen.Add(fp); err != nil {
				slog.Warn("seen-set update failed", "error", err)
			}
		}
		batch[fp] = struct{}{}
		fresh = append(fresh, q)
	}
	return fresh
}
