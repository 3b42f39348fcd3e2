// Package slug builds filesystem-safe storage path candidates from
// human-readable titles and implements the deterministic collision
// suffix grammar used by the dedup store.
package slug

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// farsiLetters is the fixed Persian letter set kept by slugification.
const farsiLetters = "آابپتثجچحخدذرزژسشصضطظعغفقکگلمنوهی"

var (
	disallowedRuns = regexp.MustCompile("[^a-zA-Z" + farsiLetters + "]+")
	edgeDashes     = regexp.MustCompile("^-+|-+$")

	// Arabic variants of letters that Persian text frequently carries.
	arabicToFarsi = strings.NewReplacer("ي", "ی", "ك", "ک")
)

// Make slugifies a title: Arabic letter variants are normalised to their
// Farsi forms, every run of characters outside the allowed set becomes a
// single dash, edge dashes are trimmed, and the result is percent-encoded
// for use as a path segment.
func Make(title string) string {
	s := arabicToFarsi.Replace(title)
	s = disallowedRuns.ReplaceAllString(s, "-")
	s = edgeDashes.ReplaceAllString(s, "")
	return url.QueryEscape(s)
}

var (
	numberedSuffix = regexp.MustCompile(`^(.*)-([0-9]+)(\.(?:jpg|png|gif))$`)
	plainExtension = regexp.MustCompile(`^(.*)(\.(?:jpg|png|gif))$`)
)

// NextCandidate derives the next storage path to try after a uniqueness
// collision: a trailing -N counter before the extension is incremented,
// otherwise -2 is inserted.
func NextCandidate(path string) string {
	if m := numberedSuffix.FindStringSubmatch(path); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return m[1] + "-2" + m[3]
		}
		return m[1] + "-" + strconv.Itoa(n+1) + m[3]
	}
	if m := plainExtension.FindStringSubmatch(path); m != nil {
		return m[1] + "-2" + m[2]
	}
	return path + "-2"
}
