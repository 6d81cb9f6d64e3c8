package article

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	idSuffixLength = 9
	slugMaxLength  = 60
)

const idSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9 -]+`)
	slugSpaces     = regexp.MustCompile(` +`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// stripMarks decomposes accented characters and drops the combining marks,
// turning "é" into "e".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NewID returns a fresh article identifier of the form
// art_<millis>_<random alnum>. Uniqueness is probabilistic: the wall-clock
// component plus the random suffix make collisions negligible at
// human-driven publishing rates, but nothing enforces it by construction.
func NewID() string {
	return fmt.Sprintf("art_%d_%s", time.Now().UnixMilli(), randomSuffix(idSuffixLength))
}

func randomSuffix(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// degrade to a time-derived suffix rather than panic.
		nanos := fmt.Sprintf("%d", time.Now().UnixNano())
		return nanos[len(nanos)-length:]
	}

	for i, b := range buf {
		buf[i] = idSuffixAlphabet[int(b)%len(idSuffixAlphabet)]
	}
	return string(buf)
}

// Slugify derives a URL-safe slug from an article title: lower-cased,
// diacritics stripped, anything outside [a-z0-9 -] removed, whitespace
// collapsed to single hyphens, truncated to 60 characters. Titles that reduce
// to nothing yield a timestamp-based fallback so the result is never empty.
// Slugs are not guaranteed unique across titles that normalise identically.
func Slugify(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))

	normalised, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return fallbackSlug()
	}

	slug := slugDisallowed.ReplaceAllString(normalised, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > slugMaxLength {
		slug = strings.TrimRight(slug[:slugMaxLength], "-")
	}

	if slug == "" {
		return fallbackSlug()
	}

	return slug
}

func fallbackSlug() string {
	return fmt.Sprintf("article-%d", time.Now().UnixMilli())
}
