package wishlists

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

const slugSuffixBytes = 3

// slugify lowers the title into a url-safe slug body.
func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		slug = "list"
	}
	return slug
}

// newSlug appends a short random suffix so two lists with the same title
// never collide.
func newSlug(title string) (string, error) {
	suffix := make([]byte, slugSuffixBytes)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate slug suffix: %w", err)
	}
	return slugify(title) + "-" + hex.EncodeToString(suffix), nil
}
