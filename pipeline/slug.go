package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slug canonicalises a note title into a filesystem-friendly name.
func Slug(title string) (string, error) {
	str := nonAlnum.ReplaceAllString(title, " ")
	str = strings.ToLower(str)
	str = strings.Join(strings.Fields(str), "-")

	if len(str) > 101 {
		str = str[:100]
	}

	str = strings.Trim(str, "-")

	if len(str) < 1 {
		return "", fmt.Errorf("pipeline: slug empty: title was '%s'", title)
	}

	return str, nil
}

// SlugOr falls back to a stand-in when the title doesn't canonicalise.
func SlugOr(title string, fallback string) string {
	s, err := Slug(title)
	if err != nil {
		return fallback
	}
	return s
}
