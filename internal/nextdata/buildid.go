package nextdata

import (
	"regexp"
)

// BuildIDLength is the fixed length of a Next.js build identifier.
const BuildIDLength = 21

// buildIDPattern matches the first "buildId":"<21 chars>" occurrence.
// The page is scanned as raw bytes; its markup is never parsed.
var buildIDPattern = regexp.MustCompile(`"buildId":"(.{21})"`)

// ExtractBuildID returns the build identifier embedded in a bootstrap page body.
func ExtractBuildID(body []byte) (string, error) {
	m := buildIDPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrBuildIDNotFound
	}
	return string(m[1]), nil
}
