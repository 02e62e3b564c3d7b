package domain

import "strings"

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify converts a name to a slug usable in image and container names.
//
// The transformation rules are:
//   - Lowercase letters (a-z) and digits (0-9) are kept as-is
//   - Uppercase letters (A-Z) are converted to lowercase
//   - Spaces, hyphens, underscores, dots and slashes become a single hyphen
//   - All other characters are removed
//   - Leading and trailing hyphens are trimmed
//
// Example:
//
//	Slugify("Hello World")      // returns "hello-world"
//	Slugify("my_app.v2")        // returns "my-app-v2"
//	Slugify("/srv/apps/Blog")   // returns "srv-apps-blog"
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r == ' ' || r == '-' || r == '_' || r == '.' || r == '/':
			pendingHyphen = b.Len() > 0
			continue
		default:
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
