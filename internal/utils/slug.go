package utils

import (
  "strings"
  "unicode"
)

// Slugify lowercases s and collapses every non-alphanumeric run into a single
// hyphen. Slugs are the natural keys used for insert-if-absent semantics, so
// the same title always maps to the same slug.
func Slugify(s string) string {
  var b strings.Builder
  lastHyphen := true
  for _, r := range strings.ToLower(strings.TrimSpace(s)) {
    switch {
    case unicode.IsLetter(r) || unicode.IsDigit(r):
      b.WriteRune(r)
      lastHyphen = false
    default:
      if !lastHyphen {
        b.WriteRune('-')
        lastHyphen = true
      }
    }
  }
  return strings.TrimSuffix(b.String(), "-")
}
