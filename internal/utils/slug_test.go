package utils

import "testing"

func TestSlugify(t *testing.T) {
  cases := []struct {
    in   string
    want string
  }{
    {"Biology", "biology"},
    {"Intro to Cell Biology", "intro-to-cell-biology"},
    {"  Spaced   Out  ", "spaced-out"},
    {"C++ & Go!", "c-go"},
    {"---", ""},
    {"", ""},
    {"Already-Slugged", "already-slugged"},
  }
  for _, tc := range cases {
    if got := Slugify(tc.in); got != tc.want {
      t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
    }
  }
}
