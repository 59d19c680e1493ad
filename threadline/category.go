// Package threadline decides which messages get a discussion thread and what the thread is
// called.
package threadline

import (
	"fmt"
	"strings"
)

type Category uint8

const (
	CategoryMessage Category = iota
	CategoryPoll
	CategoryMedia
	CategoryFile
	CategoryLink
)

// Precedence lists categories from strongest to weakest. A message matching several
// categories is classified by the first enabled one.
var Precedence = []Category{CategoryPoll, CategoryMedia, CategoryFile, CategoryLink, CategoryMessage}

var categoryNames = [...]string{
	CategoryMessage: "message",
	CategoryPoll:    "poll",
	CategoryMedia:   "media",
	CategoryFile:    "file",
	CategoryLink:    "link",
}

var categoryEmoji = [...]string{
	CategoryMessage: "💬",
	CategoryPoll:    "📊",
	CategoryMedia:   "🖼️",
	CategoryFile:    "📎",
	CategoryLink:    "🔗",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Emoji is the reaction added to the source message once its thread exists.
func (c Category) Emoji() string {
	if int(c) < len(categoryEmoji) {
		return categoryEmoji[c]
	}
	return ""
}

func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown threadline category %q", name)
}

// Set is a bit set of categories.
type Set uint8

func NewSet(categories ...Category) Set {
	var s Set
	for _, c := range categories {
		s = s.With(c)
	}
	return s
}

func (s Set) With(c Category) Set { return s | 1<<c }
func (s Set) Has(c Category) bool { return s&(1<<c) != 0 }
func (s Set) Empty() bool { return s == 0 }

// Categories returns the members in wire order (message, poll, media, file, link).
func (s Set) Categories() []Category {
	var out []Category
	for i := range categoryNames {
		if s.Has(Category(i)) {
			out = append(out, Category(i))
		}
	}
	return out
}

func (s Set) Names() []string {
	cats := s.Categories()
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.String())
	}
	return out
}

func (s Set) String() string {
	if s.Empty() {
		return "none"
	}
	return strings.Join(s.Names(), ", ")
}

// ParseSet reads wire names. Unknown names are skipped and reported together.
func ParseSet(names []string) (Set, error) {
	var (
		s    Set
		errs []string
	)
	for _, n := range names {
		c, err := ParseCategory(n)
		if err != nil {
			errs = append(errs, n)
			continue
		}
		s = s.With(c)
	}
	if len(errs) > 0 {
		return s, fmt.Errorf("unknown threadline categories: %s", strings.Join(errs, ", "))
	}
	return s, nil
}
