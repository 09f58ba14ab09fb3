package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

type Category string

const (
	CategoryHashtag Category = "hashtag"
	CategoryMention Category = "mention"
	CategoryURL     Category = "url"
	CategoryPhone   Category = "phone"
	CategoryEmail   Category = "email"
	CategoryCustom  Category = "custom"
)

// Categories lists every category in enumeration order.
var Categories = []Category{
	CategoryHashtag,
	CategoryMention,
	CategoryURL,
	CategoryPhone,
	CategoryEmail,
	CategoryCustom,
}

// BuiltinCategories lists the categories that never need a caller pattern.
var BuiltinCategories = Categories[:5]

func (c Category) String() string {
	return string(c)
}

func (c Category) Valid() bool {
	switch c {
	case CategoryHashtag, CategoryMention, CategoryURL, CategoryPhone, CategoryEmail, CategoryCustom:
		return true
	default:
		return false
	}
}

func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// ParseCategories keeps order and duplicates.
func ParseCategories(raw []string) ([]Category, error) {
	out := make([]Category, 0, len(raw))
	for _, item := range raw {
		c, err := ParseCategory(item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Filter reports whether a matched substring should be kept.
type Filter func(matched string) bool

type Rule struct {
	Category Category
	Pattern  *regexp.Regexp
	Filter   Filter
	// Fallback is set when a custom rule resolved to the url pattern.
	Fallback bool
}

func (r Rule) Keep(matched string) bool {
	if r.Filter == nil {
		return true
	}
	return r.Filter(matched)
}
