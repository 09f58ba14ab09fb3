package patterns

import (
	"regexp"
	"unicode/utf8"
)

// MinPhoneLength is the longest phone candidate that is still discarded.
const MinPhoneLength = 8

const (
	hashtagPattern = `#[\p{L}\p{N}_]+`
	mentionPattern = `@[\p{L}\p{N}_]+`

	urlPattern = `(?i)(?:(?:https?|ftp|rtsp)://(?:[a-z0-9$\-_.+!*'(),;?&=]|%[0-9a-f]{2}){1,64}` +
		`(?::(?:[a-z0-9$\-_.+!*'(),;?&=]|%[0-9a-f]{2}){1,25})?@)?` +
		`(?:(?:https?|ftp|rtsp)://)?` +
		`(?:www\.)?` +
		`(?:[\p{L}\p{N}](?:[\p{L}\p{N}\-]{0,61}[\p{L}\p{N}])?\.)+[\p{L}]{2,63}` +
		`(?::\d{1,5})?` +
		`(?:[/?#](?:[\p{L}\p{N};/?:@&=#~\-.+!*'(),_%$])*)?`

	phonePattern = `(?:\+[0-9]+[\- .]*)?(?:\([0-9]+\)[\- .]*)?[0-9][0-9\- .]+[0-9]`

	emailPattern = `[a-zA-Z0-9+._%\-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9\-]{0,64}(?:\.[a-zA-Z0-9][a-zA-Z0-9\-]{0,25})+`
)

var builtins = map[Category]*regexp.Regexp{
	CategoryHashtag: regexp.MustCompile(hashtagPattern),
	CategoryMention: regexp.MustCompile(mentionPattern),
	CategoryURL:     regexp.MustCompile(urlPattern),
	CategoryPhone:   regexp.MustCompile(phonePattern),
	CategoryEmail:   regexp.MustCompile(emailPattern),
}

var filters = map[Category]Filter{
	CategoryPhone: phoneLongEnough,
}

func phoneLongEnough(matched string) bool {
	return utf8.RuneCountInString(matched) > MinPhoneLength
}

// Builtin returns the precompiled pattern for a built-in category.
func Builtin(c Category) (*regexp.Regexp, bool) {
	re, ok := builtins[c]
	return re, ok
}
