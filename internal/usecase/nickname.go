package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// controlChars matches characters that must never appear in a nickname
var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// NormalizeNickname strips control characters and surrounding whitespace
func NormalizeNickname(nickname string) string {
	nickname = controlChars.ReplaceAllString(nickname, "")
	return strings.TrimSpace(nickname)
}

// NicknameKey is the case-insensitive identity of a nickname
func NicknameKey(nickname string) string {
	return strings.ToLower(nickname)
}

// Disambiguate returns base if it is free, otherwise base followed by the
// smallest positive integer that makes it free. The result never exceeds
// maxLen runes; the base is shortened to make room for the suffix.
// taken must report collisions case-insensitively.
func Disambiguate(base string, maxLen int, taken func(string) bool) string {
	if !taken(base) {
		return base
	}

	for n := 1; ; n++ {
		suffix := strconv.Itoa(n)
		candidate := truncateRunes(base, maxLen-len(suffix)) + suffix
		if !taken(candidate) {
			return candidate
		}
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
