package naming

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`%date:([^%]+)%`)

// Java-style date tokens, ordered so longer tokens win over their prefixes
// ("yyyy" before "yy", "dd" before "d").
var dateTokens = []string{
	"yyyy", "yy",
	"MMMM", "MMM", "MM", "M",
	"dd", "d",
	"EEEE", "EEE",
	"HH", "hh", "mm", "ss",
	"a",
}

func dateTokenValue(token string, t time.Time) string {
	switch token {
	case "yyyy":
		return t.Format("2006")
	case "yy":
		return t.Format("06")
	case "MMMM":
		return t.Format("January")
	case "MMM":
		return t.Format("Jan")
	case "MM":
		return t.Format("01")
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "dd":
		return t.Format("02")
	case "d":
		return strconv.Itoa(t.Day())
	case "EEEE":
		return t.Format("Monday")
	case "EEE":
		return t.Format("Mon")
	case "HH":
		return t.Format("15")
	case "hh":
		return t.Format("03")
	case "mm":
		return t.Format("04")
	case "ss":
		return t.Format("05")
	case "a":
		return t.Format("PM")
	}
	return token
}

// ProcessDateVariables replaces %date:FORMAT% patterns in text with the
// formatted time. FORMAT uses Java-style tokens:
//
//	yyyy yy MMMM MMM MM M dd d EEEE EEE HH hh mm ss a
//
// Characters outside these tokens pass through verbatim, so
// "%date:yyyy-MM-dd%" becomes "2024-01-15". Other %...% patterns such as
// %batch_num% are left untouched.
func ProcessDateVariables(text string, now time.Time) string {
	if text == "" || !strings.Contains(text, "%date:") {
		return text
	}
	return datePattern.ReplaceAllStringFunc(text, func(match string) string {
		format := match[len("%date:") : len(match)-1]
		return formatJavaDate(format, now)
	})
}

// formatJavaDate substitutes tokens in two passes through placeholders, so
// a token's output is never re-scanned (the "a" in "January" must not feed
// the AM/PM marker).
func formatJavaDate(format string, t time.Time) string {
	result := format
	values := make(map[string]string)
	for i, token := range dateTokens {
		if !strings.Contains(result, token) {
			continue
		}
		placeholder := "\x00" + strconv.Itoa(i) + "\x00"
		result = strings.ReplaceAll(result, token, placeholder)
		values[placeholder] = dateTokenValue(token, t)
	}
	for placeholder, value := range values {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
