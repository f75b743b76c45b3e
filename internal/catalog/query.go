package catalog

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// parseListQuery never fails. page and limit take the leading decimal integer
// of the parameter ("3abc" -> 3, "2.9" -> 2, "0x10" -> 0, "1e3" -> 1); there
// are no radix or exponent prefixes. Missing or non-numeric values use the
// defaults and anything below 1 is clamped to 1.
func parseListQuery(v url.Values) ListQuery {
	return ListQuery{
		Category: strings.TrimSpace(v.Get("category")),
		Search:   v.Get("search"),
		Page:     positiveInt(v.Get("page"), DefaultPage),
		Limit:    positiveInt(v.Get("limit"), DefaultLimit),
	}
}

func positiveInt(s string, def int) int {
	n, ok := leadingInt(s)
	if !ok {
		return def
	}
	return max(n, 1)
}

// leadingInt reads an optional sign and base-10 digits.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if s[0] == '-' {
				return math.MinInt, true
			}
			return math.MaxInt, true
		}
		return 0, false
	}
	return n, true
}
