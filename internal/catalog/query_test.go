package catalog

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want ListQuery
	}{
		{raw: "", want: ListQuery{Page: 1, Limit: 10}},
		{raw: "page=2&limit=1", want: ListQuery{Page: 2, Limit: 1}},
		{raw: "category=%20Kitchen%20&search=mak", want: ListQuery{Category: "Kitchen", Search: "mak", Page: 1, Limit: 10}},
		{raw: "page=abc&limit=xyz", want: ListQuery{Page: 1, Limit: 10}},
		{raw: "page=3abc&limit=2.9", want: ListQuery{Page: 3, Limit: 2}},
		{raw: "page=0x10&limit=1e3", want: ListQuery{Page: 1, Limit: 1}},
		{raw: "page=%20%204", want: ListQuery{Page: 4, Limit: 10}},
		{raw: "page=0&limit=0", want: ListQuery{Page: 1, Limit: 1}},
		{raw: "page=-7&limit=-1", want: ListQuery{Page: 1, Limit: 1}},
		{raw: "page=%2B5", want: ListQuery{Page: 5, Limit: 10}},
		{raw: "page=-", want: ListQuery{Page: 1, Limit: 10}},
		{raw: "limit=99999999999999999999999", want: ListQuery{Page: 1, Limit: math.MaxInt}},
		{raw: "page=-99999999999999999999999", want: ListQuery{Page: 1, Limit: 10}},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			v, err := url.ParseQuery(tc.raw)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, parseListQuery(v))
		})
	}
}
