package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Query
		want Query
	}{
		{"defaults", Query{}, Query{Page: 1, Limit: DefaultLimit}},
		{"limit clamped", Query{Page: 2, Limit: 500}, Query{Page: 2, Limit: MaxLimit}},
		{"page clamped", Query{Page: math.MaxInt, Limit: 10}, Query{Page: MaxPage, Limit: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}

func TestOffsetNeverNegative(t *testing.T) {
	assert.Equal(t, 0, Query{}.Offset())
	assert.Equal(t, 20, Query{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, (MaxPage-1)*MaxLimit, Query{Page: math.MaxInt, Limit: math.MaxInt}.Offset())
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Query{Page: 2, Limit: 10}, 21)
	assert.Equal(t, Meta{Page: 2, Limit: 10, Total: 21, Pages: 3}, m)
	assert.Equal(t, int64(0), NewMeta(Query{}, 0).Pages)
}
