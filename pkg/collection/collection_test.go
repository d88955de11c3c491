package collection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapAndFilter(t *testing.T) {
	up := Map([]string{"bbca", "tlkm"}, strings.ToUpper)
	assert.Equal(t, []string{"BBCA", "TLKM"}, up)

	even := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, []int{2, 4}, even)
	assert.Nil(t, Filter([]int{1}, func(int) bool { return false }))
}

func TestGroupByKeepsOrder(t *testing.T) {
	g := GroupBy([]string{"a1", "b1", "a2"}, func(s string) byte { return s[0] })
	assert.Equal(t, []string{"a1", "a2"}, g['a'])
	assert.Equal(t, []string{"b1"}, g['b'])
}

func TestKeyByUniqueSortedKeys(t *testing.T) {
	k := KeyBy([]string{"x1", "x2"}, func(s string) byte { return s[0] })
	assert.Equal(t, "x2", k['x'])

	assert.Equal(t, []string{"n1", "n2"}, Unique([]string{"n1", "n2", "n1"}))
	assert.Equal(t, []string{"a", "b"}, SortedKeys(map[string]int{"b": 1, "a": 2}))
}
