package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 120)
	assert.Equal(t, 6, p.TotalPages)
	assert.True(t, p.HasNext)

	last := NewPagination(6, 20, 120)
	assert.False(t, last.HasNext)

	// A partial final page still counts as a page.
	partial := NewPagination(1, 20, 21)
	assert.Equal(t, 2, partial.TotalPages)
	assert.True(t, partial.HasNext)

	empty := NewPagination(1, 20, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	at := func(d time.Time) int64 { return d.UnixMilli() }

	msgs := []*MessageInfo{
		{Id: "m1", CreatedAt: at(now.AddDate(0, 0, -5))},
		{Id: "m2", CreatedAt: at(now.AddDate(0, 0, -1))},
		{Id: "m3", CreatedAt: at(now.Add(-2 * time.Hour))},
		{Id: "m4", CreatedAt: at(now.Add(-time.Minute))},
	}

	groups := GroupByDay(msgs, now)
	require.Len(t, groups, 3)

	assert.Equal(t, "5 March 2026", groups[0].Label)
	assert.Equal(t, "Yesterday", groups[1].Label)
	assert.Equal(t, "Today", groups[2].Label)
	assert.Equal(t, "2026-03-10", groups[2].Date)
	require.Len(t, groups[2].Messages, 2)
	assert.Equal(t, "m3", groups[2].Messages[0].Id)
	assert.Equal(t, "m4", groups[2].Messages[1].Id)
}

func TestGroupByDayEmpty(t *testing.T) {
	groups := GroupByDay(nil, time.Now())
	assert.Empty(t, groups)
}
