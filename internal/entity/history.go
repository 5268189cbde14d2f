package entity

import "time"

// Pagination is the metadata attached to a paginated result. Pages are
// chronological: page 1 holds the oldest messages, the last page the
// newest, so concatenating pages in order yields ascending creation order
// across archive and live storage.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// NewPagination computes pagination metadata for a total item count.
func NewPagination(page, pageSize int, totalItems int64) Pagination {
	totalPages := int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// DayGroup is one calendar-day bucket of a history page.
type DayGroup struct {
	Label    string         `json:"label"` // "Today", "Yesterday" or a formatted date
	Date     string         `json:"date"`  // yyyy-mm-dd
	Messages []*MessageInfo `json:"messages"`
}

// HistoryPage is one page of conversation history, in chronological order,
// grouped by calendar day. This is also the unit stored in the cache layer.
type HistoryPage struct {
	Messages   []*MessageInfo `json:"messages"`
	Groups     []DayGroup     `json:"grouped_by_date"`
	Pagination Pagination     `json:"pagination"`
}

// GroupByDay buckets chronological messages into calendar days using
// human-readable labels relative to now.
func GroupByDay(messages []*MessageInfo, now time.Time) []DayGroup {
	groups := make([]DayGroup, 0, 4)
	var cur *DayGroup

	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")

	for _, msg := range messages {
		t := time.UnixMilli(msg.CreatedAt).In(now.Location())
		date := t.Format("2006-01-02")

		if cur == nil || cur.Date != date {
			var label string
			switch date {
			case today:
				label = "Today"
			case yesterday:
				label = "Yesterday"
			default:
				label = t.Format("2 January 2006")
			}
			groups = append(groups, DayGroup{Label: label, Date: date})
			cur = &groups[len(groups)-1]
		}
		cur.Messages = append(cur.Messages, msg)
	}

	return groups
}
