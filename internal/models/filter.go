package models

import (
	"fmt"
	"strings"
)

// StatusFilter — фильтр административной выдачи.
// Пустое значение означает «все комментарии».
type StatusFilter string

const (
	FilterAll      StatusFilter = ""
	FilterApproved StatusFilter = "approved"
	FilterPending  StatusFilter = "pending"
	FilterRejected StatusFilter = "rejected"
	FilterFlagged  StatusFilter = "flagged"
)

// ParseStatusFilter разбирает значение query-параметра status.
// "all" равносилен пустому значению.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "all":
		return FilterAll, nil
	case FilterAll, FilterApproved, FilterPending, FilterRejected, FilterFlagged:
		return f, nil
	default:
		return "", fmt.Errorf("unknown status filter %q", s)
	}
}

// Filter — параметры выборки комментариев.
type Filter struct {
	PageID string
	Status StatusFilter
}

// Match проверяет комментарий на соответствие фильтру.
// Семантика статусов:
//   - approved: Status == approved && !Flagged;
//   - pending:  Status == pending && !Flagged;
//   - rejected: Status == rejected && !Flagged;
//   - flagged:  Flagged, независимо от Status.
func (f Filter) Match(c Comment) bool {
	if f.PageID != "" && c.PageID != f.PageID {
		return false
	}

	switch f.Status {
	case FilterApproved:
		return c.Status == StatusApproved && !c.Flagged
	case FilterPending:
		return c.Status == StatusPending && !c.Flagged
	case FilterRejected:
		return c.Status == StatusRejected && !c.Flagged
	case FilterFlagged:
		return c.Flagged
	default:
		return true
	}
}

// Stats — агрегаты для панели модерации.
type Stats struct {
	Total    int
	Pending  int
	Approved int
	Flagged  int
}

// CountStats считает агрегаты по набору комментариев.
func CountStats(items []Comment) Stats {
	st := Stats{Total: len(items)}
	for _, c := range items {
		switch {
		case c.Flagged:
			st.Flagged++
		case c.Status == StatusPending:
			st.Pending++
		case c.Status == StatusApproved:
			st.Approved++
		}
	}

	return st
}
