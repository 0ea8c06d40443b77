package commission

import (
	"fmt"
	"strings"
	"time"

	"github.com/gestor360/commission/internal/domain"
)

// monthLayout is the YYYY-MM key used by campaigns and goals.
const monthLayout = "2006-01"

// MonthKey formats t as YYYY-MM. The zero time yields "".
func MonthKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(monthLayout)
}

// ValidMonth reports whether s is a YYYY-MM key.
func ValidMonth(s string) bool {
	if len(s) != len(monthLayout) {
		return false
	}
	_, err := time.Parse(monthLayout, s)
	return err == nil
}

// ParseSaleDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339
// timestamp. An empty string yields the zero time.
func ParseSaleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sale date %q", s)
	}
	return t, nil
}

// IsMonthWithinRange compares YYYY-MM strings lexicographically, both
// bounds inclusive. An empty bound is open.
func IsMonthWithinRange(month, start, end string) bool {
	if month == "" {
		return false
	}
	if start != "" && month < start {
		return false
	}
	if end != "" && month > end {
		return false
	}
	return true
}

// ActiveCampaigns keeps the active campaigns whose range contains month.
func ActiveCampaigns(campaigns []*domain.Campaign, month string) []*domain.Campaign {
	var out []*domain.Campaign
	for _, c := range campaigns {
		if c == nil || !c.Active {
			continue
		}
		if IsMonthWithinRange(month, c.StartMonth, c.EndMonth) {
			out = append(out, c)
		}
	}
	return out
}
