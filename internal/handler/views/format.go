package views

import (
	"fmt"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/quizmasterpro/quizmaster/internal/listview"
	"github.com/quizmasterpro/quizmaster/internal/model"
)

// Countdown renders seconds as MM:SS.
func Countdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Duration renders seconds as "Xm Ys".
func Duration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// BadgeClass picks the alert style for a percentage score.
func BadgeClass(pct float64) string {
	switch {
	case pct >= 80:
		return "success"
	case pct >= 60:
		return "primary"
	case pct >= 40:
		return "warning"
	default:
		return "danger"
	}
}

// Truncate shortens s to at most n runes, ending in "...".
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Date renders a timestamp as YYYY-MM-DD, or "-" when unset.
func Date(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02")
}

// DateTime renders a timestamp as YYYY-MM-DD HH:MM, or "-" when unset.
func DateTime(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04")
}

// Percent renders a score with one decimal.
func Percent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

// ListURL encodes a list state onto path, replacing the page number.
func ListURL(path string, s listview.State, page int) string {
	q := url.Values{}
	if s.Search != "" {
		q.Set("q", s.Search)
	}
	if s.SortBy != "" {
		q.Set("sort", s.SortBy)
		q.Set("dir", string(s.Dir))
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// SortURL links to the list sorted by field, flipping the direction when
// field is already the sort key.
func SortURL(path string, s listview.State, field string) string {
	next := listview.State{Search: s.Search, SortBy: field, Dir: listview.Desc}
	if s.SortBy == field {
		next.Dir = s.Dir.Toggle()
	}
	return ListURL(path, next, 1)
}

// SortIndicator returns an arrow for the active sort column.
func SortIndicator(s listview.State, field string) string {
	if s.SortBy != field {
		return ""
	}
	if s.Dir == listview.Asc {
		return "▲"
	}
	return "▼"
}
