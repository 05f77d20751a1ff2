package listview

import (
	"fmt"
	"testing"
	"time"
)

type row struct {
	name string
	pct  float64
	at   time.Time
}

func rowFields(r row) []string { return []string{r.name} }

func makeRows(n int) []row {
	rows := make([]row, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = row{name: fmt.Sprintf("Quiz %02d", i+1), pct: float64(i % 5), at: base.Add(time.Duration(i) * time.Hour)}
	}
	return rows
}

func TestPaginateBoundaries(t *testing.T) {
	rows := makeRows(25)

	tests := []struct {
		page     int
		wantLen  int
		wantCur  int
		wantPrev bool
		wantNext bool
	}{
		{1, 10, 1, false, true},
		{2, 10, 2, true, true},
		{3, 5, 3, true, false},
		{0, 10, 1, false, true},
		{9, 5, 3, true, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			p := Paginate(rows, tt.page, 10)
			if len(p.Items) != tt.wantLen {
				t.Errorf("expected %d items, got %d", tt.wantLen, len(p.Items))
			}
			if p.Current != tt.wantCur {
				t.Errorf("expected current %d, got %d", tt.wantCur, p.Current)
			}
			if p.HasPrev() != tt.wantPrev || p.HasNext() != tt.wantNext {
				t.Errorf("prev/next = %v/%v, want %v/%v", p.HasPrev(), p.HasNext(), tt.wantPrev, tt.wantNext)
			}
			if p.TotalPages != 3 || p.TotalItems != 25 {
				t.Errorf("unexpected totals %d pages / %d items", p.TotalPages, p.TotalItems)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]row{}, 1, 10)
	if p.TotalPages != 1 || len(p.Items) != 0 || p.HasNext() || p.HasPrev() {
		t.Errorf("unexpected empty page %+v", p)
	}
}

func TestFilterIsNonDestructive(t *testing.T) {
	rows := makeRows(25)

	if got := Filter(rows, "", rowFields); len(got) != 25 {
		t.Errorf("empty term should return all rows, got %d", len(got))
	}
	for _, term := range []string{"quiz 1", "QUIZ 2", "nothing", "  ", "05"} {
		Filter(rows, term, rowFields)
	}
	if len(rows) != 25 || rows[0].name != "Quiz 01" {
		t.Error("filtering mutated the source list")
	}

	got := Filter(rows, "QuIz 1", rowFields)
	if len(got) != 10 {
		t.Errorf("expected 10 matches for 'quiz 1', got %d", len(got))
	}
	if got := Filter(rows, "nothing", rowFields); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestSortStable(t *testing.T) {
	rows := makeRows(10)
	byPct := ByNumber(func(r row) float64 { return r.pct })

	asc := SortStable(rows, byPct, Asc)
	// Equal percentages keep their fetched order.
	if asc[0].name != "Quiz 01" || asc[1].name != "Quiz 06" {
		t.Errorf("sort not stable: %v, %v", asc[0].name, asc[1].name)
	}

	byDate := ByNumber(func(r row) float64 { return float64(r.at.Unix()) })
	desc := SortStable(rows, byDate, Desc)
	if desc[0].name != "Quiz 10" || desc[9].name != "Quiz 01" {
		t.Errorf("unexpected date order %s .. %s", desc[0].name, desc[9].name)
	}
	if rows[0].name != "Quiz 01" {
		t.Error("sorting mutated the source list")
	}

	byName := ByText(func(r row) string { return r.name })
	if got := SortStable(rows, byName, Desc); got[0].name != "Quiz 10" {
		t.Errorf("expected Quiz 10 first, got %s", got[0].name)
	}
}

func TestApply(t *testing.T) {
	rows := makeRows(25)
	keys := map[string]Key[row]{
		"name": ByText(func(r row) string { return r.name }),
	}
	p := Apply(rows, State{Search: "quiz 2", SortBy: "name", Dir: Desc, Page: 1}, 4, rowFields, keys)
	if p.TotalItems != 6 || p.TotalPages != 2 {
		t.Fatalf("unexpected totals %d/%d", p.TotalItems, p.TotalPages)
	}
	if p.Items[0].name != "Quiz 25" {
		t.Errorf("expected Quiz 25 first, got %s", p.Items[0].name)
	}
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("ASC") != Asc || ParseDirection("") != Desc || ParseDirection("desc").Toggle() != Asc {
		t.Error("unexpected direction parsing")
	}
}
