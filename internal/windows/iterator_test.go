package windows

import "testing" // grounded on the teacher's plain t.Fatalf test style

func TestIterate_TilesDisjointWindowsWhenStepEqualsSize(t *testing.T) {
	got, err := Iterate("2023-01-01", "2023-06-30", 3, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Window{
		{Begin: "2023-01-01", End: "2023-03-31"},
		{Begin: "2023-04-01", End: "2023-06-30"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d windows, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestIterate_SingleMonthWindow(t *testing.T) {
	got, err := Iterate("2023-01", "2023-01", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 window, got %d: %+v", len(got), got)
	}
	if got[0] != (Window{Begin: "2023-01-01", End: "2023-01-31"}) {
		t.Fatalf("unexpected window: %+v", got[0])
	}
}

func TestIterate_RejectsInvalidMonth(t *testing.T) {
	if _, err := Iterate("2023-13-01", "2023-06-30", 3, 3); err == nil {
		t.Fatalf("expected InvalidDate error for month 13")
	}
}

func TestIterate_RejectsInvalidDayForMonth(t *testing.T) {
	if _, err := Iterate("2023-02-30", "2023-06-30", 3, 3); err == nil {
		t.Fatalf("expected InvalidDate error for Feb 30")
	}
}

func TestIterate_AcceptsCompactForm(t *testing.T) {
	got, err := Iterate("20230101", "20230630", 6, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Begin != "2023-01-01" || got[0].End != "2023-06-30" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestIterate_LastWindowClampsToEndDate(t *testing.T) {
	got, err := Iterate("2023-01-01", "2023-08-15", 3, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := got[len(got)-1]
	if last.End != "2023-08-15" {
		t.Fatalf("expected final window to clamp to end date, got %+v", last)
	}
}
