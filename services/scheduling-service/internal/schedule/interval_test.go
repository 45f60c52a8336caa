package schedule

import "testing"

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", Interval{540, 570}, Interval{600, 630}, false},
		{"identical", Interval{600, 630}, Interval{600, 630}, true},
		{"contained", Interval{600, 660}, Interval{615, 630}, true},
		{"partial", Interval{600, 645}, Interval{630, 690}, true},
		{"touching edges", Interval{570, 600}, Interval{600, 630}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			// Half-open overlap is symmetric.
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v (symmetry)", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{OpenMinute: 480, CloseMinute: 1260} // 08:00-21:00

	if !w.Contains(NewInterval(480, 60)) {
		t.Fatalf("expected interval at open to fit")
	}
	if !w.Contains(NewInterval(1200, 60)) {
		t.Fatalf("expected interval ending exactly at close to fit")
	}
	if w.Contains(NewInterval(1230, 60)) {
		t.Fatalf("expected interval past close to be rejected")
	}
	if w.Contains(NewInterval(450, 60)) {
		t.Fatalf("expected interval before open to be rejected")
	}
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if min != 570 {
		t.Fatalf("ParseClock(09:30) = %d, want 570", min)
	}
	if got := FormatClock(570); got != "09:30" {
		t.Fatalf("FormatClock(570) = %q, want 09:30", got)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatalf("expected error for 25:00")
	}
	if _, err := ParseClock("0930"); err == nil {
		t.Fatalf("expected error for 0930")
	}
}
