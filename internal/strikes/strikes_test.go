package strikes

import "testing"

func TestRoundToStep(t *testing.T) {
	cases := []struct {
		value float64
		step  int
		want  int
	}{
		{25241.7, 50, 25250},
		{83012.4, 100, 83000},
		{25225, 50, 25250},
		{25224.99, 50, 25200},
		{83050, 100, 83100},
	}
	for _, tc := range cases {
		if got := RoundToStep(tc.value, tc.step); got != tc.want {
			t.Fatalf("RoundToStep(%v, %d) = %d, want %d", tc.value, tc.step, got, tc.want)
		}
	}
}

func TestWindowShape(t *testing.T) {
	cases := []struct {
		spot float64
		step int
		rng  int
	}{
		{25241.7, 50, 1000},
		{83012.4, 100, 1000},
		{19999.9, 50, 50},
		{100, 25, 0},
	}
	for _, tc := range cases {
		got := Window(tc.spot, tc.step, tc.rng)
		if len(got) != Count(tc.rng, tc.step) {
			t.Fatalf("Window(%v, %d, %d) len = %d, want %d", tc.spot, tc.step, tc.rng, len(got), Count(tc.rng, tc.step))
		}
		for i := 1; i < len(got); i++ {
			if got[i]-got[i-1] != tc.step {
				t.Fatalf("strikes not evenly spaced at %d: %v", i, got)
			}
		}
		center := RoundToStep(tc.spot, tc.step)
		for i := range got {
			if got[i]+got[len(got)-1-i] != 2*center {
				t.Fatalf("strikes not symmetric around %d: %v", center, got)
			}
		}
	}
}

func TestWindowBounds(t *testing.T) {
	got := Window(25241.7, 50, 1000)
	if got[0] != 24250 || got[len(got)-1] != 26250 {
		t.Fatalf("unexpected bounds %d..%d", got[0], got[len(got)-1])
	}
	if len(got) != 41 {
		t.Fatalf("expected 41 strikes, got %d", len(got))
	}
}

func TestWindowDeterministic(t *testing.T) {
	a := Window(83012.4, 100, 500)
	b := Window(83012.4, 100, 500)
	if len(a) != len(b) {
		t.Fatal("identical input must yield identical output")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("mismatch at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestWindowInvalidInput(t *testing.T) {
	if Window(100, 0, 100) != nil {
		t.Fatal("zero step should yield nil")
	}
	if Window(100, 50, -1) != nil {
		t.Fatal("negative range should yield nil")
	}
}

func TestValidate(t *testing.T) {
	got := Validate([]int{-50, 0, 50, 100})
	if len(got) != 2 || got[0] != 50 || got[1] != 100 {
		t.Fatalf("unexpected result %v", got)
	}
}
