package contract

import "testing"

func TestBuildOrder(t *testing.T) {
	u := Build("NIFTY", "261020", []int{25250})
	got := u.Symbols()
	if len(got) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(got))
	}
	if got[0] != "NIFTY26102025250CE" || got[1] != "NIFTY26102025250PE" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestBuildLength(t *testing.T) {
	strikes := []int{24900, 24950, 25000, 25050}
	u := Build("NIFTY", "26303", strikes, Call, Put)
	if u.Len() != len(strikes)*2 {
		t.Fatalf("expected %d contracts, got %d", len(strikes)*2, u.Len())
	}
	calls := Build("NIFTY", "26303", strikes, Call)
	if calls.Len() != len(strikes) {
		t.Fatalf("single type should yield one contract per strike")
	}

	symbols := u.Symbols()
	for i := 0; i < len(symbols); i += 2 {
		call, _ := u.Lookup(symbols[i])
		put, _ := u.Lookup(symbols[i+1])
		if call.Strike != strikes[i/2] || call.Type != Call || put.Type != Put {
			t.Fatalf("strike order not preserved at %d: %+v", i, call)
		}
	}
}

func TestLookupAndLabel(t *testing.T) {
	u := Build("SENSEX", "261015", []int{83000, 83100})
	c, ok := u.Lookup("SENSEX26101583100PE")
	if !ok {
		t.Fatal("symbol should resolve")
	}
	if c.Label() != "83100 PE" {
		t.Fatalf("unexpected label %q", c.Label())
	}
	if _, ok := u.Lookup("SENSEX26101583200PE"); ok {
		t.Fatal("unknown symbol must not resolve")
	}
}

func TestMerge(t *testing.T) {
	a := Build("NIFTY", "261020", []int{25000})
	b := Build("BANKNIFTY", "261020", []int{56000})
	m := a.Merge(b)
	if m.Len() != 4 {
		t.Fatalf("expected 4, got %d", m.Len())
	}
	if m.Symbols()[2] != "BANKNIFTY26102056000CE" {
		t.Fatalf("merge must keep order: %v", m.Symbols())
	}
	if _, ok := m.Lookup("NIFTY26102025000PE"); !ok {
		t.Fatal("merged universe lost a contract")
	}
}
