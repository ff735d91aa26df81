package priceevo

import "testing"

func TestCompareFirstPurchaseHasNoTrend(t *testing.T) {
	got := Compare([]Line{{Name: "Arroz", PriceCents: 500}}, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 evolution, got %d", len(got))
	}
	ev := got[0]
	if ev.PrevPriceCents != nil || ev.DiffCents != nil || ev.DiffPercent != nil || ev.Trend != nil {
		t.Fatalf("first purchase should carry no comparison fields: %+v", ev)
	}
}

func TestCompareTrends(t *testing.T) {
	prev := []Line{
		{Name: "Arroz", PriceCents: 500},
		{Name: "Feijao", PriceCents: 800},
		{Name: "Leite", PriceCents: 450},
		{Name: "Cafe", PriceCents: 1200},
	}
	cur := []Line{
		{Name: "Arroz", PriceCents: 550},  // up
		{Name: "Feijao", PriceCents: 700}, // down
		{Name: "Leite", PriceCents: 451},  // within deadband
		{Name: "Cafe", PriceCents: 1200},  // unchanged
	}
	got := Compare(cur, prev)

	want := map[string]Trend{
		"Arroz":  TrendUp,
		"Feijao": TrendDown,
		"Leite":  TrendStable,
		"Cafe":   TrendStable,
	}
	for _, ev := range got {
		if ev.Trend == nil {
			t.Fatalf("%s: missing trend", ev.Name)
		}
		if *ev.Trend != want[ev.Name] {
			t.Errorf("%s: trend = %s, want %s", ev.Name, *ev.Trend, want[ev.Name])
		}
	}
}

func TestCompareDiffAndPercent(t *testing.T) {
	prev := []Line{{Name: "Arroz", PriceCents: 500}}
	cur := []Line{{Name: "Arroz", PriceCents: 550}}
	got := Compare(cur, prev)

	ev := got[0]
	if ev.DiffCents == nil || *ev.DiffCents != 50 {
		t.Fatalf("diff = %v, want 50", ev.DiffCents)
	}
	if ev.PrevPriceCents == nil || *ev.PrevPriceCents != 500 {
		t.Fatalf("prev = %v, want 500", ev.PrevPriceCents)
	}
	if ev.DiffPercent == nil || *ev.DiffPercent != 10.0 {
		t.Fatalf("percent = %v, want 10.0", ev.DiffPercent)
	}
}

func TestComparePercentRoundsToOneDecimal(t *testing.T) {
	prev := []Line{{Name: "Pao", PriceCents: 300}}
	cur := []Line{{Name: "Pao", PriceCents: 310}}
	got := Compare(cur, prev)

	// 10/300 = 3.333...%, rounded to one decimal.
	if got[0].DiffPercent == nil || *got[0].DiffPercent != 3.3 {
		t.Fatalf("percent = %v, want 3.3", got[0].DiffPercent)
	}
}

func TestComparePercentNegative(t *testing.T) {
	prev := []Line{{Name: "Ovo", PriceCents: 800}}
	cur := []Line{{Name: "Ovo", PriceCents: 700}}
	got := Compare(cur, prev)

	if got[0].DiffPercent == nil || *got[0].DiffPercent != -12.5 {
		t.Fatalf("percent = %v, want -12.5", got[0].DiffPercent)
	}
	if got[0].Trend == nil || *got[0].Trend != TrendDown {
		t.Fatalf("trend = %v, want down", got[0].Trend)
	}
}

func TestCompareZeroPreviousPrice(t *testing.T) {
	prev := []Line{{Name: "Brinde", PriceCents: 0}}
	cur := []Line{{Name: "Brinde", PriceCents: 100}}
	got := Compare(cur, prev)

	if got[0].DiffPercent == nil || *got[0].DiffPercent != 0 {
		t.Fatalf("percent for zero base = %v, want 0", got[0].DiffPercent)
	}
	if got[0].Trend == nil || *got[0].Trend != TrendUp {
		t.Fatalf("trend = %v, want up", got[0].Trend)
	}
}
