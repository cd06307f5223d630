package phone

import "testing"

func TestCanonicalBareTenDigitLocalNumber(t *testing.T) {
	got := Canonical("(415) 555-2671", "US")
	if got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
}

func TestCanonicalAlreadyCarriesCountryCode(t *testing.T) {
	got := Canonical("14155552671", "US")
	if got != "+14155552671" {
		t.Fatalf("expected +14155552671, got %q", got)
	}
}

func TestCanonicalKeepsForeignNumberBehindPlus(t *testing.T) {
	got := Canonical("+31 6 1234 5678", "US")
	if got != "+31612345678" {
		t.Fatalf("expected +31612345678, got %q", got)
	}
}

func TestCanonicalEmptyInput(t *testing.T) {
	if got := Canonical("  ", "US"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestCanonicalOtherRegionCountryCode(t *testing.T) {
	got := Canonical("9876543210", "IN")
	if got != "+919876543210" {
		t.Fatalf("expected +919876543210, got %q", got)
	}
}

func TestVariantsCoverStoredSpellings(t *testing.T) {
	variants := Variants("+1 (415) 555-2671", "US")

	want := map[string]bool{
		"+1 (415) 555-2671": false,
		"14155552671":       false,
		"4155552671":        false,
		"+14155552671":      false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for spelling, found := range want {
		if !found {
			t.Fatalf("expected variant %q in %v", spelling, variants)
		}
	}
}

func TestVariantsNoDuplicates(t *testing.T) {
	variants := Variants("4155552671", "US")
	seen := map[string]bool{}
	for _, v := range variants {
		if seen[v] {
			t.Fatalf("duplicate variant %q in %v", v, variants)
		}
		seen[v] = true
	}
}

func TestPlausible(t *testing.T) {
	if Plausible("555-1234") {
		t.Fatalf("expected short number to be implausible")
	}
	if !Plausible("(415) 555-2671") {
		t.Fatalf("expected 10-digit number to be plausible")
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+1 (415) 555-2671"); got != "14155552671" {
		t.Fatalf("expected 14155552671, got %q", got)
	}
}
