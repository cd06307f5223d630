// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when callers do not supply a region.
const DefaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 using the default region.
// If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// CountryCode returns the calling code digits for a region ("1" for US,
// "91" for IN). Falls back to the default region for unknown input.
func CountryCode(region string) string {
	code := phonenumbers.GetCountryCodeForRegion(normRegion(region))
	if code == 0 {
		code = phonenumbers.GetCountryCodeForRegion(DefaultRegion)
	}
	return strconv.Itoa(code)
}

// Canonical converts a raw phone number to the single canonical international
// form used for dialing. Non-digits are stripped; a number already carrying
// the region's calling code gets a leading "+"; a bare 10-digit local number
// gets the calling code prepended; anything else keeps its digits behind a
// leading "+". When the result parses as a valid number, the E.164 formatting
// from the phonenumbers library is authoritative.
func Canonical(input, region string) string {
	digits := Digits(input)
	if digits == "" {
		return ""
	}

	cc := CountryCode(region)

	var candidate string
	switch {
	case strings.HasPrefix(digits, cc) && len(digits) == 10+len(cc):
		candidate = "+" + digits
	case len(digits) == 10:
		candidate = "+" + cc + digits
	default:
		candidate = "+" + digits
	}

	parsed, err := phonenumbers.Parse(candidate, normRegion(region))
	if err == nil && phonenumbers.IsValidNumber(parsed) {
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}

	return candidate
}

// Variants enumerates the spellings a number may be stored under across
// systems: the original string, its digits, the digits with and without the
// region's calling code, and the canonical form. Order is significant; the
// first variant that matches a stored lead wins.
func Variants(input, region string) []string {
	trimmed := strings.TrimSpace(input)
	digits := Digits(trimmed)
	cc := CountryCode(region)

	candidates := []string{trimmed, digits}
	if digits != "" {
		if strings.HasPrefix(digits, cc) && len(digits) > 10 {
			candidates = append(candidates, strings.TrimPrefix(digits, cc))
		} else {
			candidates = append(candidates, cc+digits)
		}
		candidates = append(candidates, "+"+digits)
	}
	candidates = append(candidates, Canonical(trimmed, region))

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Digits strips every non-digit rune from the input.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Plausible reports whether the input carries enough digits to be dialable.
func Plausible(input string) bool {
	return len(Digits(input)) >= 10
}

func normRegion(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return DefaultRegion
	}
	return region
}
