package assert

import (
	"regexp"
	"strings"
	"unicode"
)

// Domain matchers for values scraped out of rendered pages.

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	priceRe = regexp.MustCompile(`^[$€£¥]\d{1,3}(,\d{3})*(\.\d{2})?$`)
	urlRe   = regexp.MustCompile(`^https?://[^\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// ValidPhone reports whether s looks like a phone number.
func ValidPhone(s string) bool { return phoneRe.MatchString(s) }

// ValidPrice reports whether s looks like a rendered price, e.g. "$29.99".
func ValidPrice(s string) bool { return priceRe.MatchString(strings.TrimSpace(s)) }

// ValidURL reports whether s looks like an absolute http(s) URL.
func ValidURL(s string) bool { return urlRe.MatchString(s) }

var stockedSizes = map[string]bool{
	"xs": true, "s": true, "m": true, "l": true, "xl": true, "xxl": true,
}

// ContainsSockSize reports whether the text mentions at least one stocked
// sock size as a standalone word.
func ContainsSockSize(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if stockedSizes[w] {
			return true
		}
	}
	return false
}

// ValidCreditCard reports whether the digits pass a Luhn check. Spaces and
// hyphens are ignored.
func ValidCreditCard(number string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == ' ' || r == '-' {
			return -1
		}
		return 'x'
	}, number)
	if strings.ContainsRune(cleaned, 'x') || len(cleaned) < 13 || len(cleaned) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(cleaned) - 1; i >= 0; i-- {
		d := int(cleaned[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
