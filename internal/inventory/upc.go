package inventory

import "strings"

// NormalizeUPC strips spaces and hyphens. It returns false if anything
// other than digits remains.
func NormalizeUPC(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return "", false
		}
	}
	return b.String(), true
}

// ValidUPC reports whether s is a UPC-A, UPC-E, EAN-13 or EAN-8 code with a
// correct check digit.
func ValidUPC(s string) bool {
	code, ok := NormalizeUPC(s)
	if !ok {
		return false
	}
	switch len(code) {
	case 12:
		return checkDigit(code, 3, 1)
	case 13:
		return checkDigit(code, 1, 3)
	case 8:
		// UPC-E and EAN-8 share a length.
		return checkDigit(expandUPCE(code), 3, 1) || checkDigit(code, 3, 1)
	}
	return false
}

// checkDigit verifies the last digit of code. Digits alternate between the
// even and odd weights starting with even at index 0.
func checkDigit(code string, even, odd int) bool {
	n := len(code) - 1
	sum := 0
	for i := 0; i < n; i++ {
		w := odd
		if i%2 == 0 {
			w = even
		}
		sum += int(code[i]-'0') * w
	}
	return (10-sum%10)%10 == int(code[n]-'0')
}

// expandUPCE converts an 8-digit UPC-E code to its 12-digit UPC-A form.
func expandUPCE(e string) string {
	ns, d, check := e[:1], e[1:7], e[7:]
	var body string
	switch d[5] {
	case '0', '1', '2':
		body = d[0:2] + d[5:6] + "0000" + d[2:5]
	case '3':
		body = d[0:3] + "00000" + d[3:5]
	case '4':
		body = d[0:4] + "00000" + d[4:5]
	default:
		body = d[0:5] + "0000" + d[5:6]
	}
	return ns + body + check
}
