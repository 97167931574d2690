// Package identity validates Turkish national identification numbers (TC
// kimlik no). The checksum algorithm is pure; nothing here touches the
// database or the network.
package identity

import (
	"github.com/kulupsoft/klub/pkg/apperr"
)

// Validate checks an 11-digit TC identification number and reports the first
// rule it violates. The rules, in order:
//
//   - exactly 11 characters, all ASCII digits
//   - first digit must not be '0'
//   - the first ten digits all identical is rejected; "11111111110"
//     satisfies the raw checksums but is not a real ID
//   - (d0+d2+d4+d6+d8)*7 - (d1+d3+d5+d7) mod 10 must equal d9
//   - (d0+...+d9) mod 10 must equal d10
func Validate(tc string) error {
	if len(tc) != 11 {
		return apperr.Validation("national ID must be 11 digits, got %d characters", len(tc))
	}

	var d [11]int
	for i := 0; i < 11; i++ {
		ch := tc[i]
		if ch < '0' || ch > '9' {
			return apperr.Validation("national ID must contain only digits")
		}
		d[i] = int(ch - '0')
	}

	if d[0] == 0 {
		return apperr.Validation("national ID cannot start with 0")
	}

	allSame := true
	for i := 1; i < 10; i++ {
		if d[i] != d[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return apperr.Validation("national ID cannot be a repeated digit")
	}

	sumOdd := d[0] + d[2] + d[4] + d[6] + d[8]
	sumEven := d[1] + d[3] + d[5] + d[7]

	// Go's % can go negative; normalize before comparing.
	check10 := (sumOdd*7 - sumEven) % 10
	if check10 < 0 {
		check10 += 10
	}
	if check10 != d[9] {
		return apperr.Validation("national ID checksum mismatch")
	}

	sumTen := 0
	for i := 0; i < 10; i++ {
		sumTen += d[i]
	}
	if sumTen%10 != d[10] {
		return apperr.Validation("national ID checksum mismatch")
	}

	return nil
}

// IsValid is a convenience wrapper around Validate.
func IsValid(tc string) bool {
	return Validate(tc) == nil
}
