// Package ipaddr converts IPv4 addresses between dotted-decimal text and
// their 32-bit integer form.
package ipaddr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAddressFormat is returned by ParseStrict for anything that is not
// exactly four decimal octets in [0,255] separated by dots.
var ErrInvalidAddressFormat = errors.New("invalid IP address format")

// Address is an IPv4 address as a 32-bit unsigned integer, most significant
// octet first.
type Address uint32

// Parse converts dotted-decimal text to an Address. It does not validate:
// missing or non-numeric octets count as zero and oversized octets spill into
// neighbouring bytes. Use ParseStrict when the input is untrusted.
func Parse(s string) Address {
	parts := strings.SplitN(s, ".", 4)

	var result uint32
	for i := 0; i < 4; i++ {
		var v uint64
		if i < len(parts) {
			v, _ = strconv.ParseUint(parts[i], 10, 32)
		}
		result += uint32(v) << (8 * uint(3-i))
	}
	return Address(result)
}

// ParseStrict is like Parse but fails with ErrInvalidAddressFormat unless s
// has exactly four octets, each a decimal number in [0,255].
func ParseStrict(s string) (Address, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q has %d octets", ErrInvalidAddressFormat, s, len(parts))
	}

	var result uint32
	for _, part := range parts {
		if part == "" || len(part) > 3 || part[0] == '+' {
			return 0, fmt.Errorf("%w: bad octet %q in %q", ErrInvalidAddressFormat, part, s)
		}
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: bad octet %q in %q", ErrInvalidAddressFormat, part, s)
		}
		result = result<<8 | uint32(v)
	}
	return Address(result), nil
}

// Format renders an Address as dotted-decimal text.
func Format(addr Address) string {
	a, b, c, d := Decompose(addr)

	buf := make([]byte, 0, 15)
	buf = strconv.AppendUint(buf, uint64(a), 10)
	buf = append(buf, '.')
	buf = strconv.AppendUint(buf, uint64(b), 10)
	buf = append(buf, '.')
	buf = strconv.AppendUint(buf, uint64(c), 10)
	buf = append(buf, '.')
	buf = strconv.AppendUint(buf, uint64(d), 10)
	return string(buf)
}

// Decompose splits an Address into its four octets, most significant first.
func Decompose(addr Address) (a, b, c, d byte) {
	return byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)
}

// FromOctets is the inverse of Decompose.
func FromOctets(a, b, c, d byte) Address {
	return Address(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// Prefix returns the top 16 bits (a*256+b), the index of the address's /16 block.
func (addr Address) Prefix() uint16 {
	return uint16(addr >> 16)
}

// SubIndex returns the low 16 bits (c*256+d), the offset inside the /16 block.
func (addr Address) SubIndex() uint16 {
	return uint16(addr)
}

func (addr Address) String() string {
	return Format(addr)
}
