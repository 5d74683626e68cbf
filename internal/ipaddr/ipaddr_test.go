package ipaddr_test

import (
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoip/internal/ipaddr"
)

func TestParse_KnownValues(t *testing.T) {
	tests := []struct {
		ip   string
		want ipaddr.Address
	}{
		{"87.229.134.24", 1474659864},
		{"217.212.248.160", 3654613152},
		{"188.65.186.96", 3158424160},
		{"0.0.0.0", 0},
		{"255.255.255.255", math.MaxUint32},
		{"1.0.0.0", 16777216},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, ipaddr.Parse(tt.ip))
		})
	}
}

func TestFormat_KnownValues(t *testing.T) {
	assert.Equal(t, "87.229.134.24", ipaddr.Format(1474659864))
	assert.Equal(t, "217.212.248.160", ipaddr.Format(3654613152))
	assert.Equal(t, "188.65.186.96", ipaddr.Format(3158424160))
	assert.Equal(t, "0.0.0.0", ipaddr.Format(0))
	assert.Equal(t, "255.255.255.255", ipaddr.Format(math.MaxUint32))
	assert.Equal(t, "10.0.0.1", ipaddr.Address(167772161).String())
}

func TestRoundTrip_Integers(t *testing.T) {
	edges := []uint32{0, 1, 255, 256, 65535, 65536, 1<<24 - 1, 1 << 24, math.MaxUint32 - 1, math.MaxUint32}
	for _, n := range edges {
		assert.Equal(t, ipaddr.Address(n), ipaddr.Parse(ipaddr.Format(ipaddr.Address(n))))
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100000; i++ {
		n := ipaddr.Address(rng.Uint32())
		require.Equal(t, n, ipaddr.Parse(ipaddr.Format(n)), "round trip of %d", uint32(n))
	}
}

func TestRoundTrip_Text(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100000; i++ {
		s := strconv.Itoa(rng.Intn(256)) + "." + strconv.Itoa(rng.Intn(256)) + "." +
			strconv.Itoa(rng.Intn(256)) + "." + strconv.Itoa(rng.Intn(256))
		require.Equal(t, s, ipaddr.Format(ipaddr.Parse(s)))
	}
}

func TestDecompose(t *testing.T) {
	a, b, c, d := ipaddr.Decompose(1474659864)
	assert.Equal(t, [4]byte{87, 229, 134, 24}, [4]byte{a, b, c, d})

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		n := ipaddr.Address(rng.Uint32())
		a, b, c, d := ipaddr.Decompose(n)
		require.Equal(t, n, ipaddr.FromOctets(a, b, c, d))
		require.Equal(t, uint16(a)<<8|uint16(b), n.Prefix())
		require.Equal(t, uint16(c)*256+uint16(d), n.SubIndex())
	}
}

func TestParse_Permissive(t *testing.T) {
	// Malformed input never panics and never errors.
	for _, s := range []string{"", "1.2.3", "a.b.c.d", "1.2.3.4.5", "999.0.0.0", "..."} {
		assert.NotPanics(t, func() { ipaddr.Parse(s) }, s)
	}
	assert.Equal(t, ipaddr.Address(0x01020300), ipaddr.Parse("1.2.3"))
	assert.Equal(t, ipaddr.Address(0), ipaddr.Parse("x.y.z.w"))
}

func TestParseStrict(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		want    ipaddr.Address
		wantErr bool
	}{
		{name: "valid", ip: "87.229.134.24", want: 1474659864},
		{name: "max", ip: "255.255.255.255", want: math.MaxUint32},
		{name: "leading zeros", ip: "010.0.0.1", want: 167772161},
		{name: "three octets", ip: "1.2.3", wantErr: true},
		{name: "five octets", ip: "1.2.3.4.5", wantErr: true},
		{name: "octet out of range", ip: "256.1.1.1", wantErr: true},
		{name: "negative octet", ip: "1.-2.3.4", wantErr: true},
		{name: "signed octet", ip: "1.+2.3.4", wantErr: true},
		{name: "non numeric", ip: "1.two.3.4", wantErr: true},
		{name: "empty octet", ip: "1..3.4", wantErr: true},
		{name: "empty", ip: "", wantErr: true},
		{name: "ipv6", ip: "2001:db8::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ipaddr.ParseStrict(tt.ip)
			if tt.wantErr {
				require.ErrorIs(t, err, ipaddr.ErrInvalidAddressFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
