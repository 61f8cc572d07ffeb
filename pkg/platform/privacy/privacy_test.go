package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{name: "ipv4 zeroes last octet", ip: "192.168.1.47", want: "192.168.1.0"},
		{name: "ipv4-mapped ipv6 treated as ipv4", ip: "::ffff:10.1.2.3", want: "10.1.2.0"},
		{name: "ipv6 keeps /48", ip: "2001:db8:85a3::8a2e:370:7334", want: "2001:db8:85a3::"},
		{name: "empty", ip: "", want: "unknown"},
		{name: "unknown passthrough", ip: "unknown", want: "unknown"},
		{name: "garbage", ip: "not-an-ip", want: "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.ip))
		})
	}
}

func TestTokenFingerprint(t *testing.T) {
	assert.Empty(t, TokenFingerprint(""))

	fp := TokenFingerprint("secret-token")
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, TokenFingerprint("secret-token"))
	assert.NotEqual(t, fp, TokenFingerprint("other-token"))
	assert.NotContains(t, fp, "secret")
}
