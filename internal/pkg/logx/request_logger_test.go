package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	cases := map[string]string{
		"203.0.113.57:4242":       "203.0.113.0",
		"203.0.113.57":            "203.0.113.0",
		"127.0.0.1:8080":          "loopback",
		"[::1]:8080":              "loopback",
		"2001:db8:85a3::8a2e:0:1": "2001:db8:85a3::",
		"not-an-address":          "unknown_ip",
	}

	for in, want := range cases {
		assert.Equal(t, want, anonymizeIP(in), in)
	}
}
