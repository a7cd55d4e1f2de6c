package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"HTTPS://WWW.Example.com:443/Dalian/ch10#top": "https://www.example.com/Dalian/ch10",
		"http://example.com:80/a?b=2&a=1":            "http://example.com/a?b=2&a=1",
		"  https://m.example.com:8443/list  ":        "https://m.example.com:8443/list",
	}
	for in, want := range cases {
		got, err := NormalizeAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeAddressRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "/relative/path", "ftp://example.com/x", "https://", "://bad"} {
		_, err := NormalizeAddress(in)
		assert.Error(t, err, in)
	}
}
