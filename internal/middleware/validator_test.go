package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHostname(t *testing.T) {
	got, err := SanitizeHostname("https://Example.COM/path?x=1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got)

	got, err = SanitizeHostname("sub.example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, "sub.example.com", got)

	for _, bad := range []string{"", "  ", "exa mple.com", "-bad.com", "bad-.com"} {
		_, err := SanitizeHostname(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestSanitizeIP(t *testing.T) {
	got, err := SanitizeIP(" 192.168.1.1 ")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", got)

	_, err = SanitizeIP("999.1.1.1")
	assert.Error(t, err)
}

func TestSanitizeURL(t *testing.T) {
	got, err := SanitizeURL("example.com/login")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/login", got)

	_, err = SanitizeURL("ftp://example.com")
	assert.Error(t, err)
}

func TestSanitizeEmail(t *testing.T) {
	got, err := SanitizeEmail(" User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got)

	_, err = SanitizeEmail("not-an-email")
	assert.Error(t, err)
}

func TestValidateQuery(t *testing.T) {
	got, err := ValidateQuery("  example.com ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got)

	_, err = ValidateQuery("   ")
	assert.Error(t, err)
}

func TestSanitizeInputDispatchesPerKind(t *testing.T) {
	cases := []struct {
		kind, in, want string
	}{
		{"hostname", "HTTPS://Example.COM/path", "example.com"},
		{"ip", " 192.168.1.1 ", "192.168.1.1"},
		{"url", "example.com/login", "https://example.com/login"},
		{"email", " User@Example.com ", "user@example.com"},
		{"text", " anything at all ", "anything at all"},
		{"", " anything at all ", "anything at all"},
	}
	for _, tc := range cases {
		got, err := SanitizeInput(tc.kind, tc.in)
		require.NoError(t, err, "kind %q", tc.kind)
		assert.Equal(t, tc.want, got, "kind %q", tc.kind)
	}

	_, err := SanitizeInput("hostname", "exa mple.com")
	assert.Error(t, err)
	_, err = SanitizeInput("ip", "999.1.1.1")
	assert.Error(t, err)
	_, err = SanitizeInput("email", "not-an-email")
	assert.Error(t, err)
	_, err = SanitizeInput("text", "   ")
	assert.Error(t, err, "generic limits apply to every kind")
}
