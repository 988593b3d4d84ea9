package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		fm      string
		body    string
		had     bool
		wantErr error
	}{
		{"no frontmatter", "# Title\n", "", "# Title\n", false, nil},
		{"with frontmatter", "---\ntitle: About\n---\n# About\n", "title: About\n", "# About\n", true, nil},
		{"empty frontmatter", "---\n---\nbody", "", "body", true, nil},
		{"crlf", "---\r\ntitle: X\r\n---\r\nbody\r\n", "title: X\n", "body\n", true, nil},
		{"closing at eof", "---\ntitle: X\n---", "title: X\n", "", true, nil},
		{"unterminated", "---\ntitle: X\n", "", "", false, ErrMissingClosingDelimiter},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fm, body, had, err := Split([]byte(c.in))
			if c.wantErr != nil {
				require.ErrorIs(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.fm, string(fm))
			assert.Equal(t, c.body, string(body))
			assert.Equal(t, c.had, had)
		})
	}
}

func TestParse(t *testing.T) {
	fields, body, err := Parse([]byte("---\ntitle: About us\npassToClient: [title]\n---\nHello\n"))
	require.NoError(t, err)
	assert.Equal(t, "About us", fields["title"])
	assert.Equal(t, []any{"title"}, fields["passToClient"])
	assert.Equal(t, "Hello\n", string(body))

	fields, _, err = Parse([]byte("plain"))
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestFingerprintStableAndSensitive(t *testing.T) {
	a, err := Fingerprint(map[string]any{"title": "A", "lang": "en"}, []byte("body"))
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"lang": "en", "title": "A"}, []byte("body"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)

	c, err := Fingerprint(map[string]any{"title": "A", "lang": "en"}, []byte("body2"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
