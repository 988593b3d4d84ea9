// Package frontmatter splits page sources into YAML frontmatter and body and
// fingerprints them.
package frontmatter

import (
	"bytes"
	"errors"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Split separates YAML frontmatter (`---` delimited) from the body.
// If the document has no frontmatter, had is false and body is the input.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return nil, content, false, nil
	}
	rest := content[len("---\n"):]
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return []byte{}, rest[len("---\n"):], true, nil
	}
	idx := bytes.Index(rest, []byte("\n---\n"))
	if idx < 0 {
		if bytes.HasSuffix(rest, []byte("\n---")) {
			return rest[:len(rest)-len("---")], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return rest[:idx+1], rest[idx+len("\n---\n"):], true, nil
}

// Parse splits content and decodes the frontmatter. Fields is never nil.
func Parse(content []byte) (fields map[string]any, body []byte, err error) {
	fm, body, _, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields = map[string]any{}
	if len(bytes.TrimSpace(fm)) == 0 {
		return fields, body, nil
	}
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, body, nil
}

// Fingerprint returns the mdfp content fingerprint of a page source. Keys
// are serialized in sorted order so the result is stable.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField {
			continue
		}
		hashed[k] = v
	}
	fm := ""
	if len(hashed) > 0 {
		out, err := yaml.Marshal(hashed)
		if err != nil {
			return "", err
		}
		fm = strings.TrimSuffix(string(out), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(fm, string(body)), nil
}
