package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	headerFlag = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	cookieFlag = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']+)'|"([^"]+)")`)
)

// headers dropped from browser auth files; they describe one request rather than the session.
var transientHeaders = map[string]bool{
	"content-length":  true,
	"accept-encoding": true,
	"priority":        true,
}

// BrowserHeaders are the session headers copied from a logged-in YouTube Music browser tab.
//
// Keys are lower-cased. The cookie is kept apart because curl may carry it in -b.
type BrowserHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ReadBrowserCurl parses a file holding a "Copy as cURL" command.
func ReadBrowserCurl(path string) (*BrowserHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseBrowserCurl(content)
}

// ParseBrowserCurl extracts headers and the cookie from a "Copy as cURL" command.
//
// Both single and double quoted values are accepted and line continuations are joined.
func ParseBrowserCurl(data []byte) (*BrowserHeaders, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "^\n", " ")

	h := &BrowserHeaders{Headers: make(map[string]string)}
	for _, m := range headerFlag.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(quoted(m), ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch {
		case key == "cookie":
			h.Cookie = value
		case key != "" && !transientHeaders[key]:
			h.Headers[key] = value
		}
	}

	if m := cookieFlag.FindStringSubmatch(cmd); m != nil {
		h.Cookie = quoted(m)
	}

	if len(h.Headers) == 0 && h.Cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidInput)
	}
	return h, nil
}

func quoted(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// Validate checks that the headers can authenticate a YouTube Music session.
func (h *BrowserHeaders) Validate() error {
	if h.Cookie == "" {
		return fmt.Errorf("%w: curl command carries no cookie; copy a request made while signed in", ErrAuthFailed)
	}
	if !strings.Contains(h.Cookie, "SAPISID") {
		return fmt.Errorf("%w: cookie has no SAPISID; copy a request to music.youtube.com while signed in", ErrAuthFailed)
	}
	return nil
}

// AuthFile returns the header map written to browser.json, cookie included.
func (h *BrowserHeaders) AuthFile() map[string]string {
	out := make(map[string]string, len(h.Headers)+1)
	for k, v := range h.Headers {
		out[k] = v
	}
	if h.Cookie != "" {
		out["cookie"] = h.Cookie
	}
	return out
}

// Keys lists the header names in sorted order, for display without values.
func (h *BrowserHeaders) Keys() []string {
	keys := make([]string, 0, len(h.Headers)+1)
	for k := range h.AuthFile() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteBrowserAuth validates h and writes it as JSON to path, readable only by the owner.
func WriteBrowserAuth(path string, h *BrowserHeaders) error {
	if err := h.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(h.AuthFile(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode auth file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}
