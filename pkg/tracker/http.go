package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// doJSON sends req and decodes a JSON response into out. A 404 wraps
// ErrNotFound, transport failures wrap ErrConnection.
func doJSON(ctx context.Context, client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s %s: %s", ErrNotFound, req.Method, req.URL.Path, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// matchesAtStart reports whether pattern matches a prefix of id.
func matchesAtStart(pattern *regexp.Regexp, id string) bool {
	loc := pattern.FindStringIndex(id)
	return loc != nil && loc[0] == 0
}
