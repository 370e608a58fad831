package instance

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/scheduler"
)

// maxBody caps the size of a fetched instance.
const maxBody = 64 << 20

// IsRemote reports whether src names an http(s) resource.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch downloads an instance with cli. The format follows the response
// content type, then the URL extension, and defaults to JSON.
func Fetch(ctx context.Context, cli *http.Client, url string, log logger.Logger) (scheduler.Instance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scheduler.Instance{}, err
	}
	req.Header.Set("Accept", "application/json, application/yaml")
	resp, err := cli.Do(req)
	if err != nil {
		return scheduler.Instance{}, fmt.Errorf("fetch instance: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return scheduler.Instance{}, fmt.Errorf("fetch instance: unexpected status %d", resp.StatusCode)
	}
	return Decode(io.LimitReader(resp.Body, maxBody), formatOf(resp.Header.Get("Content-Type"), url), log)
}

func formatOf(contentType, url string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case strings.HasSuffix(mt, "yaml"):
			return "yaml"
		case strings.HasSuffix(mt, "json"):
			return "json"
		}
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	switch strings.ToLower(path.Ext(url)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
