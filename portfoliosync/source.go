package portfoliosync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

const fetchTimeout = 2 * time.Minute

// Query parameters that only carry link expiry; stripped before fetching so
// a pasted share link keeps working past its displayed expiry stamp.
var expiryParams = []string{"expires", "Expires", "x-amz-expires", "X-Amz-Expires", "se", "expiry"}

var (
	driveFilePattern = regexp.MustCompile(`drive\.google\.com/file/d/([^/]+)`)
	driveOpenPattern = regexp.MustCompile(`drive\.google\.com/open\?id=([^&]+)`)
	sheetPattern     = regexp.MustCompile(`docs\.google\.com/spreadsheets/d/([^/]+)`)
)

// RewriteShareLink unwraps common cloud-file-share link shapes into direct
// download form. Unknown URLs pass through untouched.
func RewriteShareLink(raw string) string {
	if m := driveFilePattern.FindStringSubmatch(raw); m != nil {
		return "https://drive.google.com/uc?export=download&id=" + m[1]
	}
	if m := driveOpenPattern.FindStringSubmatch(raw); m != nil {
		return "https://drive.google.com/uc?export=download&id=" + m[1]
	}
	if m := sheetPattern.FindStringSubmatch(raw); m != nil {
		return "https://docs.google.com/spreadsheets/d/" + m[1] + "/export?format=xlsx"
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := strings.ToLower(u.Host)
	query := u.Query()

	if strings.Contains(host, "dropbox.com") {
		query.Set("dl", "1")
	}
	if strings.Contains(host, "1drv.ms") || strings.Contains(host, "sharepoint.com") || strings.Contains(host, "onedrive.live.com") {
		query.Set("download", "1")
	}

	for _, param := range expiryParams {
		query.Del(param)
	}

	u.RawQuery = query.Encode()
	return u.String()
}

// FetchSource retrieves the ingestion source: a local path or an http(s)
// URL. Remote fetches follow at most one redirect before failing.
func FetchSource(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrUnsupportedSource
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchRemote(ctx, RewriteShareLink(source))
	}

	if strings.Contains(source, "://") {
		return nil, ErrUnsupportedSource
	}

	return os.ReadFile(source)
}

func fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 2 {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote source returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
