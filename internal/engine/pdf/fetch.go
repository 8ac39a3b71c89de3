package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/smileynet/docshell/internal/source"
)

// maxDocumentBytes caps remote downloads.
const maxDocumentBytes = 256 << 20

// read returns the bytes behind src and a display name for it. Relative
// references resolve against base, which may be a URL or a directory.
func (e *Engine) read(ctx context.Context, src source.Source, base string) ([]byte, string, error) {
	name := src.DisplayName()
	if src.HasData() {
		return src.Data, name, nil
	}
	if src.IsZero() {
		return nil, name, fmt.Errorf("pdf: empty document source")
	}
	if src.IsBlob() {
		return nil, name, fmt.Errorf("pdf: unresolved blob reference %s", src.Ref)
	}

	loc, err := resolve(src.Ref, base)
	if err != nil {
		return nil, name, err
	}
	switch loc.Scheme {
	case "http", "https":
		data, err := e.download(ctx, loc.String())
		return data, name, err
	case "file":
		data, err := readFile(loc.Path)
		return data, name, err
	default:
		return nil, name, fmt.Errorf("pdf: unsupported scheme %q in %s", loc.Scheme, src.Ref)
	}
}

// resolve turns ref into an absolute http(s) or file URL. Local refs
// starting with "/" are root-relative like web paths: they are tried as
// absolute paths first and then under base.
func resolve(ref, base string) (*url.URL, error) {
	if isURL(ref) {
		return url.Parse(ref)
	}
	if isURL(base) {
		b, _ := url.Parse(base)
		switch b.Scheme {
		case "http", "https":
			rel, err := url.Parse(ref)
			if err != nil {
				return nil, fmt.Errorf("pdf: invalid reference %q: %w", ref, err)
			}
			return b.ResolveReference(rel), nil
		case "file":
			base = filepath.FromSlash(b.Path)
		}
	}

	p := filepath.FromSlash(ref)
	if filepath.IsAbs(p) {
		if _, err := os.Stat(p); err == nil || base == "" {
			return fileURL(p), nil
		}
	}
	if base == "" {
		base = "."
	}
	return fileURL(filepath.Join(base, strings.TrimLeft(p, string(filepath.Separator)))), nil
}

// isURL reports whether s carries a scheme. Single-letter schemes are
// Windows drive letters.
func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && len(u.Scheme) > 1
}

func fileURL(p string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
}

func readFile(p string) ([]byte, error) {
	data, err := os.ReadFile(filepath.FromSlash(p))
	if err != nil {
		return nil, fmt.Errorf("pdf: reading %s: %w", path.Base(p), err)
	}
	return data, nil
}

func (e *Engine) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("pdf: building request for %s: %w", u, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdf: fetching %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf: fetching %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("pdf: reading %s: %w", u, err)
	}
	return data, nil
}
