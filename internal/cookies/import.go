package cookies

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format identifies the layout of a cookie store.
type Format int

const (
	FormatUnknown Format = iota
	FormatFirefox
	FormatChrome
	FormatNetscape
)

func (f Format) String() string {
	switch f {
	case FormatFirefox:
		return "Firefox"
	case FormatChrome:
		return "Chrome"
	case FormatNetscape:
		return "Netscape"
	}
	return "unknown"
}

// Import reads the cookies for domain (and its subdomains) from the store
// at path. Expired cookies are dropped.
func Import(path, domain string) ([]*http.Cookie, Format, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, FormatUnknown, err
	}

	var cookies []*http.Cookie
	switch format {
	case FormatFirefox, FormatChrome:
		cookies, err = importSQLite(path, domain, format)
	case FormatNetscape:
		cookies, err = parseNetscape(path, domain, time.Now())
	}
	if err != nil {
		return nil, format, err
	}
	return cookies, format, nil
}

// importSQLite works on a private copy so the browser's lock on the live
// database does not get in the way.
func importSQLite(path, domain string, format Format) ([]*http.Cookie, error) {
	dir, err := os.MkdirTemp("", "packtgrab-cookies-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		return nil, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(path + suffix); err == nil {
			_ = copyFile(path+suffix, dst+suffix)
		}
	}
	return querySQLite(dst, domain, format, time.Now())
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// matchesDomain accepts the exact host, its dotted form, and subdomains.
func matchesDomain(cookieDomain, domain string) bool {
	dot := "." + domain
	return cookieDomain == domain || cookieDomain == dot || strings.HasSuffix(cookieDomain, dot)
}
