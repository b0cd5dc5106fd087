package cookies

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "modernc.org/sqlite"
)

// chromeEpochOffset is the number of seconds between 1601-01-01 and the Unix epoch.
const chromeEpochOffset int64 = 11_644_473_600

const (
	firefoxQuery = `
        SELECT name, value, host, path, expiry, isSecure, isHttpOnly
        FROM moz_cookies
        WHERE (host = ? OR host = ? OR host LIKE ?)
        ORDER BY path DESC, name ASC`

	// Chrome stores encrypted values in encrypted_value; those rows have an
	// empty value column and cannot be used.
	chromeQuery = `
        SELECT name, value, host_key, path, expires_utc, is_secure, is_httponly
        FROM cookies
        WHERE (host_key = ? OR host_key = ? OR host_key LIKE ?)
          AND value != ''
        ORDER BY path DESC, name ASC`
)

func querySQLite(dbPath, domain string, format Format, now time.Time) ([]*http.Cookie, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open %s cookie database: %w", format, err)
	}
	defer db.Close()

	query, toTime := firefoxQuery, firefoxExpiry
	if format == FormatChrome {
		query, toTime = chromeQuery, chromeExpiry
	}

	rows, err := db.Query(query, domain, "."+domain, "%."+domain)
	if err != nil {
		return nil, fmt.Errorf("query %s cookies: %w", format, err)
	}
	defer rows.Close()

	var cookies []*http.Cookie
	for rows.Next() {
		var (
			name, value, host, path string
			expiry                  int64
			secure, httpOnly        int
		)
		if err := rows.Scan(&name, &value, &host, &path, &expiry, &secure, &httpOnly); err != nil {
			return nil, fmt.Errorf("scan %s cookie row: %w", format, err)
		}
		expires := toTime(expiry)
		if !expires.After(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     name,
			Value:    value,
			Domain:   host,
			Path:     path,
			Expires:  expires,
			Secure:   secure != 0,
			HttpOnly: httpOnly != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s cookie rows: %w", format, err)
	}
	return cookies, nil
}

func firefoxExpiry(v int64) time.Time {
	return time.Unix(v, 0)
}

// chromeExpiry converts microseconds since 1601-01-01 to a time.
func chromeExpiry(v int64) time.Time {
	return time.Unix(v/1_000_000-chromeEpochOffset, 0)
}
