package download

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// netscapeHeader is the required first line of the cookie-jar format; the
// external tool refuses files without it.
const netscapeHeader = "# Netscape HTTP Cookie File"

// Cookie is one browser cookie in the shape the cookie-jar format needs.
type Cookie struct {
	Domain            string
	IncludeSubdomains bool
	Path              string
	Secure            bool
	// Expires is a unix timestamp; 0 marks a session cookie.
	Expires int64
	Name    string
	Value   string
}

// WriteNetscape serializes cookies in the plain-text tab-separated cookie-jar
// format, one line per cookie: domain, include-subdomains flag, path, secure
// flag, expiry, name, value.
func WriteNetscape(w io.Writer, cookies []Cookie) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, netscapeHeader); err != nil {
		return err
	}
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain,
			flag(c.IncludeSubdomains),
			path,
			flag(c.Secure),
			c.Expires,
			c.Name,
			c.Value,
		); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func flag(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// ParseNetscape reads a cookie-jar file back into cookies, skipping comments
// and blank lines. Used to verify exported files round-trip.
func ParseNetscape(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed cookie line: %q", line)
		}
		expires, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed expiry in line %q: %w", line, err)
		}
		cookies = append(cookies, Cookie{
			Domain:            fields[0],
			IncludeSubdomains: fields[1] == "TRUE",
			Path:              fields[2],
			Secure:            fields[3] == "TRUE",
			Expires:           expires,
			Name:              fields[5],
			Value:             fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// writeCookieFile creates the transient cookie file for one download call.
// The returned cleanup must run on every exit path.
func writeCookieFile(cookies []Cookie) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "ytghost-cookies-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create cookie file: %w", err)
	}
	cleanup = func() { _ = os.Remove(f.Name()) }

	if err := WriteNetscape(f, cookies); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close cookie file: %w", err)
	}
	return f.Name(), cleanup, nil
}
