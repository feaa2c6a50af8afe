package keystore

import "strings"

// Normalize reduces a domain, host, or URL-ish string to a canonical
// lower-case host name: scheme, leading slashes, path, and port are
// all stripped. It never fails; empty input yields empty output.
//
//	Normalize("HTTPS://api.Example.com:443/v1") == "api.example.com"
func Normalize(raw string) string {
	d := strings.ToLower(raw)
	if _, after, ok := strings.Cut(d, "://"); ok {
		d = after
	}
	d = strings.TrimLeft(d, "/")
	d, _, _ = strings.Cut(d, "/")
	d, _, _ = strings.Cut(d, ":")
	return d
}
