package postgres

import (
	"net/url"
	"strings"
)

const (
	binaryResultParam = "disable_prepared_binary_result"
	maxTracedQueryLen = 512
)

// PrepareDSN turns off binary results for prepared statements unless the DSN
// already decides, which transaction-mode poolers require. URL and key=value
// DSNs are both accepted.
func PrepareDSN(raw string, disablePreparedBinary bool) string {
	raw = strings.TrimSpace(raw)
	if !disablePreparedBinary || raw == "" {
		return raw
	}

	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		q := u.Query()
		if q.Has(binaryResultParam) {
			return raw
		}
		q.Set(binaryResultParam, "yes")
		u.RawQuery = q.Encode()
		return u.String()
	}

	if _, ok := dsnValue(raw, binaryResultParam); ok {
		return raw
	}
	return raw + " " + binaryResultParam + "=yes"
}

// DatabaseName extracts the database for span attributes, or "".
func DatabaseName(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		if name := strings.Trim(u.Path, "/ "); name != "" {
			return name
		}
	}
	name, _ := dsnValue(raw, "dbname")
	return name
}

func dsnValue(dsn, key string) (string, bool) {
	for _, field := range strings.Fields(dsn) {
		k, v, ok := strings.Cut(field, "=")
		if ok && k == key {
			return strings.Trim(v, `'"`), true
		}
	}
	return "", false
}

// TraceQuery collapses whitespace and caps the length of a statement
// recorded on a span.
func TraceQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= maxTracedQueryLen {
		return query
	}
	return query[:maxTracedQueryLen] + "..."
}
