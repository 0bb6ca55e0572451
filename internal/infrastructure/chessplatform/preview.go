package chessplatform

import (
	"net/url"
	"sort"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// buildRequestPreview renders a request as a curl line with every secret
// masked, for debug logs.
func buildRequestPreview(method, fullURL string, form url.Values, admin bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart("-X")
	appendPart(method)
	appendPart(shellQuote(fullURL))
	if admin {
		appendPart("-H")
		appendPart(shellQuote("Authorization: Bearer ***"))
	}

	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := form.Get(key)
		if key == "players" {
			value = "***:***"
		}
		appendPart("-d")
		appendPart(shellQuote(key + "=" + value))
	}

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func redact(text string, secrets ...string) string {
	text = strings.TrimSpace(text)
	for _, secret := range secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			text = strings.ReplaceAll(text, secret, "REDACTED")
		}
	}
	return text
}
