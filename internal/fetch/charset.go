package fetch

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// decodeBody converts body to UTF-8 using the charset declared by the
// Content-Type header, a BOM or a <meta> tag. Undeclared bodies that are
// already valid UTF-8 pass through untouched.
func decodeBody(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	enc, name := resolveEncoding(body, contentType)
	if name == "utf-8" {
		return strings.TrimPrefix(string(body), "\ufeff"), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// detectCharset names the encoding decodeBody picks for body.
func detectCharset(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	_, name := resolveEncoding(body, contentType)
	return name
}

func resolveEncoding(body []byte, contentType string) (encoding.Encoding, string) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return nil, "utf-8"
	}
	return enc, name
}

// withCharset adds a charset parameter to contentType unless one is already
// declared.
func withCharset(contentType, name string) string {
	if name == "" {
		return contentType
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" {
		mediaType, params = "text/html", map[string]string{}
	}
	if _, ok := params["charset"]; ok {
		return contentType
	}
	params["charset"] = name
	return mime.FormatMediaType(mediaType, params)
}
