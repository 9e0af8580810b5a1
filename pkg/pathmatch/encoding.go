package pathmatch

import (
	"fmt"
	"net/url"
	"strings"
)

// Encoding selects the escaping table applied to URL-position parameter
// values. It is a per-call choice and is never baked into a compiled Path.
type Encoding string

const (
	// EncodingDefault percent-encodes everything except unreserved
	// characters and the sub-delimiters the path grammar itself uses.
	EncodingDefault Encoding = "default"

	// EncodingURIComponent percent-encodes everything except unreserved
	// characters.
	EncodingURIComponent Encoding = "uriComponent"

	// EncodingURI percent-encodes only characters that are invalid in a URI,
	// leaving reserved characters intact.
	EncodingURI Encoding = "uri"

	// EncodingNone applies no escaping in either direction.
	EncodingNone Encoding = "none"

	// EncodingLegacy behaves like EncodingURI on encode and additionally
	// converts "+" to a space on decode.
	EncodingLegacy Encoding = "legacy"
)

const unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// subDelims are kept verbatim under the default encoding so values like
// "a:b" or "x+y" survive in segment position.
const subDelims = "!$'()*+,;:@"

// uriSafe is everything encodeURI-style escaping leaves alone.
const uriSafe = unreserved + subDelims + "/?#[]&="

func escapeWith(value, safe string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func encodeParamValue(value string, enc Encoding) string {
	switch enc {
	case EncodingNone:
		return value
	case EncodingURIComponent:
		return escapeWith(value, unreserved)
	case EncodingURI, EncodingLegacy:
		return escapeWith(value, uriSafe)
	default:
		return escapeWith(value, unreserved+subDelims)
	}
}

func decodeParamValue(value string, enc Encoding) string {
	switch enc {
	case EncodingNone:
		return value
	case EncodingLegacy:
		value = strings.ReplaceAll(value, "+", " ")
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

// encodeSplatValue encodes a splat value segment by segment, preserving the
// "/" separators between captured segments.
func encodeSplatValue(value string, enc Encoding) string {
	segments := strings.Split(value, "/")
	for i, s := range segments {
		segments[i] = encodeParamValue(s, enc)
	}
	return strings.Join(segments, "/")
}

func decodeSplatValue(value string, enc Encoding) string {
	segments := strings.Split(value, "/")
	for i, s := range segments {
		segments[i] = decodeParamValue(s, enc)
	}
	return strings.Join(segments, "/")
}
