// Package qs parses and builds URL query strings under configurable
// encoding strategies for arrays, booleans and null values.
//
// Building is the inverse of parsing: for any mapping built with a given
// Options value, re-parsing the result under the same Options reconstructs
// the mapping. Lossy formats are the documented exception: with
// BooleanFormatNone booleans are stringified and parse back as strings,
// with NullFormatHidden null values are dropped entirely, and under
// ArrayFormatNone and ArrayFormatComma a single-element array builds to
// one key and re-parses as a scalar, since nothing on the wire
// distinguishes the two.
package qs

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ArrayFormat controls how array values round-trip through a query string.
type ArrayFormat string

const (
	// ArrayFormatNone repeats the key: a=1&a=2.
	ArrayFormatNone ArrayFormat = "none"

	// ArrayFormatBrackets appends empty brackets: a[]=1&a[]=2.
	ArrayFormatBrackets ArrayFormat = "brackets"

	// ArrayFormatIndex appends the element index: a[0]=1&a[1]=2.
	ArrayFormatIndex ArrayFormat = "index"

	// ArrayFormatComma joins values with commas: a=1,2.
	ArrayFormatComma ArrayFormat = "comma"
)

// BooleanFormat controls how boolean values round-trip.
type BooleanFormat string

const (
	// BooleanFormatNone keeps "true" and "false" as literal strings.
	BooleanFormatNone BooleanFormat = "none"

	// BooleanFormatString converts "true"/"false" to real booleans on parse
	// and emits them as k=true / k=false on build.
	BooleanFormatString BooleanFormat = "string"

	// BooleanFormatEmptyTrue represents true as a bare key and false as an
	// absent key.
	BooleanFormatEmptyTrue BooleanFormat = "empty-true"
)

// NullFormat controls how null values round-trip.
type NullFormat string

const (
	// NullFormatDefault emits a null value as a bare key.
	NullFormatDefault NullFormat = "default"

	// NullFormatHidden omits null values entirely.
	NullFormatHidden NullFormat = "hidden"
)

// Options selects the encoding strategies used by Parse and Build.
// The zero value selects the default strategy for every concern.
type Options struct {
	ArrayFormat   ArrayFormat
	BooleanFormat BooleanFormat
	NullFormat    NullFormat
}

func (o Options) arrayFormat() ArrayFormat {
	if o.ArrayFormat == "" {
		return ArrayFormatNone
	}
	return o.ArrayFormat
}

func (o Options) booleanFormat() BooleanFormat {
	if o.BooleanFormat == "" {
		return BooleanFormatNone
	}
	return o.BooleanFormat
}

func (o Options) nullFormat() NullFormat {
	if o.NullFormat == "" {
		return NullFormatDefault
	}
	return o.NullFormat
}

// Parse decodes a query string (with or without a leading "?") into a
// mapping. Repeated keys accumulate into a []any value. A key without "="
// parses as nil, or as true under BooleanFormatEmptyTrue.
func Parse(queryString string, opts Options) map[string]any {
	params := make(map[string]any)
	queryString = strings.TrimPrefix(queryString, "?")
	if queryString == "" {
		return params
	}

	for _, pair := range strings.Split(queryString, "&") {
		if pair == "" {
			continue
		}
		name, value := splitPair(pair)
		name, isArray := normalizeName(name, opts)

		decoded := decodeValue(value, opts)
		existing, seen := params[name]
		switch {
		case !seen:
			if isArray {
				params[name] = toArray(decoded)
			} else {
				params[name] = decoded
			}
		default:
			params[name] = append(toArray(existing), flatten(decoded)...)
		}
	}
	return params
}

// Build encodes a mapping into a query string without a leading "?".
// Keys are emitted in sorted order so output is deterministic.
func Build(params map[string]any, opts Options) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		if encoded := encodeParam(name, params[name], opts); encoded != "" {
			parts = append(parts, encoded)
		}
	}
	return strings.Join(parts, "&")
}

// Filtered is the result of filtering a query string with Omit or Keep.
type Filtered struct {
	// QueryString is the surviving portion, raw pairs preserved verbatim.
	QueryString string

	// Params holds the decoded values of the pairs removed by Omit,
	// or kept by Keep.
	Params map[string]any
}

// Omit removes the named parameters from a query string. Pairs that survive
// keep their original encoding. The removed values are returned decoded.
func Omit(queryString string, names []string, opts Options) Filtered {
	return filter(queryString, names, opts, true)
}

// Keep retains only the named parameters of a query string.
func Keep(queryString string, names []string, opts Options) Filtered {
	return filter(queryString, names, opts, false)
}

func filter(queryString string, names []string, opts Options, omit bool) Filtered {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	queryString = strings.TrimPrefix(queryString, "?")
	var wantedPairs, otherPairs []string
	for _, pair := range strings.Split(queryString, "&") {
		if pair == "" {
			continue
		}
		raw, _ := splitPair(pair)
		name, _ := normalizeName(raw, opts)
		if wanted[name] {
			wantedPairs = append(wantedPairs, pair)
		} else {
			otherPairs = append(otherPairs, pair)
		}
	}

	if omit {
		return Filtered{
			QueryString: strings.Join(otherPairs, "&"),
			Params:      Parse(strings.Join(wantedPairs, "&"), opts),
		}
	}
	return Filtered{
		QueryString: strings.Join(wantedPairs, "&"),
		Params:      Parse(strings.Join(wantedPairs, "&"), opts),
	}
}

// splitPair splits a raw pair on the first "=". The second return is the raw
// value, or an empty string with ok distinguished by hasValue.
func splitPair(pair string) (name string, value *string) {
	if idx := strings.IndexByte(pair, '='); idx >= 0 {
		v := pair[idx+1:]
		return pair[:idx], &v
	}
	return pair, nil
}

// normalizeName decodes a raw parameter name and strips array bracket
// suffixes under the brackets and index formats.
func normalizeName(raw string, opts Options) (name string, isArray bool) {
	name = unescape(raw)
	switch opts.arrayFormat() {
	case ArrayFormatBrackets:
		if strings.HasSuffix(name, "[]") {
			return name[:len(name)-2], true
		}
	case ArrayFormatIndex:
		if open := strings.LastIndexByte(name, '['); open > 0 && strings.HasSuffix(name, "]") {
			if _, err := strconv.Atoi(name[open+1 : len(name)-1]); err == nil {
				return name[:open], true
			}
		}
	}
	return name, false
}

func decodeValue(value *string, opts Options) any {
	if value == nil {
		if opts.booleanFormat() == BooleanFormatEmptyTrue {
			return true
		}
		return nil
	}
	raw := unescape(*value)

	if opts.arrayFormat() == ArrayFormatComma && strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		arr := make([]any, len(parts))
		for i, p := range parts {
			arr[i] = decodeScalar(p, opts)
		}
		return arr
	}
	return decodeScalar(raw, opts)
}

func decodeScalar(s string, opts Options) any {
	if opts.booleanFormat() == BooleanFormatString {
		switch s {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return s
}

func encodeParam(name string, value any, opts Options) string {
	key := escape(name)

	switch v := value.(type) {
	case nil:
		if opts.nullFormat() == NullFormatHidden {
			return ""
		}
		return key
	case bool:
		if opts.booleanFormat() == BooleanFormatEmptyTrue {
			if v {
				return key
			}
			return ""
		}
		return key + "=" + strconv.FormatBool(v)
	case []any:
		return encodeArray(key, v, opts)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		return encodeArray(key, arr, opts)
	default:
		return key + "=" + escape(stringify(v))
	}
}

func encodeArray(key string, values []any, opts Options) string {
	if len(values) == 0 {
		return ""
	}
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = escape(stringify(v))
	}

	switch opts.arrayFormat() {
	case ArrayFormatBrackets:
		parts := make([]string, len(encoded))
		for i, e := range encoded {
			parts[i] = key + "%5B%5D=" + e
		}
		return strings.Join(parts, "&")
	case ArrayFormatIndex:
		parts := make([]string, len(encoded))
		for i, e := range encoded {
			parts[i] = fmt.Sprintf("%s%%5B%d%%5D=%s", key, i, e)
		}
		return strings.Join(parts, "&")
	case ArrayFormatComma:
		return key + "=" + strings.Join(encoded, ",")
	default:
		parts := make([]string, len(encoded))
		for i, e := range encoded {
			parts[i] = key + "=" + e
		}
		return strings.Join(parts, "&")
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

func flatten(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

func escape(s string) string {
	// QueryEscape uses "+" for spaces; percent-encode instead so values are
	// valid in both query and path position.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}
