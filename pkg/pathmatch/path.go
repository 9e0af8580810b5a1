// Package pathmatch compiles URL path patterns into matcher/builder objects.
//
// A pattern is a sequence of static fragments, delimiters and parameters:
//
//	/users/:id<\d+>/posts/*rest;v=:ver?q&page
//
// Supported parameter forms are named URL parameters (":id", optionally
// constrained with ":id<\d+>" and optionally absent with ":id?"), splat
// catch-alls ("*rest"), matrix parameters (";key") and query parameters
// ("?q&page"). Compiling the same pattern twice is deterministic; a compiled
// Path holds no per-call state, so matching and building options are supplied
// on every call and never mutate the Path.
package pathmatch

import (
	"fmt"
	"math/bits"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/signpost-dev/signpost/pkg/qs"
)

// maxOptionalParams bounds the optional-parameter backtracking space: each
// optional parameter doubles the number of match alternatives, so a pattern
// may declare at most this many.
const maxOptionalParams = 4

// QueryParamsMode controls how query parameters not declared by any pattern
// are treated during matching.
type QueryParamsMode string

const (
	// QueryModeDefault accepts extra query parameters but drops them from
	// the result.
	QueryModeDefault QueryParamsMode = "default"

	// QueryModeStrict rejects a path carrying undeclared query parameters.
	QueryModeStrict QueryParamsMode = "strict"

	// QueryModeLoose accepts extra query parameters and includes them in
	// the result.
	QueryModeLoose QueryParamsMode = "loose"
)

// TestOptions are per-call matching options. The zero value selects the
// defaults: case-insensitive, tolerant of a trailing slash, default query
// mode and default URL parameter encoding.
type TestOptions struct {
	CaseSensitive       bool
	StrictTrailingSlash bool
	QueryParamsMode     QueryParamsMode
	QueryParams         qs.Options
	URLParamsEncoding   Encoding
}

func (o TestOptions) encoding() Encoding {
	if o.URLParamsEncoding == "" {
		return EncodingDefault
	}
	return o.URLParamsEncoding
}

func (o TestOptions) queryMode() QueryParamsMode {
	if o.QueryParamsMode == "" {
		return QueryModeDefault
	}
	return o.QueryParamsMode
}

// BuildOptions are per-call building options.
type BuildOptions struct {
	// IgnoreConstraints skips constraint validation of parameter values.
	IgnoreConstraints bool

	// IgnoreSearch omits the query-string portion of the built path.
	IgnoreSearch bool

	QueryParams       qs.Options
	URLParamsEncoding Encoding
}

func (o BuildOptions) encoding() Encoding {
	if o.URLParamsEncoding == "" {
		return EncodingDefault
	}
	return o.URLParamsEncoding
}

// MissingParamError reports a required parameter absent from a Build call.
type MissingParamError struct {
	Param string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ConstraintError reports a parameter value rejected by its constraint.
type ConstraintError struct {
	Param      string
	Value      string
	Constraint string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("parameter %q value %q does not satisfy constraint <%s>",
		e.Param, e.Value, e.Constraint)
}

// PartialMatch is one way a pattern can consume a prefix of a path.
type PartialMatch struct {
	// Params are the parameter values captured by the consumed prefix.
	Params map[string]any

	// Consumed is the byte length of the consumed prefix.
	Consumed int
}

// variant is one concrete regular expression for the pattern, with a fixed
// subset of the optional parameters present. Variants are ordered most
// parameters first, so greedy interpretations are tried before sparse ones.
type variant struct {
	paramNames []string

	// groupIdx maps each paramNames entry to its capture-group index in the
	// compiled expressions. Constraints may contain capturing groups of
	// their own, so parameter groups are not necessarily consecutive.
	groupIdx []int

	source string

	// test and partial are indexed by [caseInsensitive][looseTrailingSlash]
	// and [caseInsensitive] respectively.
	test    [2][2]*regexp.Regexp
	partial [2]*regexp.Regexp
}

func (v *variant) testRe(opts TestOptions) *regexp.Regexp {
	ci, loose := 0, 0
	if !opts.CaseSensitive {
		ci = 1
	}
	if !opts.StrictTrailingSlash {
		loose = 1
	}
	return v.test[ci][loose]
}

func (v *variant) partialRe(opts TestOptions) *regexp.Regexp {
	ci := 0
	if !opts.CaseSensitive {
		ci = 1
	}
	return v.partial[ci]
}

// Path is a compiled pattern exposing Build, Test and PartialTest.
type Path struct {
	// Pattern is the original pattern string.
	Pattern string

	tokens    []Token
	urlTokens []Token

	urlParamNames   []string
	queryParamNames []string
	splatName       string

	variants []*variant
}

// Compile parses and compiles a path pattern.
func Compile(pattern string) (*Path, error) {
	if pattern == "" {
		return nil, &ParseError{Pattern: pattern, Position: 0}
	}

	tokens, err := Tokenise(pattern)
	if err != nil {
		return nil, err
	}

	p := &Path{Pattern: pattern, tokens: tokens}
	if err := p.splitSections(); err != nil {
		return nil, err
	}
	if err := p.compileVariants(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustCompile is Compile, panicking on error. Intended for patterns known
// valid at authoring time.
func MustCompile(pattern string) *Path {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// splitSections partitions tokens into the URL section and the query section
// and derives the parameter name sets.
func (p *Path) splitSections() error {
	queryStart := len(p.tokens)
	for i, tok := range p.tokens {
		if tok.Kind == KindQueryParameter || (tok.Kind == KindDelimiter && tok.Match == "?") {
			queryStart = i
			break
		}
	}
	p.urlTokens = p.tokens[:queryStart]

	optionals := 0
	for i, tok := range p.urlTokens {
		switch tok.Kind {
		case KindURLParameter, KindMatrixParameter:
			p.urlParamNames = append(p.urlParamNames, tok.Name)
			if tok.Optional {
				optionals++
			}
		case KindSplatParameter:
			if p.splatName != "" {
				return fmt.Errorf("pattern %q declares more than one splat parameter", p.Pattern)
			}
			if i != len(p.urlTokens)-1 {
				return fmt.Errorf("pattern %q: splat parameter %q must be the last path token",
					p.Pattern, tok.Name)
			}
			p.splatName = tok.Name
			p.urlParamNames = append(p.urlParamNames, tok.Name)
		}
	}
	if optionals > maxOptionalParams {
		return fmt.Errorf("pattern %q declares %d optional parameters, maximum is %d",
			p.Pattern, optionals, maxOptionalParams)
	}

	for _, tok := range p.tokens[queryStart:] {
		switch tok.Kind {
		case KindQueryParameter:
			p.queryParamNames = append(p.queryParamNames, tok.Name)
		case KindDelimiter:
			// The "?" opening the query section.
		default:
			return fmt.Errorf("pattern %q: unexpected %s token %q in query section",
				p.Pattern, tok.Kind, tok.Match)
		}
	}
	return nil
}

// compileVariants builds one regular expression per optional-parameter
// subset, ordered by descending parameter count.
func (p *Path) compileVariants() error {
	var optionalIdx []int
	for i, tok := range p.urlTokens {
		if tok.Kind == KindURLParameter && tok.Optional {
			optionalIdx = append(optionalIdx, i)
		}
	}

	masks := make([]uint, 0, 1<<len(optionalIdx))
	for mask := uint(0); mask < 1<<len(optionalIdx); mask++ {
		masks = append(masks, mask)
	}
	sort.Slice(masks, func(a, b int) bool {
		ca, cb := bits.OnesCount(masks[a]), bits.OnesCount(masks[b])
		if ca != cb {
			return ca > cb
		}
		return masks[a] > masks[b]
	})

	for _, mask := range masks {
		present := make(map[int]bool, len(optionalIdx))
		for bit, idx := range optionalIdx {
			if mask&(1<<bit) != 0 {
				present[idx] = true
			}
		}
		v, err := p.buildVariant(present)
		if err != nil {
			return err
		}
		p.variants = append(p.variants, v)
	}
	return nil
}

func (p *Path) buildVariant(present map[int]bool) (*variant, error) {
	var fragments []string
	var names []string
	var groups []int
	nextGroup := 1
	lastWasSlash := -1

	addParam := func(tok Token) {
		names = append(names, tok.Name)
		groups = append(groups, nextGroup)
		nextGroup += 1 + constraintGroups(tok)
	}

	for i, tok := range p.urlTokens {
		switch tok.Kind {
		case KindDelimiter:
			fragments = append(fragments, tok.Match)
			lastWasSlash = len(fragments) - 1
		case KindStaticFragment:
			fragments = append(fragments, regexp.QuoteMeta(tok.Match))
		case KindURLParameter:
			if tok.Optional && !present[i] {
				// Segment absent: drop the delimiter that introduced it.
				if lastWasSlash == len(fragments)-1 && lastWasSlash >= 0 {
					fragments = fragments[:len(fragments)-1]
					lastWasSlash = -1
				}
				continue
			}
			fragments = append(fragments, "((?:"+tok.valuePattern()+"))")
			addParam(tok)
		case KindSplatParameter:
			fragments = append(fragments, "((?:"+tok.valuePattern()+"))")
			addParam(tok)
		case KindMatrixParameter:
			fragments = append(fragments, ";"+regexp.QuoteMeta(tok.Name)+"=((?:"+tok.valuePattern()+"))")
			addParam(tok)
		}
	}

	v := &variant{paramNames: names, groupIdx: groups, source: strings.Join(fragments, "")}
	for ci := 0; ci < 2; ci++ {
		prefix := ""
		if ci == 1 {
			prefix = "(?i)"
		}
		strictRe, err := regexp.Compile(prefix + "^" + v.source + "$")
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Pattern, err)
		}
		looseRe, err := regexp.Compile(prefix + "^" + v.source + "/?$")
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Pattern, err)
		}
		partialRe, err := regexp.Compile(prefix + "^" + v.source)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.Pattern, err)
		}
		v.test[ci][0] = strictRe
		v.test[ci][1] = looseRe
		v.partial[ci] = partialRe
	}
	return v, nil
}

// Tokens returns the compiled token sequence.
func (p *Path) Tokens() []Token {
	out := make([]Token, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// URLParams returns the names of URL-position parameters, splat and matrix
// parameters included, in pattern order.
func (p *Path) URLParams() []string {
	out := make([]string, len(p.urlParamNames))
	copy(out, p.urlParamNames)
	return out
}

// QueryParams returns the names of declared query parameters.
func (p *Path) QueryParams() []string {
	out := make([]string, len(p.queryParamNames))
	copy(out, p.queryParamNames)
	return out
}

// SplatName returns the splat parameter name, or "" when there is none.
func (p *Path) SplatName() string {
	return p.splatName
}

// HasParams reports whether the pattern declares any parameter at all.
func (p *Path) HasParams() bool {
	return len(p.urlParamNames) > 0 || len(p.queryParamNames) > 0
}

func (p *Path) String() string {
	return p.Pattern
}

// Test matches a full path against the pattern. The entire path must be
// consumed; trailing content is a non-match. Returns the captured parameter
// mapping, or nil when the path does not match.
func (p *Path) Test(path string, opts TestOptions) map[string]any {
	pathname, search := splitQuery(path)

	for _, v := range p.variants {
		m := v.testRe(opts).FindStringSubmatch(pathname)
		if m == nil {
			continue
		}
		params := p.extractParams(v, m, opts)
		if !p.applyQueryParams(params, search, opts) {
			return nil
		}
		return params
	}
	return nil
}

// PartialTest matches a prefix of the given path, letting the caller match
// the remainder against further patterns. Declared query parameters are
// extracted from the query section when present.
func (p *Path) PartialTest(path string, opts TestOptions) map[string]any {
	pathname, search := splitQuery(path)
	matches := p.PartialMatches(pathname, opts)
	if len(matches) == 0 {
		return nil
	}
	params := matches[0].Params
	qp := qs.Parse(search, opts.QueryParams)
	for _, name := range p.queryParamNames {
		if val, ok := qp[name]; ok {
			params[name] = val
		}
	}
	return params
}

// PartialMatches returns every way the pattern can consume a prefix of the
// given pathname, longest first. The pathname must not include a query
// string. A prefix only counts when it ends at a segment boundary.
func (p *Path) PartialMatches(pathname string, opts TestOptions) []PartialMatch {
	var out []PartialMatch
	seen := make(map[int]bool)

	for _, v := range p.variants {
		m := v.partialRe(opts).FindStringSubmatch(pathname)
		if m == nil {
			continue
		}
		consumed := len(m[0])
		if consumed < len(pathname) && pathname[consumed] != '/' {
			continue
		}
		if seen[consumed] {
			continue
		}
		seen[consumed] = true
		out = append(out, PartialMatch{Params: p.extractParams(v, m, opts), Consumed: consumed})
	}
	return out
}

func (p *Path) extractParams(v *variant, m []string, opts TestOptions) map[string]any {
	params := make(map[string]any, len(v.paramNames))
	for i, name := range v.paramNames {
		raw := m[v.groupIdx[i]]
		if name == p.splatName && p.splatName != "" {
			params[name] = decodeSplatValue(raw, opts.encoding())
		} else {
			params[name] = decodeParamValue(raw, opts.encoding())
		}
	}
	return params
}

// applyQueryParams merges declared query parameters from the search part into
// params. Returns false when undeclared parameters fail the query mode.
func (p *Path) applyQueryParams(params map[string]any, search string, opts TestOptions) bool {
	qp := qs.Parse(search, opts.QueryParams)
	for _, name := range p.queryParamNames {
		if val, ok := qp[name]; ok {
			params[name] = val
			delete(qp, name)
		}
	}
	if len(qp) == 0 {
		return true
	}
	switch opts.queryMode() {
	case QueryModeStrict:
		return false
	case QueryModeLoose:
		for name, val := range qp {
			params[name] = val
		}
	}
	return true
}

// Build constructs a concrete path from parameter values. Required URL
// parameters must be present and non-nil; optional parameters omit their
// segment when absent; declared query parameters are appended only when
// present in params.
func (p *Path) Build(params map[string]any, opts BuildOptions) (string, error) {
	enc := opts.encoding()
	var b strings.Builder

	for i := 0; i < len(p.urlTokens); i++ {
		tok := p.urlTokens[i]
		switch tok.Kind {
		case KindDelimiter:
			if tok.Match == "/" && i+1 < len(p.urlTokens) {
				next := p.urlTokens[i+1]
				if next.Kind == KindURLParameter && next.Optional && paramMissing(params, next.Name) {
					i++ // absent optional segment: skip slash and parameter
					continue
				}
			}
			b.WriteString(tok.Match)

		case KindStaticFragment:
			b.WriteString(tok.Match)

		case KindURLParameter:
			if paramMissing(params, tok.Name) {
				if tok.Optional {
					continue
				}
				return "", &MissingParamError{Param: tok.Name}
			}
			value := stringifyParam(params[tok.Name], ",")
			if err := p.checkConstraint(tok, value, opts); err != nil {
				return "", err
			}
			b.WriteString(encodeParamValue(value, enc))

		case KindSplatParameter:
			if paramMissing(params, tok.Name) {
				return "", &MissingParamError{Param: tok.Name}
			}
			value := stringifyParam(params[tok.Name], "/")
			if err := p.checkConstraint(tok, value, opts); err != nil {
				return "", err
			}
			b.WriteString(encodeSplatValue(value, enc))

		case KindMatrixParameter:
			if paramMissing(params, tok.Name) {
				return "", &MissingParamError{Param: tok.Name}
			}
			value := stringifyParam(params[tok.Name], ",")
			if err := p.checkConstraint(tok, value, opts); err != nil {
				return "", err
			}
			b.WriteString(";" + tok.Name + "=" + encodeParamValue(value, enc))
		}
	}

	if !opts.IgnoreSearch && len(p.queryParamNames) > 0 {
		queryParams := make(map[string]any)
		for _, name := range p.queryParamNames {
			if val, ok := params[name]; ok {
				queryParams[name] = val
			}
		}
		if built := qs.Build(queryParams, opts.QueryParams); built != "" {
			b.WriteString("?" + built)
		}
	}
	return b.String(), nil
}

func (p *Path) checkConstraint(tok Token, value string, opts BuildOptions) error {
	if opts.IgnoreConstraints || tok.Constraint == nil {
		return nil
	}
	if !tok.Constraint.MatchString(value) {
		return &ConstraintError{Param: tok.Name, Value: value, Constraint: tok.Constraint.Display}
	}
	return nil
}

func constraintGroups(tok Token) int {
	if tok.Constraint == nil {
		return 0
	}
	return tok.Constraint.re.NumSubexp()
}

func paramMissing(params map[string]any, name string) bool {
	val, ok := params[name]
	return !ok || val == nil
}

func stringifyParam(val any, sep string) string {
	switch t := val.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, sep)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringifyParam(e, sep)
		}
		return strings.Join(parts, sep)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func splitQuery(path string) (pathname, search string) {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return path, ""
}
