package pathmatch

import (
	"fmt"
	"regexp"
)

// TokenKind identifies the lexical class of a pattern token.
type TokenKind string

const (
	// KindDelimiter is a "/" or "?" separator.
	KindDelimiter TokenKind = "delimiter"

	// KindStaticFragment is a literal run of pattern characters.
	KindStaticFragment TokenKind = "static-fragment"

	// KindURLParameter is a named ":param" segment parameter.
	KindURLParameter TokenKind = "url-parameter"

	// KindSplatParameter is a "*param" catch-all capturing the remaining
	// path segments.
	KindSplatParameter TokenKind = "url-parameter-splat"

	// KindMatrixParameter is a ";param" parameter attached within a segment.
	KindMatrixParameter TokenKind = "matrix-parameter"

	// KindQueryParameter is a "?param" or "&param" query-string parameter.
	KindQueryParameter TokenKind = "query-parameter"
)

// defaultParamPattern matches a parameter value when no constraint is given.
const defaultParamPattern = `[a-zA-Z0-9\-_.~%':|=+*@$]+`

// splatPattern matches one or more remaining path segments.
const splatPattern = `[^?]+`

// Constraint is an optional per-parameter pattern such as ":id<\d+>".
type Constraint struct {
	// Display is the constraint text as written in the pattern.
	Display string

	re *regexp.Regexp
}

// MatchString reports whether the full value satisfies the constraint.
func (c *Constraint) MatchString(value string) bool {
	return c.re.MatchString(value)
}

func compileConstraint(display string) (*Constraint, error) {
	re, err := regexp.Compile("^(?:" + display + ")$")
	if err != nil {
		return nil, err
	}
	return &Constraint{Display: display, re: re}, nil
}

// Token is one lexical unit of a compiled path pattern. Tokens are produced
// once at compile time and never mutated.
type Token struct {
	// Kind is the token's lexical class.
	Kind TokenKind

	// Match is the literal pattern text the token was produced from.
	Match string

	// Name is the captured parameter name, empty for non-parameter tokens.
	Name string

	// Optional marks a ":param?" URL parameter whose segment may be absent.
	Optional bool

	// Constraint is the parameter's value pattern, nil when unconstrained.
	Constraint *Constraint
}

// IsParameter reports whether the token captures a parameter value.
func (t Token) IsParameter() bool {
	switch t.Kind {
	case KindURLParameter, KindSplatParameter, KindMatrixParameter, KindQueryParameter:
		return true
	}
	return false
}

// valuePattern returns the regex fragment matching this parameter's value.
func (t Token) valuePattern() string {
	if t.Constraint != nil {
		return t.Constraint.Display
	}
	if t.Kind == KindSplatParameter {
		return splatPattern
	}
	return defaultParamPattern
}

// ParseError reports a pattern substring that matches no tokenization rule.
type ParseError struct {
	Pattern  string
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot tokenise pattern %q at position %d: %q matches no rule",
		e.Pattern, e.Position, e.Pattern[e.Position:])
}

// tokenRule recognizes one token class at the start of the remaining input.
type tokenRule struct {
	kind TokenKind
	re   *regexp.Regexp
}

// Rule order matters: parameter rules run before delimiters and fragments so
// ":" "*" ";" "?" prefixes are claimed by their parameter forms first.
var tokenRules = []tokenRule{
	{KindURLParameter, regexp.MustCompile(`^:([a-zA-Z0-9\-_]*[a-zA-Z0-9])(?:<(.+?)>)?(\?)?`)},
	{KindSplatParameter, regexp.MustCompile(`^\*([a-zA-Z0-9\-_]*[a-zA-Z0-9])`)},
	{KindMatrixParameter, regexp.MustCompile(`^;([a-zA-Z0-9\-_]*[a-zA-Z0-9])(?:<(.+?)>)?`)},
	{KindQueryParameter, regexp.MustCompile(`^(?:\?|&)(?::)?([a-zA-Z0-9\-_]*[a-zA-Z0-9])(?:\[\])?`)},
	{KindDelimiter, regexp.MustCompile(`^([/?])`)},
	{KindStaticFragment, regexp.MustCompile(`^([0-9a-zA-Z]+)`)},
	{KindStaticFragment, regexp.MustCompile(`^([!&\-_.;])`)},
}

// Tokenise splits a path pattern into its token sequence. A successful
// tokenization accounts for every character of the pattern; any substring
// matching no rule fails with a ParseError.
func Tokenise(pattern string) ([]Token, error) {
	var tokens []Token
	pos := 0

	for pos < len(pattern) {
		remaining := pattern[pos:]
		var matched bool

		for _, rule := range tokenRules {
			m := rule.re.FindStringSubmatch(remaining)
			if m == nil {
				continue
			}

			tok := Token{Kind: rule.kind, Match: m[0]}
			if rule.kind.isNamed() {
				tok.Name = m[1]
			}
			if len(m) > 2 && m[2] != "" {
				constraint, err := compileConstraint(m[2])
				if err != nil {
					return nil, fmt.Errorf("invalid constraint for parameter %q in pattern %q: %w",
						tok.Name, pattern, err)
				}
				tok.Constraint = constraint
			}
			consumed := len(m[0])
			if len(m) > 3 && m[3] == "?" {
				// A trailing "?" marks an optional parameter only at a
				// segment boundary; otherwise it opens the query section.
				rest := remaining[consumed:]
				if rest == "" || rest[0] == '/' {
					tok.Optional = true
				} else {
					consumed--
				}
			}

			tokens = append(tokens, tok)
			pos += consumed
			matched = true
			break
		}

		if !matched {
			return nil, &ParseError{Pattern: pattern, Position: pos}
		}
	}
	return tokens, nil
}

func (k TokenKind) isNamed() bool {
	switch k {
	case KindURLParameter, KindSplatParameter, KindMatrixParameter, KindQueryParameter:
		return true
	}
	return false
}
