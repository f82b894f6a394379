// compat.go: compatibility spec evaluation against host name, version and platform
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"fmt"
	"strings"
	"unicode"
)

// Compatibility specs have the shape:
//
//	"<name> [<version-or-'on'>] [on <platform-expr>]"
//
// Stages are evaluated left to right and a missing stage is trivially
// satisfied. The platform expression is a boolean grammar over bare
// platform identifiers combined with "and", "or", "not" and parentheses.
// Identifiers match case-insensitively against the host platform's alias
// set. The grammar is handled by a dedicated tokenizer and
// recursive-descent parser; anything outside it (arithmetic, calls,
// stray punctuation) is rejected as a compatibility-spec error so a
// manifest string can never smuggle code into the host.

// platformAliasSet returns every identifier the given platform answers
// to: the platform string itself plus its alias table entries. Darwin
// aliases to macos and unix; every non-Windows platform aliases to unix.
func platformAliasSet(platform string) map[string]struct{} {
	p := strings.ToLower(platform)
	set := map[string]struct{}{p: {}}
	switch p {
	case "darwin":
		set["macos"] = struct{}{}
		set["unix"] = struct{}{}
	case "windows", "win32":
		set["windows"] = struct{}{}
		set["win32"] = struct{}{}
	default:
		set["unix"] = struct{}{}
	}
	return set
}

// CompatEval evaluates a compatibility spec string against this host.
//
// Algorithm:
//  1. The first whitespace token must equal the host name, otherwise the
//     result is false without considering further tokens.
//  2. A second token other than the literal "on" is a minimum version
//     requirement; the result is false when the host version is strictly
//     lower. The literal "on" in that position means "no version
//     constraint, platform clause follows".
//  3. Remaining tokens (after optionally stripping one leading "on")
//     form a boolean platform expression evaluated against the host
//     platform's alias set.
//
// Malformed version requirements and platform expressions return a
// compatibility error; mismatches return false with a nil error.
func (s *System[F]) CompatEval(spec string) (bool, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 || fields[0] != s.name {
		return false, nil
	}

	rest := fields[1:]
	if len(rest) == 0 {
		return true, nil
	}

	if rest[0] != "on" {
		required, err := ParseVersion(rest[0])
		if err != nil {
			return false, NewCompatSyntaxError(spec, fmt.Sprintf("invalid version requirement %q", rest[0]))
		}
		if s.version.Compare(required) < 0 {
			return false, nil
		}
		rest = rest[1:]
		if len(rest) > 0 && rest[0] == "on" {
			rest = rest[1:]
		}
	} else {
		rest = rest[1:]
	}

	if len(rest) == 0 {
		return true, nil
	}

	ok, err := evalPlatformExpr(strings.Join(rest, " "), s.platformAliases)
	if err != nil {
		return false, NewCompatSyntaxError(spec, err.Error())
	}
	return ok, nil
}

// EnsureCompatible fails with a compatibility error when the manifest's
// sys spec does not match this host; it is the pass-through validator
// registration runs before inserting a plugin.
func (s *System[F]) EnsureCompatible(m *Manifest) error {
	ok, err := s.CompatEval(m.Sys)
	if err != nil {
		return err
	}
	if !ok {
		return NewIncompatiblePluginError(m.Info.Name, m.Sys, s.name+" v"+s.version.String())
	}
	return nil
}

// Platform expression grammar:
//
//	expr    := andExpr { "or" andExpr }
//	andExpr := notExpr { "and" notExpr }
//	notExpr := "not" notExpr | primary
//	primary := "(" expr ")" | IDENT

type compatTokenKind int

const (
	tokIdent compatTokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokEOF
)

type compatToken struct {
	kind compatTokenKind
	text string
}

// isPlatformIdentRune reports whether r may appear in a platform
// identifier. Hyphens and dots are allowed so names like
// "unknown-platform" parse as one (unmatched) identifier.
func isPlatformIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

// scanPlatformExpr tokenizes a platform expression. Keywords are the
// lowercase words "and", "or" and "not"; everything else alphanumeric is
// an identifier; parentheses group; any other rune is a syntax error.
func scanPlatformExpr(src string) ([]compatToken, error) {
	var tokens []compatToken
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, compatToken{kind: tokLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, compatToken{kind: tokRParen, text: ")"})
			i++
		case isPlatformIdentRune(r):
			start := i
			for i < len(runes) && isPlatformIdentRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			switch word {
			case "and":
				tokens = append(tokens, compatToken{kind: tokAnd, text: word})
			case "or":
				tokens = append(tokens, compatToken{kind: tokOr, text: word})
			case "not":
				tokens = append(tokens, compatToken{kind: tokNot, text: word})
			default:
				tokens = append(tokens, compatToken{kind: tokIdent, text: word})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q in platform expression", r)
		}
	}
	return append(tokens, compatToken{kind: tokEOF}), nil
}

// platformExprParser evaluates the expression while parsing it; the
// grammar has no side effects, so both operands of every operator are
// parsed even when short-circuiting would allow skipping one, keeping
// syntax errors deterministic.
type platformExprParser struct {
	tokens  []compatToken
	pos     int
	aliases map[string]struct{}
}

func evalPlatformExpr(src string, aliases map[string]struct{}) (bool, error) {
	tokens, err := scanPlatformExpr(src)
	if err != nil {
		return false, err
	}
	p := &platformExprParser{tokens: tokens, aliases: aliases}
	result, err := p.parseExpr()
	if err != nil {
		return false, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return false, fmt.Errorf("unexpected token %q after expression", tok.text)
	}
	return result, nil
}

func (p *platformExprParser) peek() compatToken {
	return p.tokens[p.pos]
}

func (p *platformExprParser) next() compatToken {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *platformExprParser) parseExpr() (bool, error) {
	result, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.peek().kind == tokOr {
		p.next()
		operand, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		result = result || operand
	}
	return result, nil
}

func (p *platformExprParser) parseAnd() (bool, error) {
	result, err := p.parseNot()
	if err != nil {
		return false, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return false, err
		}
		result = result && operand
	}
	return result, nil
}

func (p *platformExprParser) parseNot() (bool, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return false, err
		}
		return !operand, nil
	}
	return p.parsePrimary()
}

func (p *platformExprParser) parsePrimary() (bool, error) {
	switch tok := p.next(); tok.kind {
	case tokLParen:
		result, err := p.parseExpr()
		if err != nil {
			return false, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return false, fmt.Errorf("missing closing parenthesis")
		}
		return result, nil
	case tokIdent:
		_, ok := p.aliases[strings.ToLower(tok.text)]
		return ok, nil
	case tokEOF:
		return false, fmt.Errorf("unexpected end of platform expression")
	default:
		return false, fmt.Errorf("unexpected token %q", tok.text)
	}
}
