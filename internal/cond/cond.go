// Package cond evaluates the boolean mini-language used in "if"
// attributes of build documents.
//
// An atom is a literal, LEFT==RIGHT, or LEFT!=RIGHT. Atoms combine with
// the infix tokens ";and;" and ";or;" and may be grouped with
// parentheses; "and" binds tighter than "or". A bare atom is true iff
// its literal is not the string "0". Any {key} references must be
// substituted away before evaluation; Holds does that on demand.
package cond

import (
	"errors"
	"fmt"
	"strings"

	"anvil/internal/document"
	"anvil/internal/vars"
)

var (
	// ErrIndeterminate reports a condition that references keys the
	// dictionary cannot resolve yet. Strict callers fail on it;
	// opportunistic sweeps retry on a later pass.
	ErrIndeterminate = errors.New("condition not determinable")
	// ErrMalformed reports a condition the mini-language cannot parse.
	ErrMalformed = errors.New("malformed condition")
)

const (
	tokAnd   = ";and;"
	tokOr    = ";or;"
	tokOpen  = "("
	tokClose = ")"
)

// Holds reports whether the node's "if" attribute allows it to
// participate. Nodes without a condition always hold.
func Holds(n *document.Node, d vars.Dict) (bool, error) {
	raw, ok := n.Attr["if"]
	if !ok || strings.TrimSpace(raw) == "" {
		return true, nil
	}
	expr, err := vars.Expand(raw, d, vars.Required)
	if err != nil {
		var missing *vars.MissingKeyError
		if errors.As(err, &missing) {
			return false, fmt.Errorf("%w: {%s} undefined in %q", ErrIndeterminate, missing.Key, raw)
		}
		return false, err
	}
	if strings.Contains(expr, "{") {
		return false, fmt.Errorf("%w: %q still has references", ErrIndeterminate, expr)
	}
	return Eval(expr)
}

// Eval evaluates a fully substituted condition expression using an
// operator stack and an operand stack.
func Eval(expr string) (bool, error) {
	toks := tokenize(expr)
	if len(toks) == 0 {
		return false, fmt.Errorf("%w: empty condition", ErrMalformed)
	}

	var vals []bool
	var ops []string

	apply := func() error {
		if len(vals) < 2 {
			return fmt.Errorf("%w: %q", ErrMalformed, expr)
		}
		right := vals[len(vals)-1]
		left := vals[len(vals)-2]
		vals = vals[:len(vals)-2]
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if op == tokAnd {
			vals = append(vals, left && right)
		} else {
			vals = append(vals, left || right)
		}
		return nil
	}

	for _, tok := range toks {
		switch tok {
		case tokOpen:
			ops = append(ops, tok)
		case tokClose:
			for len(ops) > 0 && ops[len(ops)-1] != tokOpen {
				if err := apply(); err != nil {
					return false, err
				}
			}
			if len(ops) == 0 {
				return false, fmt.Errorf("%w: unbalanced parentheses in %q", ErrMalformed, expr)
			}
			ops = ops[:len(ops)-1]
		case tokAnd, tokOr:
			for len(ops) > 0 && ops[len(ops)-1] != tokOpen && precedence(ops[len(ops)-1]) >= precedence(tok) {
				if err := apply(); err != nil {
					return false, err
				}
			}
			ops = append(ops, tok)
		default:
			vals = append(vals, evalAtom(tok))
		}
	}
	for len(ops) > 0 {
		if ops[len(ops)-1] == tokOpen {
			return false, fmt.Errorf("%w: unbalanced parentheses in %q", ErrMalformed, expr)
		}
		if err := apply(); err != nil {
			return false, err
		}
	}
	if len(vals) != 1 {
		return false, fmt.Errorf("%w: %q", ErrMalformed, expr)
	}
	return vals[0], nil
}

func precedence(op string) int {
	if op == tokAnd {
		return 2
	}
	return 1
}

func evalAtom(atom string) bool {
	if i := strings.Index(atom, "=="); i >= 0 {
		return atom[:i] == atom[i+2:]
	}
	if i := strings.Index(atom, "!="); i >= 0 {
		return atom[:i] != atom[i+2:]
	}
	return atom != "0"
}

func tokenize(s string) []string {
	var toks []string
	flush := func(atom string) {
		atom = strings.TrimSpace(atom)
		if atom != "" {
			toks = append(toks, atom)
		}
	}
	start := 0
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '(' || s[i] == ')':
			flush(s[start:i])
			toks = append(toks, string(s[i]))
			i++
			start = i
		case strings.HasPrefix(s[i:], tokAnd):
			flush(s[start:i])
			toks = append(toks, tokAnd)
			i += len(tokAnd)
			start = i
		case strings.HasPrefix(s[i:], tokOr):
			flush(s[start:i])
			toks = append(toks, tokOr)
			i += len(tokOr)
			start = i
		default:
			i++
		}
	}
	flush(s[start:])
	return toks
}
