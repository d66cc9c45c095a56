package orm

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.([A-Za-z_][A-Za-z0-9_]*|\*))?$`)

// validIdent accepts "col", "table.col", "table.*" and "*".
func validIdent(s string) bool {
	return s == "*" || identRe.MatchString(s)
}

// quote validates and quotes a possibly qualified identifier.
func quote(d Dialect, ident string) (string, error) {
	if !validIdent(ident) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, ident)
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = d.QuoteIdent(p)
		}
	}
	return strings.Join(parts, "."), nil
}

var operators = map[string]string{
	"=":        "=",
	"!=":       "!=",
	"<>":       "<>",
	"<":        "<",
	"<=":       "<=",
	">":        ">",
	">=":       ">=",
	"like":     "LIKE",
	"not like": "NOT LIKE",
	"ilike":    "ILIKE",
}

// normalizeOp returns the canonical spelling of a whitelisted operator.
func normalizeOp(op string) (string, error) {
	canonical, ok := operators[strings.ToLower(strings.Join(strings.Fields(op), " "))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return canonical, nil
}
