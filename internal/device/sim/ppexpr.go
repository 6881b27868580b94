package sim

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// condFrame is one open #if group.
type condFrame struct {
	parent  bool // the enclosing group is active
	active  bool // the current branch is active
	taken   bool // some branch of the group has been active
	sawElse bool
}

// resolveDefined replaces defined(X) and defined X with 1 or 0. It runs
// before macro expansion so the operand is not expanded.
func resolveDefined(expr string, macros map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(expr); {
		c := expr[i]
		if !isIdentStart(c) {
			if c >= '0' && c <= '9' {
				j := i
				for j < len(expr) && isIdentChar(expr[j]) {
					j++
				}
				b.WriteString(expr[i:j])
				i = j
				continue
			}
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(expr) && isIdentChar(expr[j]) {
			j++
		}
		if expr[i:j] != "defined" {
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		k := j
		for k < len(expr) && (expr[k] == ' ' || expr[k] == '\t') {
			k++
		}
		paren := k < len(expr) && expr[k] == '('
		if paren {
			k++
			for k < len(expr) && (expr[k] == ' ' || expr[k] == '\t') {
				k++
			}
		}
		start := k
		for k < len(expr) && isIdentChar(expr[k]) {
			k++
		}
		if start == k || !isIdentStart(expr[start]) {
			return "", errors.New("macro name missing")
		}
		name := expr[start:k]
		if paren {
			for k < len(expr) && (expr[k] == ' ' || expr[k] == '\t') {
				k++
			}
			if k >= len(expr) || expr[k] != ')' {
				return "", errors.New("missing ')' after 'defined'")
			}
			k++
		}
		if _, ok := macros[name]; ok {
			b.WriteString(" 1 ")
		} else {
			b.WriteString(" 0 ")
		}
		i = k
	}
	return b.String(), nil
}

// evalCondition evaluates the controlling expression of #if or #elif.
func evalCondition(expr string, macros map[string]string) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return false, errors.New("expected value in expression")
	}
	resolved, err := resolveDefined(expr, macros)
	if err != nil {
		return false, err
	}
	toks, err := tokenizeExpr(expand(resolved, macros))
	if err != nil {
		return false, err
	}
	p := &exprParser{toks: toks}
	v, err := p.ternary()
	if err != nil {
		return false, err
	}
	if p.pos < len(p.toks) {
		return false, fmt.Errorf("token is not a valid binary operator in a preprocessor subexpression: '%s'", p.toks[p.pos])
	}
	return v != 0, nil
}

var exprOperators = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"(", ")", "!", "~", "+", "-", "*", "/", "%", "<", ">", "&", "^", "|", "?", ":",
}

func tokenizeExpr(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c >= '0' && c <= '9', isIdentStart(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			matched := false
			for _, op := range exprOperators {
				if strings.HasPrefix(s[i:], op) {
					toks = append(toks, op)
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("invalid token at start of a preprocessor expression: '%c'", c)
			}
		}
	}
	return toks, nil
}

// exprParser evaluates preprocessor expressions in intmax_t arithmetic.
// Identifiers left after macro expansion evaluate to 0.
type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) ternary() (int64, error) {
	cond, err := p.binary(0)
	if err != nil {
		return 0, err
	}
	if p.peek() != "?" {
		return cond, nil
	}
	p.next()
	a, err := p.ternary()
	if err != nil {
		return 0, err
	}
	if p.next() != ":" {
		return 0, errors.New("expected ':' in conditional expression")
	}
	b, err := p.ternary()
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

var binaryPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (p *exprParser) binary(minPrec int) (int64, error) {
	lhs, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		prec, ok := binaryPrec[op]
		if !ok || prec <= minPrec {
			return lhs, nil
		}
		p.next()
		rhs, err := p.binary(prec)
		if err != nil {
			return 0, err
		}
		lhs, err = applyBinary(op, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

func applyBinary(op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">":
		return boolInt(a > b), nil
	case ">=":
		return boolInt(a >= b), nil
	case "<<":
		return a << uint64(b&63), nil
	case ">>":
		return a >> uint64(b&63), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, errors.New("division by zero in preprocessor expression")
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("unknown operator '%s'", op)
}

func (p *exprParser) unary() (int64, error) {
	switch t := p.next(); t {
	case "":
		return 0, errors.New("expected value in expression")
	case "!", "~", "-", "+":
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch t {
		case "!":
			return boolInt(v == 0), nil
		case "~":
			return ^v, nil
		case "-":
			return -v, nil
		}
		return v, nil
	case "(":
		v, err := p.ternary()
		if err != nil {
			return 0, err
		}
		if p.next() != ")" {
			return 0, errors.New("expected ')' in preprocessor expression")
		}
		return v, nil
	default:
		if isIdentStart(t[0]) {
			return 0, nil
		}
		if t[0] >= '0' && t[0] <= '9' {
			return parseIntLiteral(t)
		}
		return 0, fmt.Errorf("invalid token at start of a preprocessor expression: '%s'", t)
	}
}

func parseIntLiteral(t string) (int64, error) {
	digits := strings.TrimRight(t, "uUlL")
	v, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal '%s'", t)
	}
	return int64(v), nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
