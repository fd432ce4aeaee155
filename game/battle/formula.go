package battle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// FormulaStats is the view of an actor that damage formulas can read.
type FormulaStats struct {
	Stats
	Health    int
	MaxHealth int
}

// StatsOf builds the formula view of an actor.
func StatsOf(a Actor) *FormulaStats {
	return &FormulaStats{Stats: a.Stats(), Health: a.CurrentHealth(), MaxHealth: a.MaxHealth()}
}

// ErrNeedsScript marks formulas that use statements or keywords the built-in
// parser does not handle.
var ErrNeedsScript = errors.New("battle: formula requires script sandbox")

// EvalFormula evaluates a damage formula.
// Variables: a.str, a.agi, a.tech, a.int, a.armor, a.level, a.hp, a.mhp
//            b.*  (same for defender)
// Operators: + - * /  with parentheses.
// Functions: Math.floor, Math.ceil, Math.round, Math.max, Math.min, Math.abs,
//            mitigate(dmg, armor), pierce(dmg, armor), clamp(v, lo, hi)
func EvalFormula(formula string, a, b *FormulaStats) (float64, error) {
	lower := strings.ToLower(formula)
	for _, kw := range []string{"if", "function", "var", "let", "const", ";", "{", "}", "?", "return"} {
		if strings.Contains(lower, kw) {
			return 0, fmt.Errorf("%w: %q", ErrNeedsScript, formula)
		}
	}
	p := &parser{input: formula, a: a, b: b}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected chars at pos %d: %q", p.pos, p.input[p.pos:])
	}
	return v, nil
}

// ---- Recursive-descent parser ----

type parser struct {
	input string
	pos   int
	a, b  *FormulaStats
}

func (p *parser) skipWS() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) consume() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	ch := p.input[p.pos]
	p.pos++
	return ch
}

// parseExpr = parseTerm (('+' | '-') parseTerm)*
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		ch := p.peek()
		if ch != '+' && ch != '-' {
			break
		}
		p.consume()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if ch == '+' {
			v += right
		} else {
			v -= right
		}
	}
	return v, nil
}

// parseTerm = parseFactor (('*' | '/') parseFactor)*
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		ch := p.peek()
		if ch != '*' && ch != '/' {
			break
		}
		p.consume()
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if ch == '*' {
			v *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= right
		}
	}
	return v, nil
}

// parseFactor = '(' parseExpr ')' | number | variable | Math.func(args)
func (p *parser) parseFactor() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.consume()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipWS()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("expected ')'")
		}
		p.pos++
		return v, nil

	case ch == '-':
		p.consume()
		v, err := p.parseFactor()
		return -v, err

	case unicode.IsDigit(rune(ch)) || ch == '.':
		return p.parseNumber()

	case ch == 'a' || ch == 'b':
		return p.parseVariable()

	case ch == 'M':
		return p.parseMathFunc()

	case unicode.IsLetter(rune(ch)) || ch == '_':
		return p.parseCustomFunc()

	default:
		return 0, fmt.Errorf("unexpected character %q at pos %d", ch, p.pos)
	}
}

func (p *parser) parseNumber() (float64, error) {
	p.skipWS()
	start := p.pos
	hasDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' && !hasDot {
			hasDot = true
			p.pos++
		} else if c >= '0' && c <= '9' {
			p.pos++
		} else {
			break
		}
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

func (p *parser) parseVariable() (float64, error) {
	p.skipWS()
	who := p.input[p.pos]
	p.pos++
	if p.pos >= len(p.input) || p.input[p.pos] != '.' {
		return 0, fmt.Errorf("expected '.' after '%c'", who)
	}
	p.pos++
	// read field name
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || p.input[p.pos] == '_') {
		p.pos++
	}
	field := p.input[start:p.pos]
	var stats *FormulaStats
	if who == 'a' {
		stats = p.a
	} else {
		stats = p.b
	}
	return statField(stats, field)
}

func statField(s *FormulaStats, field string) (float64, error) {
	switch field {
	case "str":
		return float64(s.Strength), nil
	case "agi":
		return float64(s.Agility), nil
	case "tech":
		return float64(s.Technique), nil
	case "int":
		return float64(s.Intelligence), nil
	case "armor":
		return float64(s.Armor), nil
	case "level":
		return float64(s.Level), nil
	case "hp":
		return float64(s.Health), nil
	case "mhp":
		return float64(s.MaxHealth), nil
	}
	return 0, fmt.Errorf("unknown stat field %q", field)
}

func (p *parser) parseMathFunc() (float64, error) {
	p.skipWS()
	// expect "Math."
	prefix := "Math."
	if !strings.HasPrefix(p.input[p.pos:], prefix) {
		return 0, fmt.Errorf("expected Math.xxx at pos %d", p.pos)
	}
	p.pos += len(prefix)
	// read function name
	start := p.pos
	for p.pos < len(p.input) && unicode.IsLetter(rune(p.input[p.pos])) {
		p.pos++
	}
	fname := p.input[start:p.pos]
	p.skipWS()
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return 0, fmt.Errorf("expected '(' after Math.%s", fname)
	}
	p.pos++
	args, err := p.parseArgs()
	if err != nil {
		return 0, err
	}
	return applyMathFunc(fname, args)
}

// parseCustomFunc handles the helper functions mitigate, pierce and clamp.
func (p *parser) parseCustomFunc() (float64, error) {
	p.skipWS()
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || p.input[p.pos] == '_' || unicode.IsDigit(rune(p.input[p.pos]))) {
		p.pos++
	}
	fname := p.input[start:p.pos]
	p.skipWS()
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return 0, fmt.Errorf("expected '(' after %s", fname)
	}
	p.pos++
	args, err := p.parseArgs()
	if err != nil {
		return 0, err
	}
	return applyCustomFunc(fname, args)
}

func (p *parser) parseArgs() ([]float64, error) {
	var args []float64
	for {
		p.skipWS()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("expected ')'")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			return args, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		p.skipWS()
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
		}
	}
}

func applyCustomFunc(name string, args []float64) (float64, error) {
	switch name {
	case "mitigate":
		// mitigate(dmg, armor) = dmg * 100 / (100 + armor)
		if len(args) != 2 {
			return 0, fmt.Errorf("mitigate expects 2 args")
		}
		armor := math.Max(0, args[1])
		return args[0] * 100 / (100 + armor), nil

	case "pierce":
		// pierce(dmg, armor) ignores half the armor: dmg - armor/2
		if len(args) != 2 {
			return 0, fmt.Errorf("pierce expects 2 args")
		}
		return args[0] - args[1]/2, nil

	case "clamp":
		if len(args) != 3 {
			return 0, fmt.Errorf("clamp expects 3 args")
		}
		return math.Min(math.Max(args[0], args[1]), args[2]), nil
	}
	return 0, fmt.Errorf("unknown function %q", name)
}

func applyMathFunc(name string, args []float64) (float64, error) {
	switch name {
	case "floor":
		if len(args) != 1 {
			return 0, fmt.Errorf("Math.floor expects 1 argument")
		}
		return math.Floor(args[0]), nil
	case "ceil":
		if len(args) != 1 {
			return 0, fmt.Errorf("Math.ceil expects 1 argument")
		}
		return math.Ceil(args[0]), nil
	case "round":
		if len(args) != 1 {
			return 0, fmt.Errorf("Math.round expects 1 argument")
		}
		return math.Round(args[0]), nil
	case "abs":
		if len(args) != 1 {
			return 0, fmt.Errorf("Math.abs expects 1 argument")
		}
		return math.Abs(args[0]), nil
	case "max":
		if len(args) == 0 {
			return 0, fmt.Errorf("Math.max expects >=1 argument")
		}
		v := args[0]
		for _, a := range args[1:] {
			if a > v {
				v = a
			}
		}
		return v, nil
	case "min":
		if len(args) == 0 {
			return 0, fmt.Errorf("Math.min expects >=1 argument")
		}
		v := args[0]
		for _, a := range args[1:] {
			if a < v {
				v = a
			}
		}
		return v, nil
	}
	return 0, fmt.Errorf("unknown Math.%s", name)
}
