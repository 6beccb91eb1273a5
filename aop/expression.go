package aop

import (
	"fmt"
	"reflect"
	"strings"
)

// ExpressionParser turns one primitive pointcut expression into a Pointcut.
// Boolean operators and named references are handled before the parser is
// asked.
type ExpressionParser interface {
	Parse(expression string) (Pointcut, error)
}

// ExpressionParserFunc adapts a function to ExpressionParser.
type ExpressionParserFunc func(expression string) (Pointcut, error)

func (f ExpressionParserFunc) Parse(expression string) (Pointcut, error) {
	return f(expression)
}

// ExpressionPointcut is a pointcut compiled from an expression declared on an
// aspect. Expressions combine primitives with &&, || and !, and may refer to
// named pointcuts of the same aspect as Name().
type ExpressionPointcut struct {
	expression string
	aspectType reflect.Type
	pointcut   Pointcut
}

// CompileExpression compiles expression for aspectType. named maps pointcut
// names to their expressions.
func CompileExpression(
	expression string, aspectType reflect.Type, named map[string]string, parser ExpressionParser,
) (*ExpressionPointcut, error) {
	c := &expressionCompiler{named: named, parser: parser, subject: fmt.Sprint(aspectType)}
	pc, err := c.compile(expression, nil)
	if err != nil {
		return nil, err
	}
	return &ExpressionPointcut{expression: expression, aspectType: aspectType, pointcut: pc}, nil
}

func (p *ExpressionPointcut) ClassFilter() ClassFilter     { return p.pointcut.ClassFilter() }
func (p *ExpressionPointcut) MethodMatcher() MethodMatcher { return p.pointcut.MethodMatcher() }
func (p *ExpressionPointcut) Expression() string           { return p.expression }
func (p *ExpressionPointcut) AspectType() reflect.Type     { return p.aspectType }

func (p *ExpressionPointcut) String() string {
	return "ExpressionPointcut: " + p.expression
}

type expressionCompiler struct {
	named   map[string]string
	parser  ExpressionParser
	subject string
}

func (c *expressionCompiler) compile(expression string, resolving []string) (Pointcut, error) {
	src := strings.TrimSpace(expression)
	if src == "" {
		return nil, errConfig(c.subject, "empty pointcut expression")
	}
	if strings.HasPrefix(src, exprPrefix) {
		return c.parser.Parse(src)
	}

	p := &boolParser{src: src, compiler: c, resolving: resolving}
	pc, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, errConfig(c.subject, "unexpected %q at offset %d in pointcut %q", p.src[p.pos:], p.pos, src)
	}
	return pc, nil
}

func (c *expressionCompiler) leaf(text string, resolving []string) (Pointcut, error) {
	if name, ok := referenceName(text); ok {
		if target, declared := c.named[name]; declared {
			for _, r := range resolving {
				if r == name {
					return nil, errConfig(c.subject, "circular pointcut reference %s -> %s", strings.Join(resolving, " -> "), name)
				}
			}
			next := append(append([]string(nil), resolving...), name)
			return c.compile(target, next)
		}
	}
	return c.parser.Parse(text)
}

// referenceName recognizes Name() with an identifier name.
func referenceName(text string) (string, bool) {
	if !strings.HasSuffix(text, "()") {
		return "", false
	}
	name := strings.TrimSuffix(text, "()")
	if name == "" {
		return "", false
	}
	for i, r := range name {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return "", false
		}
	}
	return name, true
}

type boolParser struct {
	src       string
	pos       int
	compiler  *expressionCompiler
	resolving []string
}

func (p *boolParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *boolParser) consume(token string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], token) {
		p.pos += len(token)
		return true
	}
	return false
}

func (p *boolParser) parseOr() (Pointcut, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consume("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = UnionPointcuts(left, right)
	}
	return left, nil
}

func (p *boolParser) parseAnd() (Pointcut, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.consume("&&") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = IntersectPointcuts(left, right)
	}
	return left, nil
}

func (p *boolParser) parseNot() (Pointcut, error) {
	if p.consume("!") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return NegatePointcut(inner), nil
	}
	return p.parsePrimary()
}

func (p *boolParser) parsePrimary() (Pointcut, error) {
	if p.consume("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, errConfig(p.compiler.subject, "missing ) in pointcut %q", p.src)
		}
		return inner, nil
	}

	p.skipSpace()
	start := p.pos
	depth := 0
loop:
	for p.pos < len(p.src) {
		switch {
		case p.src[p.pos] == '(':
			depth++
		case p.src[p.pos] == ')':
			if depth == 0 {
				break loop
			}
			depth--
		case depth == 0 && (strings.HasPrefix(p.src[p.pos:], "&&") || strings.HasPrefix(p.src[p.pos:], "||")):
			break loop
		}
		p.pos++
	}

	text := strings.TrimSpace(p.src[start:p.pos])
	if text == "" {
		return nil, errConfig(p.compiler.subject, "missing pointcut at offset %d in %q", start, p.src)
	}
	if depth != 0 {
		return nil, errConfig(p.compiler.subject, "unbalanced parentheses in pointcut %q", p.src)
	}
	return p.compiler.leaf(text, p.resolving)
}

// NegatePointcut selects what pc does not. The class filter of the result
// accepts every type; a runtime inner matcher keeps the result runtime.
func NegatePointcut(pc Pointcut) Pointcut {
	return NewPointcut(TrueClassFilter, negatedMethodMatcher{cf: pc.ClassFilter(), mm: pc.MethodMatcher()})
}

type negatedMethodMatcher struct {
	cf ClassFilter
	mm MethodMatcher
}

func (n negatedMethodMatcher) Matches(m Method, target reflect.Type) bool {
	if n.mm.IsRuntime() {
		return true
	}
	return !(n.cf.Matches(target) && n.mm.Matches(m, target))
}

func (n negatedMethodMatcher) IsRuntime() bool { return n.mm.IsRuntime() }

func (n negatedMethodMatcher) MatchesArgs(m Method, target reflect.Type, args []any) bool {
	if !n.cf.Matches(target) || !n.mm.Matches(m, target) {
		return true
	}
	return !n.mm.MatchesArgs(m, target, args)
}
