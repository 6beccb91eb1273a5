package aop

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// PatternParser understands two primitives:
//
//	execution([result] [type.]method(params))
//	within(type)
//
// The execution( wrapper may be omitted. In type and method patterns "*"
// matches a run of characters without "/", and ".." matches anything. Type
// patterns containing "/" or "." are matched against "pkgpath.Name", others
// against the bare type name. In params, ".." matches any remaining
// parameters, "*" exactly one, and anything else the parameter's type string.
type PatternParser struct{}

func (PatternParser) Parse(expression string) (Pointcut, error) {
	src := strings.TrimSpace(expression)

	switch {
	case strings.HasPrefix(src, "within(") && strings.HasSuffix(src, ")"):
		typePattern := strings.TrimSpace(src[len("within(") : len(src)-1])
		tp, err := compileTypePattern(typePattern)
		if err != nil {
			return nil, err
		}
		return NewPointcut(tp, TrueMethodMatcher), nil
	case strings.HasPrefix(src, "execution(") && strings.HasSuffix(src, ")"):
		src = strings.TrimSpace(src[len("execution(") : len(src)-1])
	}

	mp, err := compileMethodPattern(src)
	if err != nil {
		return nil, err
	}
	return NewPointcut(TrueClassFilter, mp), nil
}

var globCache sync.Map

// globRegexp compiles a glob where ".." matches anything and "*" matches a
// run without "/".
func globRegexp(glob string) (*regexp.Regexp, error) {
	if cached, ok := globCache.Load(glob); ok {
		return cached.(*regexp.Regexp), nil
	}

	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); i++ {
		switch {
		case strings.HasPrefix(glob[i:], ".."):
			b.WriteString(".*")
			i++
		case glob[i] == '*':
			b.WriteString("[^/]*")
		default:
			b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, errConfig(glob, "invalid pattern: %v", err)
	}
	globCache.Store(glob, re)
	return re, nil
}

type typePattern struct {
	pattern   string
	re        *regexp.Regexp
	qualified bool
}

func compileTypePattern(pattern string) (*typePattern, error) {
	if pattern == "" {
		return nil, errConfig(pattern, "empty type pattern")
	}
	re, err := globRegexp(pattern)
	if err != nil {
		return nil, err
	}
	return &typePattern{
		pattern:   pattern,
		re:        re,
		qualified: strings.ContainsAny(pattern, "/."),
	}, nil
}

func (tp *typePattern) Matches(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if tp.pattern == "*" || tp.pattern == ".." {
		return true
	}
	if tp.qualified {
		return tp.re.MatchString(ireflect.QualifiedName(t))
	}
	return tp.re.MatchString(ireflect.SimpleName(t))
}

func (tp *typePattern) String() string { return tp.pattern }

// TypePatternClassFilter matches types against a type pattern.
func TypePatternClassFilter(pattern string) (ClassFilter, error) {
	return compileTypePattern(pattern)
}

type methodPattern struct {
	source   string
	result   *regexp.Regexp
	declared *typePattern
	name     *regexp.Regexp
	params   []string
	anyTail  bool
}

func compileMethodPattern(src string) (*methodPattern, error) {
	open := strings.LastIndex(src, "(")
	if open < 0 || !strings.HasSuffix(src, ")") {
		return nil, errConfig(src, "method pattern needs a parameter list")
	}

	mp := &methodPattern{source: src}
	head := strings.TrimSpace(src[:open])
	paramList := strings.TrimSpace(src[open+1 : len(src)-1])

	fields := strings.Fields(head)
	var decl string
	switch len(fields) {
	case 1:
		decl = fields[0]
	case 2:
		re, err := globRegexp(fields[0])
		if err != nil {
			return nil, err
		}
		if fields[0] != "*" {
			mp.result = re
		}
		decl = fields[1]
	default:
		return nil, errConfig(src, "expected [result] [type.]method(params)")
	}

	namePattern := decl
	if dot := strings.LastIndex(decl, "."); dot > 0 && !strings.HasSuffix(decl[:dot+1], "..") {
		tp, err := compileTypePattern(decl[:dot])
		if err != nil {
			return nil, err
		}
		mp.declared = tp
		namePattern = decl[dot+1:]
	}
	re, err := globRegexp(namePattern)
	if err != nil {
		return nil, err
	}
	mp.name = re

	if paramList != "" {
		for _, p := range strings.Split(paramList, ",") {
			mp.params = append(mp.params, strings.TrimSpace(p))
		}
		if last := mp.params[len(mp.params)-1]; last == ".." {
			mp.anyTail = true
			mp.params = mp.params[:len(mp.params)-1]
		}
	}
	return mp, nil
}

func (mp *methodPattern) Matches(m Method, target reflect.Type) bool {
	if !mp.name.MatchString(m.Name) {
		return false
	}
	if mp.declared != nil && !mp.declared.Matches(m.DeclaringType) && !mp.declared.Matches(target) {
		return false
	}
	if m.Type == nil {
		return mp.result == nil && len(mp.params) == 0 && mp.anyTail
	}
	if mp.result != nil && !mp.result.MatchString(resultString(m.Type)) {
		return false
	}
	return mp.matchesParams(m.Type)
}

func (mp *methodPattern) matchesParams(ft reflect.Type) bool {
	n := ft.NumIn()
	if mp.anyTail {
		if n < len(mp.params) {
			return false
		}
	} else if n != len(mp.params) {
		return false
	}
	for i, p := range mp.params {
		if p != "*" && p != ft.In(i).String() {
			return false
		}
	}
	return true
}

func (mp *methodPattern) IsRuntime() bool { return false }

func (mp *methodPattern) MatchesArgs(Method, reflect.Type, []any) bool {
	panic(errIllegalState("illegal MethodMatcher usage: static matcher asked for a dynamic match"))
}

func (mp *methodPattern) String() string { return "execution(" + mp.source + ")" }

// resultString renders the results of ft the way result patterns see them:
// a single result by its type, several as a parenthesized list, none as "".
func resultString(ft reflect.Type) string {
	switch ft.NumOut() {
	case 0:
		return ""
	case 1:
		return ft.Out(0).String()
	}
	parts := make([]string, ft.NumOut())
	for i := range parts {
		parts[i] = ft.Out(i).String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

// CompositeParser sends expressions starting with "expr:" to Expr and all
// others to Pattern.
type CompositeParser struct {
	Pattern ExpressionParser
	Expr    ExpressionParser
}

// DefaultExpressionParser returns the composite of the pattern and expr
// oracles.
func DefaultExpressionParser() *CompositeParser {
	return &CompositeParser{Pattern: PatternParser{}, Expr: NewExprParser()}
}

func (c *CompositeParser) Parse(expression string) (Pointcut, error) {
	src := strings.TrimSpace(expression)
	if strings.HasPrefix(src, exprPrefix) {
		if c.Expr == nil {
			return nil, errConfig(src, "no expr parser configured")
		}
		return c.Expr.Parse(src)
	}
	if c.Pattern == nil {
		return nil, errConfig(src, "no pattern parser configured")
	}
	return c.Pattern.Parse(src)
}
