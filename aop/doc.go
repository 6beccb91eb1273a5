// Package aop resolves advisors for container beans and runs them as
// interceptor chains around method calls.
//
// # Aspects
//
// An aspect is a struct type implementing Aspect. Its Annotations declare
// which methods are advice and where they apply:
//
//	type Audit struct{ log *slog.Logger }
//
//	func (Audit) Annotations() aop.Annotations {
//		return aop.Annotations{Advice: map[string]aop.AdviceAnnotation{
//			"services": aop.NamedPointcut("* ..*Service.*(..)"),
//			"Enter":    aop.Before("services()"),
//			"Failed":   aop.AfterThrowing("services()", "err"),
//		}}
//	}
//
//	func (a *Audit) Enter(jp aop.JoinPoint)             { a.log.Info("enter", "method", jp.Method()) }
//	func (a *Audit) Failed(jp aop.JoinPoint, err error) { a.log.Warn("failed", "error", err) }
//
// AspectAdvisorFactory compiles an aspect into one advisor per advice
// method. Within one aspect, advice is ordered around, before, after, after
// returning, after throwing, and then by method name.
//
// # Pointcuts
//
// Expressions are handed to an ExpressionParser. The default parser accepts
// execution(...) and within(...) patterns, "expr:" programs evaluated with
// github.com/expr-lang/expr, references to named pointcuts, and the
// operators &&, || and !.
//
// # Proxies
//
// Go cannot implement interfaces at run time. A Proxy dispatches calls by
// name; a typed view over it is a stub registered with RegisterStub:
//
//	type orderServiceStub struct {
//		*aop.Proxy
//		place func(ctx context.Context, id string) (Order, error)
//	}
//
//	func (s orderServiceStub) Place(ctx context.Context, id string) (Order, error) {
//		return s.place(ctx, id)
//	}
//
//	aop.RegisterStub(stubs, func(p *aop.Proxy) OrderService {
//		return orderServiceStub{Proxy: p, place: aop.Func[func(context.Context, string) (Order, error)](p, "Place")}
//	})
//
// AutoProxyCreator is the bean.PostProcessor that wraps matching container
// beans this way.
package aop
