package aop

// joinPointBeforeAdvice is implemented by before advice that wants the full
// join point instead of method, arguments and target.
type joinPointBeforeAdvice interface {
	beforeJoinPoint(jp JoinPoint) error
}

type joinPointAfterReturningAdvice interface {
	afterReturningJoinPoint(jp JoinPoint, results []any) error
}

type beforeInterceptor struct {
	advice MethodBeforeAdvice
}

func (i *beforeInterceptor) Shapes() Shape { return ShapeInterceptor }

func (i *beforeInterceptor) Invoke(inv MethodInvocation) ([]any, error) {
	var err error
	if jpa, ok := i.advice.(joinPointBeforeAdvice); ok {
		err = jpa.beforeJoinPoint(inv)
	} else {
		err = i.advice.Before(inv.Method(), inv.Arguments(), inv.Target())
	}
	if err != nil {
		return nil, err
	}
	return inv.Proceed()
}

func (i *beforeInterceptor) Order() int { return OrderOf(i.advice) }

type afterReturningInterceptor struct {
	advice AfterReturningAdvice
}

func (i *afterReturningInterceptor) Shapes() Shape { return ShapeInterceptor }

// Invoke runs the advice only after a normal return. Results reach the caller
// unchanged unless the advice fails.
func (i *afterReturningInterceptor) Invoke(inv MethodInvocation) ([]any, error) {
	results, err := inv.Proceed()
	if err != nil {
		return results, err
	}

	if jpa, ok := i.advice.(joinPointAfterReturningAdvice); ok {
		err = jpa.afterReturningJoinPoint(inv, results)
	} else {
		err = i.advice.AfterReturning(results, inv.Method(), inv.Arguments(), inv.Target())
	}
	if err != nil {
		return results, err
	}
	return results, nil
}

func (i *afterReturningInterceptor) Order() int { return OrderOf(i.advice) }
