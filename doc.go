// Package stitch is a type-safe dependency injection container with
// aspect-oriented interception.
//
// Beans are registered with generic providers and resolved by type. When
// auto-proxying is enabled, every bean declared with an interface type is
// matched against the container's advisors and aspects after it is created,
// and wrapped in a proxy that runs the matching advice around each call.
//
// # Quick Start
//
//	c := stitch.New(stitch.WithAutoProxy())
//
//	stitch.ProvideValue(c, &Config{Port: 8080})
//	stitch.Provide(c, func(ctx context.Context, r stitch.Resolver) (*Server, error) {
//	    cfg, err := stitch.InvokeCtx[*Config](ctx, c)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Server{config: cfg}, nil
//	})
//
//	c.Run(ctx)
//
// Providers must resolve through the ctx they receive. The container tracks
// the resolution path in it and reports cycles as CIRCULAR_DEPENDENCY
// errors carrying the path.
//
// # Providers
//
//	stitch.Provide[T](c, provider)            // provider function
//	stitch.ProvideValue[T](c, value)          // existing value
//	stitch.ProvideNamed[T](c, "name", prov)   // bean "T#name"
//	stitch.ProvideFunc[T](c, NewService)      // constructor, parameters resolved by type
//	stitch.ProvideStruct[*Service](c)         // fields tagged `stitch:""` injected
//
// Bean names are type keys: "*pkg/path.Type", or "*pkg/path.Type#name" for
// named beans. Keys lists them in registration order.
//
// # Resolution
//
//	svc, err := stitch.Invoke[Service](c)
//	svc := stitch.MustInvoke[Service](c)
//	opt, err := stitch.InvokeOptional[*Cache](c)  // None when not registered
//
// # Aspects
//
// An aspect is a struct whose Annotations method maps advice methods to
// pointcut expressions:
//
//	type Audit struct{ log *slog.Logger }
//
//	func (*Audit) Annotations() aop.Annotations {
//	    return aop.Annotations{Advice: map[string]aop.AdviceAnnotation{
//	        "Record": aop.AfterReturning("* ..*Service.*(..)", "result"),
//	    }}
//	}
//
//	func (a *Audit) Record(jp aop.JoinPoint, result any) { ... }
//
//	stitch.ProvideAspect(c, func(context.Context, stitch.Resolver) (*Audit, error) {
//	    return &Audit{log: logger}, nil
//	})
//
// Go cannot implement interfaces at run time, so each proxied interface
// needs a stub that embeds *aop.Proxy and forwards its methods:
//
//	stitch.RegisterStub(c, func(p *aop.Proxy) OrderService {
//	    return orderStub{Proxy: p, place: aop.Func[func(context.Context, string) error](p, "Place")}
//	})
//
// Beans declared with a concrete type are never proxied. Use Bind[I, T] to
// expose a concrete bean through an interface that can be.
//
// Plain advisors are registered with ProvideAdvisor or Container.AddAdvisors.
// Container.Advisors and FprintAdvisors show the chain that applies to a
// bean.
//
// # Lifecycle
//
//	stitch.Provide(c, NewServer,
//	    stitch.WithOnStart(func(ctx context.Context) error { return server.Listen() }),
//	    stitch.WithOnStop(func(ctx context.Context) error { return server.Shutdown(ctx) }),
//	)
//
// Start creates eager beans and runs OnStart hooks in dependency order; Stop
// runs OnStop hooks in reverse and returns every failure combined. WithLazy
// defers creation and OnStart to the first resolve. WithParallel starts
// beans of the same dependency level concurrently.
//
// # Scopes
//
// Singleton (default), Transient and Request. Request beans are shared
// within a context returned by WithRequestScope.
//
// # Configuration
//
// config.Load reads a YAML, JSON or TOML file, .env files and STITCH_
// environment variables. WithConfig applies the result:
//
//	cfg, err := config.Load("stitch.yaml")
//	c := stitch.New(stitch.WithConfig(cfg))
//
// # Observers
//
//	c := stitch.New(
//	    stitch.WithResolveObserver(func(key string, d time.Duration, err error) { ... }),
//	    stitch.WithProvideObserver(func(key string) { ... }),
//	    stitch.WithStartObserver(func(key string, d time.Duration, err error) { ... }),
//	    stitch.WithStopObserver(func(key string, d time.Duration, err error) { ... }),
//	)
package stitch
