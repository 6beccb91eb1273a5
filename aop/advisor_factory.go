package aop

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

const (
	declareParentsTag = "declareParents"
	defaultImplTag    = "defaultImpl"
)

// AspectAdvisorFactory compiles aspect types into advisors.
type AspectAdvisorFactory struct {
	parser ExpressionParser
	logger *slog.Logger
}

// NewAspectAdvisorFactory uses parser for pointcut expressions, or the
// default composite parser when nil.
func NewAspectAdvisorFactory(parser ExpressionParser, logger *slog.Logger) *AspectAdvisorFactory {
	if parser == nil {
		parser = DefaultExpressionParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AspectAdvisorFactory{parser: parser, logger: logger}
}

func (f *AspectAdvisorFactory) Parser() ExpressionParser { return f.parser }

func (f *AspectAdvisorFactory) IsAspect(t reflect.Type) bool { return IsAspect(t) }

func (f *AspectAdvisorFactory) Validate(t reflect.Type) error { return ValidateAspect(t) }

type adviceMethod struct {
	name       string
	annotation AdviceAnnotation
}

// Advisors compiles the aspect behind factory. Advice methods are ordered by
// kind (around, before, after, after returning, after throwing) and then by
// name; the position in that order is the advisor's declaration order.
func (f *AspectAdvisorFactory) Advisors(factory MetadataAwareAspectInstanceFactory) ([]Advisor, error) {
	md := factory.AspectMetadata()
	if err := ValidateAspect(md.AspectType); err != nil {
		return nil, err
	}

	lazyFactory := NewLazySingletonAspectInstanceFactory(factory)

	methods, err := adviceMethods(md)
	if err != nil {
		return nil, err
	}

	named := md.NamedPointcuts()
	var advisors []Advisor
	for i, am := range methods {
		if strings.TrimSpace(am.annotation.Pointcut) == "" {
			f.logger.Debug("skipping advice method without pointcut",
				slog.String("aspect", md.AspectName),
				slog.String("method", am.name),
			)
			continue
		}

		sig, err := analyzeAdvice(md.AspectType, am.name, am.annotation)
		if err != nil {
			return nil, err
		}
		pc, err := CompileExpression(am.annotation.Pointcut, md.AspectType, named, f.parser)
		if err != nil {
			return nil, err
		}
		advisors = append(advisors, newModelAdvisor(pc, am.annotation, sig, lazyFactory, i, md.AspectName))
	}

	if len(advisors) > 0 && md.IsLazilyInstantiated() {
		advisors = append([]Advisor{newSyntheticInstantiationAdvisor(lazyFactory)}, advisors...)
	}

	introductions, err := f.introductionAdvisors(md, factory.Order())
	if err != nil {
		return nil, err
	}
	return append(advisors, introductions...), nil
}

// AdvisorsForInstance compiles a singleton aspect instance.
func (f *AspectAdvisorFactory) AdvisorsForInstance(instance any, name string) ([]Advisor, error) {
	factory, err := NewSingletonAspectInstanceFactory(instance, name, f.parser)
	if err != nil {
		return nil, err
	}
	return f.Advisors(factory)
}

func adviceMethods(md *AspectMetadata) ([]adviceMethod, error) {
	var out []adviceMethod
	for name, ann := range md.Annotations().Advice {
		if ann.Kind == KindPointcut {
			continue
		}
		if !ann.Kind.IsAdvice() {
			return nil, errUnsupportedAdvice(md.AspectName+"."+name, fmt.Sprintf("unsupported advice kind %s", ann.Kind))
		}
		if _, ok := md.AspectType.MethodByName(name); !ok {
			return nil, errConfig(md.AspectName, "advice declared for unknown method %s", name)
		}
		out = append(out, adviceMethod{name: name, annotation: ann})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].annotation.Kind != out[j].annotation.Kind {
			return out[i].annotation.Kind < out[j].annotation.Kind
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

// introductionAdvisors emits one advisor per interface-typed field tagged
// declareParents. The defaultImpl tag names a method of the aspect returning
// a fresh delegate.
func (f *AspectAdvisorFactory) introductionAdvisors(md *AspectMetadata, order int) ([]Advisor, error) {
	st := md.AspectType.Elem()
	var out []Advisor

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		pattern, ok := field.Tag.Lookup(declareParentsTag)
		if !ok {
			continue
		}
		if field.Type.Kind() != reflect.Interface {
			return nil, errConfig(md.AspectName, "declareParents field %s must have an interface type", field.Name)
		}
		implName := field.Tag.Get(defaultImplTag)
		if implName == "" {
			return nil, errNoDefaultImpl(md.AspectName, field.Name)
		}

		newDelegate, err := delegateConstructor(md, field, implName)
		if err != nil {
			return nil, err
		}
		cf, err := TypePatternClassFilter(strings.TrimSpace(pattern))
		if err != nil {
			return nil, err
		}
		out = append(out, NewDeclareParentsAdvisor(field.Type, cf, newDelegate, order))
	}
	return out, nil
}

func delegateConstructor(md *AspectMetadata, field reflect.StructField, implName string) (func() (any, error), error) {
	subject := md.AspectName + "." + implName
	m, ok := md.AspectType.MethodByName(implName)
	if !ok {
		return nil, errConfig(subject, "defaultImpl method for field %s not found", field.Name)
	}

	ft := m.Type
	returnsErr := ft.NumOut() == 2 && ft.Out(1) == ireflect.ErrorType()
	if ft.NumIn() != 1 || (ft.NumOut() != 1 && !returnsErr) || !ft.Out(0).Implements(field.Type) {
		return nil, errConfig(
			subject, "defaultImpl must be func() %s or func() (%s, error)", field.Type, field.Type,
		)
	}

	aspect := md.AspectType
	return func() (any, error) {
		out := zeroAspect(aspect).MethodByName(implName).Call(nil)
		if returnsErr && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}, nil
}
