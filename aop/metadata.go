package aop

import (
	"reflect"
	"strings"

	ireflect "github.com/danpasecinic/stitch/internal/reflect"
)

// AspectMetadata describes an aspect type: its name, instantiation model and
// the pointcut of that model.
type AspectMetadata struct {
	AspectType        reflect.Type
	AspectName        string
	PerClause         PerClause
	PerClausePointcut Pointcut

	annotations Annotations
}

// NewAspectMetadata validates t and resolves its per-clause pointcut. An
// empty name defaults to the qualified type name.
func NewAspectMetadata(t reflect.Type, name string, parser ExpressionParser) (*AspectMetadata, error) {
	if err := ValidateAspect(t); err != nil {
		return nil, err
	}

	pt := aspectPointer(t)
	if name == "" {
		name = ireflect.QualifiedName(pt)
	}
	if parser == nil {
		parser = DefaultExpressionParser()
	}

	ann := annotationsOf(pt)
	md := &AspectMetadata{
		AspectType:  pt,
		AspectName:  name,
		PerClause:   ann.PerClause,
		annotations: ann,
	}

	switch ann.PerClause.Kind {
	case SingletonKind:
		md.PerClausePointcut = TruePointcut
	case PerThisKind, PerTargetKind:
		if strings.TrimSpace(ann.PerClause.Expression) == "" {
			return nil, errConfig(name, "%s aspect needs a per-clause pointcut", ann.PerClause.Kind)
		}
		pc, err := CompileExpression(ann.PerClause.Expression, pt, md.NamedPointcuts(), parser)
		if err != nil {
			return nil, err
		}
		md.PerClausePointcut = pc
	case PerTypeWithinKind:
		cf, err := TypePatternClassFilter(strings.TrimSpace(ann.PerClause.Expression))
		if err != nil {
			return nil, err
		}
		md.PerClausePointcut = NewComposablePointcut(NewPointcut(cf, TrueMethodMatcher))
	}
	return md, nil
}

func (m *AspectMetadata) Annotations() Annotations {
	return m.annotations
}

// NamedPointcuts maps the names of the aspect's pointcut declarations to
// their expressions.
func (m *AspectMetadata) NamedPointcuts() map[string]string {
	out := make(map[string]string)
	for name, ann := range m.annotations.Advice {
		if ann.Kind == KindPointcut {
			out[name] = ann.Pointcut
		}
	}
	return out
}

func (m *AspectMetadata) IsPerThisOrPerTarget() bool {
	return m.PerClause.Kind == PerThisKind || m.PerClause.Kind == PerTargetKind
}

func (m *AspectMetadata) IsPerTypeWithin() bool {
	return m.PerClause.Kind == PerTypeWithinKind
}

// IsLazilyInstantiated is true for every model but singleton.
func (m *AspectMetadata) IsLazilyInstantiated() bool {
	return m.IsPerThisOrPerTarget() || m.IsPerTypeWithin()
}
