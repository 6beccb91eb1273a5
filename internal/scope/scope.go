package scope

// Scope controls how long a bean instance lives.
type Scope int

const (
	// Singleton beans are created once per container.
	Singleton Scope = iota
	// Transient beans are created on every resolution.
	Transient
	// Request beans are created once per request context.
	Request
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case Request:
		return "request"
	default:
		return "unknown"
	}
}
