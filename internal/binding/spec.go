package binding

import "fmt"

// Spec is one module-to-node binding before activation. Options is the
// opaque decoded options payload; Conditions, when non-empty, gates the
// activation behind an expression evaluated by the loading strategy.
type Spec struct {
	Path       string
	Options    any
	Conditions string
}

// Config names the node attributes the parser reads. The keys are opaque:
// renaming them changes where declarations are looked up, never how they are
// parsed.
type Config struct {
	ModuleAttr     string
	OptionsAttr    string
	ConditionsAttr string
	PriorityAttr   string
}

// DefaultConfig returns the standard attribute names.
func DefaultConfig() Config {
	return Config{
		ModuleAttr:     "bind",
		OptionsAttr:    "bind-options",
		ConditionsAttr: "bind-if",
		PriorityAttr:   "bind-priority",
	}
}

// ParseError reports a malformed multi-binding declaration. In lenient mode
// the parser degrades to an empty spec list instead of returning it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed binding declaration %q: %v", e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
