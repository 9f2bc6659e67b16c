package binding

import (
	"bytes"
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Parser converts a node's declaration attribute into an ordered list of
// binding specs. In strict mode malformed declarations are returned as
// *ParseError; otherwise they degrade to an empty list.
type Parser struct {
	cfg    Config
	strict bool
}

// NewParser creates a parser reading the attribute names in cfg.
func NewParser(cfg Config, strict bool) *Parser {
	return &Parser{cfg: cfg, strict: strict}
}

// ParseNode reads the declaration and its sibling attributes off the node
// and applies the micro-format rules. It is a pure transform over the node's
// attributes.
func (p *Parser) ParseNode(ctx context.Context, node *doctree.Node) ([]Spec, error) {
	raw, _ := node.Attribute(p.cfg.ModuleAttr)
	options, _ := node.Attribute(p.cfg.OptionsAttr)
	conditions, _ := node.Attribute(p.cfg.ConditionsAttr)

	specs, err := p.Parse(raw, options, conditions)
	if err != nil {
		if p.strict {
			return nil, err
		}
		ctxlog.FromContext(ctx).Warn("Ignoring malformed binding declaration.", "node", node.Path(), "error", err)
		return nil, nil
	}
	return specs, nil
}

// Parse applies the micro-format rules to a raw declaration string. The
// sibling options and conditions values are consulted only for the
// single-binding form; the multi-binding forms carry their own.
func (p *Parser) Parse(raw, options, conditions string) ([]Spec, error) {
	if raw == "" {
		return nil, nil
	}
	if raw[0] == '[' {
		return p.parseMulti(raw)
	}
	return []Spec{{
		Path:       raw,
		Options:    decodeOptions(options),
		Conditions: conditions,
	}}, nil
}

func (p *Parser) parseMulti(raw string) ([]Spec, error) {
	var elems []jsoniter.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if len(elems) == 0 {
		return nil, nil
	}

	if firstByte(elems[0]) == '{' {
		return p.parseObjectForm(raw, elems)
	}
	return p.parseTupleForm(raw, elems)
}

// parseObjectForm handles elements shaped {"path": ..., "options": ...,
// "conditions": ...}.
func (p *Parser) parseObjectForm(raw string, elems []jsoniter.RawMessage) ([]Spec, error) {
	type objectSpec struct {
		Path       string `json:"path"`
		Options    any    `json:"options"`
		Conditions string `json:"conditions"`
	}

	specs := make([]Spec, 0, len(elems))
	for i, elem := range elems {
		var o objectSpec
		if err := json.Unmarshal(elem, &o); err != nil {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		if o.Path == "" {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: missing module path", i)}
		}
		specs = append(specs, Spec{Path: o.Path, Options: o.Options, Conditions: o.Conditions})
	}
	return specs, nil
}

// parseTupleForm handles dense positional elements [path, a, b]. A string in
// position 1 is the conditions expression and position 2 the options;
// otherwise position 1 is the options and position 2 the conditions.
func (p *Parser) parseTupleForm(raw string, elems []jsoniter.RawMessage) ([]Spec, error) {
	specs := make([]Spec, 0, len(elems))
	for i, elem := range elems {
		var tuple []any
		if err := json.Unmarshal(elem, &tuple); err != nil {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		if len(tuple) == 0 {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: empty tuple", i)}
		}
		path, ok := tuple[0].(string)
		if !ok || path == "" {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("element %d: position 0 must be a module path string", i)}
		}

		spec := Spec{Path: path}
		if len(tuple) > 1 {
			if s, ok := tuple[1].(string); ok {
				spec.Conditions = s
				if len(tuple) > 2 {
					spec.Options = tuple[2]
				}
			} else {
				spec.Options = tuple[1]
				if len(tuple) > 2 {
					// A non-string in the conditions slot has no
					// meaning; drop it rather than failing.
					if s, ok := tuple[2].(string); ok {
						spec.Conditions = s
					}
				}
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// decodeOptions decodes the sibling options attribute. Values that are not
// valid JSON are passed through as the raw string.
func decodeOptions(options string) any {
	if options == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(options), &decoded); err != nil {
		return options
	}
	return decoded
}

func firstByte(raw jsoniter.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
