// Package handlers maps module paths to the compiled Go functions that
// implement them. Binding activation resolves a spec's module path here and
// invokes the registered handler against the bound node.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	jsoniter "github.com/json-iterator/go"
	"github.com/vk/gridbind/internal/doctree"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TeardownFunc releases whatever a handler set up. A nil teardown means the
// handler holds no resources.
type TeardownFunc func(ctx context.Context) error

// RegisteredHandler holds the compiled Go parts of one module.
//
// Fn must have the signature
//
//	func(ctx context.Context, node *doctree.Node, input *T) (TeardownFunc, error)
//
// where *T is the type produced by NewInput. A nil NewInput means the module
// takes no options.
type RegisteredHandler struct {
	NewInput func() any
	Fn       any
}

// Module is the interface every built-in module implements to be registered.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all registered module handlers for one application instance.
type Handlers struct {
	all map[string]*RegisteredHandler
}

// New creates and initializes an empty handler registry.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]*RegisteredHandler),
	}
}

// Register registers a handler under a module path. Registering the same
// path twice is a programmer error.
func (h *Handlers) Register(path string, handler *RegisteredHandler) {
	if _, exists := h.all[path]; exists {
		panic(fmt.Sprintf("module handler with path '%s' already registered", path))
	}
	slog.Debug("Registering module handler.", "path", path)
	h.all[path] = handler
}

// Lookup returns the handler registered under a module path.
func (h *Handlers) Lookup(path string) (*RegisteredHandler, bool) {
	handler, ok := h.all[path]
	return handler, ok
}

// Paths returns the registered module paths, for startup logging.
func (h *Handlers) Paths() []string {
	paths := make([]string, 0, len(h.all))
	for path := range h.all {
		paths = append(paths, path)
	}
	return paths
}

// Invoke resolves the module path and calls its handler for the given node,
// decoding the opaque options payload into the handler's input struct first.
func (h *Handlers) Invoke(ctx context.Context, path string, node *doctree.Node, options any) (TeardownFunc, error) {
	handler, ok := h.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("unknown module path '%s'", path)
	}

	var inputStruct any
	if handler.NewInput != nil {
		inputStruct = handler.NewInput()
		if options != nil {
			if err := decodeOptions(options, inputStruct); err != nil {
				return nil, fmt.Errorf("failed to decode options for module '%s': %w", path, err)
			}
		}
	}

	handlerFunc := reflect.ValueOf(handler.Fn)
	fnType := handlerFunc.Type()
	if fnType.Kind() != reflect.Func || fnType.NumOut() != 2 || fnType.Out(0) != teardownType {
		panic(fmt.Sprintf("handler for module path '%s' must return (TeardownFunc, error), has type %s", path, fnType))
	}

	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(node)}
	if inputStruct == nil {
		callArgs = append(callArgs, reflect.Zero(fnType.In(2)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	teardown := results[0].Interface().(TeardownFunc)
	if errResult := results[1].Interface(); errResult != nil {
		return teardown, errResult.(error)
	}
	return teardown, nil
}

var teardownType = reflect.TypeOf(TeardownFunc(nil))

// decodeOptions binds the decoded-JSON options value onto the handler's
// input struct by round-tripping through the JSON codec.
func decodeOptions(options any, target any) error {
	raw, err := json.Marshal(options)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
