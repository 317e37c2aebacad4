package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler implements a tool.
// It receives the raw argument document and returns the content of a successful result.
// Any returned error is reported to the caller as a failed ToolResult.
type Handler interface {
	Invoke(ctx context.Context, arguments string) (string, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, arguments string) (string, error)

// Invoke calls f(ctx, arguments).
func (f HandlerFunc) Invoke(ctx context.Context, arguments string) (string, error) {
	return f(ctx, arguments)
}

// Tool is a registered tool: its definition, handler and compiled argument schema.
type Tool struct {
	Definition domain.ToolDefinition
	Handler    Handler
	schema     *jsonschema.Schema
}

// Validate checks an argument document against the tool's input schema.
// Tools registered without a schema accept any document, including non-JSON text.
func (t *Tool) Validate(arguments string) error {
	if t.schema == nil {
		return nil
	}
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	var doc any
	if err := json.Unmarshal([]byte(arguments), &doc); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if err := t.schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", t.Definition.Name, err)
	}
	return nil
}

// Registry maps tool names to handlers.
// Registration happens before serving; after Seal the registry is read-only
// and lookups no longer take the lock.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	sealed atomic.Bool
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry.
// It fails with domain.ErrDuplicateTool if the name is taken and with
// domain.ErrRegistrySealed once the registry has been sealed.
func (r *Registry) Register(def domain.ToolDefinition, h Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if h == nil {
		return fmt.Errorf("tool %s: handler is required", def.Name)
	}

	var compiled *jsonschema.Schema
	if strings.TrimSpace(def.InputSchema) != "" {
		s, err := compileSchema(def.Name, def.InputSchema)
		if err != nil {
			return err
		}
		compiled = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return fmt.Errorf("register %s: %w", def.Name, domain.ErrRegistrySealed)
	}
	if _, ok := r.tools[def.Name]; ok {
		return fmt.Errorf("register %s: %w", def.Name, domain.ErrDuplicateTool)
	}

	r.tools[def.Name] = &Tool{Definition: def, Handler: h, schema: compiled}
	r.order = append(r.order, def.Name)
	return nil
}

// RegisterFunc is a convenience wrapper around Register for plain functions.
func (r *Registry) RegisterFunc(name, description, inputSchema string, fn func(ctx context.Context, arguments string) (string, error)) error {
	return r.Register(domain.ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}, HandlerFunc(fn))
}

// Lookup returns the tool registered under name, or domain.ErrToolNotFound.
func (r *Registry) Lookup(name string) (*Tool, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// List returns the definitions of all registered tools in registration order.
func (r *Registry) List() []domain.ToolDefinition {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Seal freezes the registry. Subsequent Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

func compileSchema(name, doc string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("tool %s: schema resource: %w", name, err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", name, err)
	}
	return s, nil
}
