// Package ir defines the intermediate representation rewritten by the
// gradient-lowering transforms: a Module owning a symbol table of callables
// (Func) and globals, whose bodies are single-assignment operations over
// typed values with structured control flow.
//
// The main elements in the package are:
//
//   - Module: top-level container. Callables and globals are registered in
//     one symbol table; creation is idempotent (create-if-absent), which is
//     the only memoization mechanism the transforms rely on.
//
//   - Func: a callable with ordered parameter and result types and a
//     single-block body of structured control flow. Declarations (no body)
//     model external entry points such as the autodiff engine. Funcs carry
//     open-ended attributes ("qnode", "diff_method", "gradient.qgrad", ...).
//
//   - Operation / Value: each Value is produced by exactly one Operation
//     result or block parameter and consumed zero or more times; use lists
//     are maintained so rewrites can re-wire consumers. Operation kinds form
//     a closed OpType enum with capability predicates (constant-like,
//     differentiable gate, return-like) instead of open subtyping.
//
// Structural contract violations (wrong arity, unknown symbols at build
// time) panic via github.com/gomlx/exceptions: they signal broken invariants
// in the calling transform, not user-recoverable conditions. Recoverable
// verification is available through Verify, which collects all violations.
package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"golang.org/x/exp/slices"
)

// Symbol is an entry in a Module's symbol table: a *Func or a *Global.
type Symbol interface {
	SymbolName() string
}

// Module is the top-level container of callables and globals.
//
// A transform assumes exclusive ownership of the Module it mutates; the
// Module itself performs no synchronization.
type Module struct {
	symbols map[string]Symbol
	order   []string

	nextValueID int
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{symbols: make(map[string]Symbol)}
}

// Lookup returns the symbol registered under name, or nil.
func (m *Module) Lookup(name string) Symbol {
	return m.symbols[name]
}

// LookupFunc returns the callable registered under name, or nil if the name
// is unbound or bound to a non-callable.
func (m *Module) LookupFunc(name string) *Func {
	fn, _ := m.symbols[name].(*Func)
	return fn
}

// LookupGlobal returns the global registered under name, or nil.
func (m *Module) LookupGlobal(name string) *Global {
	g, _ := m.symbols[name].(*Global)
	return g
}

// NumSymbols returns the number of registered symbols.
func (m *Module) NumSymbols() int { return len(m.symbols) }

// SymbolNames returns the registered names in creation order.
func (m *Module) SymbolNames() []string { return slices.Clone(m.order) }

// Funcs returns all callables in creation order.
func (m *Module) Funcs() []*Func {
	fns := make([]*Func, 0, len(m.order))
	for _, name := range m.order {
		if fn, ok := m.symbols[name].(*Func); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (m *Module) register(s Symbol) {
	name := s.SymbolName()
	if _, found := m.symbols[name]; found {
		exceptions.Panicf("ir: symbol %q registered twice", name)
	}
	m.symbols[name] = s
	m.order = append(m.order, name)
}

// CreateFunc registers a new callable with an empty entry block. It panics
// if the name is taken -- use GetOrCreateFunc for idempotent creation.
func (m *Module) CreateFunc(name string, ftype FuncType) *Func {
	fn := &Func{name: name, module: m, ftype: ftype, attrs: map[string]any{}}
	fn.body = &Region{ownerFn: fn}
	entry := &Block{region: fn.body}
	for _, t := range ftype.Inputs {
		entry.params = append(entry.params, m.newValue(t, nil, entry))
	}
	fn.body.blocks = append(fn.body.blocks, entry)
	m.register(fn)
	return fn
}

// GetOrCreateFunc returns the callable registered under name, creating it
// if absent. The returned flag reports whether the callable already existed;
// when it did, the requested type is ignored.
func (m *Module) GetOrCreateFunc(name string, ftype FuncType) (fn *Func, existed bool) {
	if fn = m.LookupFunc(name); fn != nil {
		return fn, true
	}
	return m.CreateFunc(name, ftype), false
}

// DeclareFunc registers (idempotently) a body-less callable, used for
// external entry points. Variadic declarations accept extra trailing
// arguments at call sites.
func (m *Module) DeclareFunc(name string, ftype FuncType) *Func {
	if fn := m.LookupFunc(name); fn != nil {
		return fn
	}
	fn := &Func{name: name, module: m, ftype: ftype, attrs: map[string]any{}, private: true}
	m.register(fn)
	return fn
}

// newValue mints a fresh value. def is the producing operation (nil for
// block parameters), owner the block the value lives in.
func (m *Module) newValue(t Type, def *Operation, owner *Block) *Value {
	v := &Value{id: m.nextValueID, typ: t, def: def, owner: owner}
	m.nextValueID++
	return v
}

// String dumps the module, one callable per paragraph.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module: %d symbols\n", len(m.symbols))
	for _, name := range m.order {
		switch s := m.symbols[name].(type) {
		case *Global:
			fmt.Fprintf(&sb, "global @%s : %s = %v\n", s.name, s.typ, s.init)
		case *Func:
			sb.WriteString(s.String())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Global is a module-level named constant or metadata record, e.g. the
// engine's registration triples and constancy tag markers.
type Global struct {
	name string
	typ  Type
	init any
}

// SymbolName implements Symbol.
func (g *Global) SymbolName() string { return g.name }

// Type returns the global's type.
func (g *Global) Type() Type { return g.typ }

// Init returns the initializer value. For function-reference records this is
// a []string of callable names in registration order.
func (g *Global) Init() any { return g.init }

// GetOrCreateGlobal returns the global registered under name, creating it
// with the given type and initializer if absent.
func (m *Module) GetOrCreateGlobal(name string, t Type, init any) (g *Global, existed bool) {
	if g = m.LookupGlobal(name); g != nil {
		return g, true
	}
	g = &Global{name: name, typ: t, init: init}
	m.register(g)
	return g, false
}
