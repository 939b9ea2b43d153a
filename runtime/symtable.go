package runtime

import (
	"fmt"
	"strings"
)

// Symbol tables for lexical bindings. Symbol tables are attached to scope frames.
// Scope frames are organized in a tree while classes are being defined, and
// captured as immutable chains when a method closure is created.

// --- Tags -------------------------------------------------------

// Tag is the binding type to be stored into symbol tables. Tags bind a name
// to a value of the emulated program (a class, a function, a parameter, …).
// The runtime does not interpret values, they are opaque to this package.
//
type Tag struct {
	name  string
	Value interface{} // bound value
}

// NewTag creates a new tag.
func NewTag(nm string) *Tag {
	return &Tag{name: nm}
}

// WithValue sets the initial value of a tag. Use as
//
//    tag := NewTag("myTag").WithValue(v)
//
func (s *Tag) WithValue(v interface{}) *Tag {
	s.Value = v
	return s
}

// String is a debug Stringer for tags.
func (s *Tag) String() string {
	return fmt.Sprintf("<tag '%s'>", s.Name())
}

// Name gets the tag's name.
func (s *Tag) Name() string {
	return s.name
}

// === Symbol Tables =========================================================

// SymbolTable is a symbol table to store tags (map-like semantics).
type SymbolTable struct {
	Table map[string]*Tag
	order []string // definition order, for dumps
}

// NewSymbolTable creates an empty symbol table.
//
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Table: make(map[string]*Tag),
	}
}

// ResolveTag checks for a tag in the symbol table.
// Returns a tag or nil.
//
func (t *SymbolTable) ResolveTag(tagname string) *Tag {
	return t.Table[tagname]
}

// ResolveOrDefineTag finds
// a tag in the table, inserts a new one if not found.
// Returns the tag and a flag, signalling wether the tag
// has already been present.
//
func (t *SymbolTable) ResolveOrDefineTag(tagname string) (*Tag, bool) {
	if len(tagname) == 0 {
		return nil, false
	}
	found := true
	tag := t.ResolveTag(tagname)
	if tag == nil { // if not already there, insert it
		tag, _ = t.DefineTag(tagname)
		found = false
	}
	return tag, found
}

// DefineTag creates a new tag to store into the symbol table.
// The tag's name may not be empty.
// Overwrites existing tag with this name, if any.
// Returns the new tag and the previously stored tag (or nil).
//
func (t *SymbolTable) DefineTag(tagname string) (*Tag, *Tag) {
	if len(tagname) == 0 {
		return nil, nil
	}
	tag := NewTag(tagname)
	old := t.InsertTag(tag)
	return tag, old
}

// InsertTag inserts a pre-created tag.
func (t *SymbolTable) InsertTag(tag *Tag) *Tag {
	old := t.ResolveTag(tag.name)
	if old == nil {
		t.order = append(t.order, tag.name)
	}
	t.Table[tag.name] = tag
	return old
}

// Size counts the tags in a symbol table.
func (t *SymbolTable) Size() int {
	return len(t.Table)
}

// Each iterates over each tag in the table in definition order, executing a
// mapper function.
func (t *SymbolTable) Each(mapper func(string, *Tag)) {
	for _, k := range t.order {
		mapper(k, t.Table[k])
	}
}

// === Scopes ================================================================

// Scope is a named scope frame, which may contain bindings. Scopes link back to a
// parent scope, forming a tree (or, seen from a single frame, a chain).
type Scope struct {
	Name   string
	Parent *Scope
	symtab *SymbolTable
	depth  int
}

// NewScope creates a new scope.
func NewScope(nm string, parent *Scope) *Scope {
	sc := &Scope{
		Name:   nm,
		Parent: parent,
		symtab: NewSymbolTable(),
	}
	if parent != nil {
		sc.depth = parent.depth + 1
	}
	return sc
}

// Prettyfied Stringer.
func (s *Scope) String() string {
	return fmt.Sprintf("<scope %s>", s.Name)
}

// Tags returns the symbol table of a scope.
func (s *Scope) Tags() *SymbolTable {
	return s.symtab
}

// Define defines a tag carrying value v in the scope. Returns the new tag and
// the previously stored tag under this key, if any.
//
func (s *Scope) Define(tagname string, v interface{}) (*Tag, *Tag) {
	tag, old := s.symtab.DefineTag(tagname)
	if tag != nil {
		tag.Value = v
	}
	return tag, old
}

// ResolveTag finds a tag. Returns the tag (or nil) and a scope. The scope is
// the scope (of a scope-tree-path) the tag was found in.
//
func (s *Scope) ResolveTag(tagname string) (*Tag, *Scope) {
	for ; s != nil; s = s.Parent {
		if tag := s.symtab.ResolveTag(tagname); tag != nil {
			return tag, s
		}
	}
	return nil, nil
}

// ---------------------------------------------------------------------------

// ScopeTree can be treated as a stack during class definition, thus
// building a tree from scopes which are pushed an popped to/from the stack.
// Method closures capture the current TOS as a ScopeChain.
//
type ScopeTree struct {
	ScopeBase *Scope
	ScopeTOS  *Scope
}

// Current gets the current scope of a stack (TOS).
func (scst *ScopeTree) Current() *Scope {
	if scst.ScopeTOS == nil {
		panic("attempt to access scope from empty stack")
	}
	return scst.ScopeTOS
}

// Globals gets the outermost scope, containing global symbols.
func (scst *ScopeTree) Globals() *Scope {
	if scst.ScopeBase == nil {
		panic("attempt to access global scope from empty stack")
	}
	return scst.ScopeBase
}

// Capture returns the current TOS as an immutable scope chain.
func (scst *ScopeTree) Capture() ScopeChain {
	return ChainFrom(scst.Current())
}

// PushNewScope pushes a scope onto the stack of scopes. A scope is constructed,
// including a symbol table for bindings.
func (scst *ScopeTree) PushNewScope(nm string) *Scope {
	scp := scst.ScopeTOS
	newsc := NewScope(nm, scp)
	if scp == nil { // the new scope is the global scope
		scst.ScopeBase = newsc // make new scope anchor
	}
	scst.ScopeTOS = newsc // new scope now TOS
	tracer().P("scope", newsc.Name).Debugf("pushing new scope")
	return newsc
}

// PopScope pops the top-most (recent) scope.
func (scst *ScopeTree) PopScope() *Scope {
	if scst.ScopeTOS == nil {
		panic("attempt to pop scope from empty stack")
	}
	sc := scst.ScopeTOS
	tracer().Debugf("popping scope [%s]", sc.Name)
	scst.ScopeTOS = scst.ScopeTOS.Parent
	return sc
}

// === Scope chains ==========================================================

// ScopeChain is the lexical environment captured when a method closure is
// created. A chain never changes after capture: With returns a new chain which
// shares every frame of the receiver. The zero value is the empty chain.
//
// Chains are values; copying one is as cheap as copying a pointer.
type ScopeChain struct {
	top *Scope
}

// ChainFrom captures the chain ending at scope s (inclusive).
func ChainFrom(s *Scope) ScopeChain {
	return ScopeChain{top: s}
}

// IsEmpty is a predicate: does the chain contain no frames?
func (c ScopeChain) IsEmpty() bool {
	return c.top == nil
}

// Innermost returns the innermost frame of the chain, or nil.
func (c ScopeChain) Innermost() *Scope {
	return c.top
}

// Depth returns the number of frames in the chain.
func (c ScopeChain) Depth() int {
	if c.top == nil {
		return 0
	}
	return c.top.depth + 1
}

// With returns a new chain with a fresh frame named nm on top of c. The fresh
// frame is returned as well, for the caller to fill in bindings.
func (c ScopeChain) With(nm string) (ScopeChain, *Scope) {
	sc := NewScope(nm, c.top)
	return ScopeChain{top: sc}, sc
}

// Get returns the frame at index i, counted from the outermost frame (0).
func (c ScopeChain) Get(i int) *Scope {
	if i < 0 || i >= c.Depth() {
		return nil
	}
	s := c.top
	for n := c.Depth() - 1; n > i; n-- {
		s = s.Parent
	}
	return s
}

// Resolve looks up a binding, innermost frame first.
func (c ScopeChain) Resolve(name string) (*Tag, *Scope) {
	return c.top.ResolveTag(name)
}

// String lists the frame names, outermost first.
func (c ScopeChain) String() string {
	names := make([]string, c.Depth())
	i := len(names) - 1
	for s := c.top; s != nil; s = s.Parent {
		names[i] = s.Name
		i--
	}
	return "[" + strings.Join(names, " > ") + "]"
}
