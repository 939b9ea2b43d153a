package avm2

import (
	"fmt"

	"github.com/emergence75/ruffle-clone/runtime"
)

// QName is a namespace-qualified name.
type QName struct {
	Namespace string // package namespace, "" for the public unnamed package
	Local     string
}

// Qualified renders the name as "ns::Local", or "Local" for the unnamed package.
func (q QName) Qualified() string {
	if q.Namespace == "" {
		return q.Local
	}
	return q.Namespace + "::" + q.Local
}

func (q QName) String() string {
	return q.Qualified()
}

// --- Traits ----------------------------------------------------------------

// TraitKind tells method traits from accessor traits.
type TraitKind uint8

// Kinds of traits.
const (
	TraitMethod TraitKind = iota
	TraitGetter
	TraitSetter
)

func (k TraitKind) String() string {
	switch k {
	case TraitGetter:
		return "getter"
	case TraitSetter:
		return "setter"
	}
	return "method"
}

// Trait is an entry of a class' trait table.
type Trait struct {
	Kind   TraitKind
	Name   QName
	method Method
	key    MethodKey // key of method, recorded when the class is built
	index  int       // position in its table
}

// Method returns the trait's method descriptor.
func (t *Trait) Method() Method {
	return t.method
}

// Key returns the key of the trait's method.
func (t *Trait) Key() MethodKey {
	return t.key
}

// Index returns the position of the trait in its table.
func (t *Trait) Index() int {
	return t.index
}

func (t *Trait) String() string {
	return fmt.Sprintf("<%s trait %s #%d>", t.Kind, t.Name.Local, t.index)
}

// --- Class definitions ----------------------------------------------------

// ClassDef is the definition of a class: its name, its class initializer,
// its constructor and its trait tables. A ClassDef is immutable once built.
type ClassDef struct {
	name           QName
	super          QName // name of the superclass, zero value for none
	cinit          Method
	iinit          Method
	classTraits    []*Trait
	instanceTraits []*Trait
}

// ClassBuilder collects the parts of a class definition.
type ClassBuilder struct {
	def *ClassDef
}

// NewClassDef starts the definition of a class.
//
//    def := avm2.NewClassDef(avm2.QName{Local: "Shape"}).
//        Extends(avm2.QName{Local: "Object"}).
//        Instance("draw", drawMethod).
//        Build()
//
func NewClassDef(name QName) *ClassBuilder {
	return &ClassBuilder{def: &ClassDef{name: name}}
}

// Extends names the superclass.
func (b *ClassBuilder) Extends(super QName) *ClassBuilder {
	b.def.super = super
	return b
}

// ClassInit sets the class initializer.
func (b *ClassBuilder) ClassInit(m Method) *ClassBuilder {
	b.def.cinit = m
	return b
}

// Constructor sets the instance initializer.
func (b *ClassBuilder) Constructor(m Method) *ClassBuilder {
	b.def.iinit = m
	return b
}

// Static appends a class-side trait.
func (b *ClassBuilder) Static(name string, kind TraitKind, m Method) *ClassBuilder {
	b.def.classTraits = append(b.def.classTraits, b.trait(name, kind, m))
	return b
}

// Instance appends an instance-side method trait.
func (b *ClassBuilder) Instance(name string, m Method) *ClassBuilder {
	return b.InstanceTrait(name, TraitMethod, m)
}

// InstanceTrait appends an instance-side trait of a given kind.
func (b *ClassBuilder) InstanceTrait(name string, kind TraitKind, m Method) *ClassBuilder {
	b.def.instanceTraits = append(b.def.instanceTraits, b.trait(name, kind, m))
	return b
}

func (b *ClassBuilder) trait(name string, kind TraitKind, m Method) *Trait {
	if m == nil {
		panic(fmt.Sprintf("trait %s of class %s has no method", name, b.def.name))
	}
	return &Trait{
		Kind:   kind,
		Name:   QName{Namespace: b.def.name.Namespace, Local: name},
		method: m,
	}
}

// Build finishes the definition. Trait indices and method keys are assigned
// here and never change afterwards.
func (b *ClassBuilder) Build() *ClassDef {
	for i, t := range b.def.classTraits {
		t.index, t.key = i, t.method.Key()
	}
	for i, t := range b.def.instanceTraits {
		t.index, t.key = i, t.method.Key()
	}
	def := b.def
	b.def = nil
	tracer().P("class", def.name).Debugf("class definition with %d static and %d instance traits",
		len(def.classTraits), len(def.instanceTraits))
	return def
}

// Name returns the class' qualified name.
func (def *ClassDef) Name() QName { return def.name }

// SuperName returns the name of the superclass; ok is false for a root class.
func (def *ClassDef) SuperName() (QName, bool) {
	return def.super, def.super != QName{}
}

// ClassInit returns the class initializer, or nil.
func (def *ClassDef) ClassInit() Method { return def.cinit }

// Constructor returns the instance initializer, or nil.
func (def *ClassDef) Constructor() Method { return def.iinit }

// ClassTraits returns the class-side trait table.
func (def *ClassDef) ClassTraits() []*Trait { return def.classTraits }

// InstanceTraits returns the instance-side trait table.
func (def *ClassDef) InstanceTraits() []*Trait { return def.instanceTraits }

// FindClassTrait finds a class-side trait by local name.
func (def *ClassDef) FindClassTrait(local string, kind TraitKind) *Trait {
	return findTrait(def.classTraits, local, kind)
}

// FindInstanceTrait finds an instance-side trait by local name.
func (def *ClassDef) FindInstanceTrait(local string, kind TraitKind) *Trait {
	return findTrait(def.instanceTraits, local, kind)
}

func findTrait(traits []*Trait, local string, kind TraitKind) *Trait {
	for _, t := range traits {
		if t.Kind == kind && t.Name.Local == local {
			return t
		}
	}
	return nil
}

// traitByKey is a linear search for the method trait holding method key k.
func traitByKey(traits []*Trait, k MethodKey) *Trait {
	for _, t := range traits {
		if t.Kind == TraitMethod && t.key == k {
			return t
		}
	}
	return nil
}

// --- Class objects ---------------------------------------------------------

// ClassObject is the runtime representation of a class: a class definition
// linked to its superclass and to the scope chain its methods close over.
type ClassObject struct {
	def        *ClassDef
	superclass *ClassObject
	scope      runtime.ScopeChain
}

// NewClassObject creates a class object. scope is the chain captured at the
// point of class definition.
func NewClassObject(def *ClassDef, superclass *ClassObject, scope runtime.ScopeChain) *ClassObject {
	return &ClassObject{def: def, superclass: superclass, scope: scope}
}

func (c *ClassObject) TypeOf() string { return "object" }

// Class returns nil: class objects are not instances of a user class.
func (c *ClassObject) Class() *ClassObject { return nil }

func (c *ClassObject) String() string {
	return fmt.Sprintf("[class %s]", c.def.name.Local)
}

// Definition returns the class definition.
func (c *ClassObject) Definition() *ClassDef { return c.def }

// Superclass returns the superclass object, or nil.
func (c *ClassObject) Superclass() *ClassObject {
	if c == nil {
		return nil
	}
	return c.superclass
}

// Scope returns the scope chain captured for the class' methods.
func (c *ClassObject) Scope() runtime.ScopeChain { return c.scope }

// IsSubclassOf is a predicate: is c equal to or derived from other?
func (c *ClassObject) IsSubclassOf(other *ClassObject) bool {
	for ; c != nil; c = c.superclass {
		if c == other {
			return true
		}
	}
	return false
}

// FindMethod looks up an instance method, walking up the superclass chain.
// It returns the trait and the class defining it.
func (c *ClassObject) FindMethod(local string) (*Trait, *ClassObject) {
	for ; c != nil; c = c.superclass {
		if t := c.def.FindInstanceTrait(local, TraitMethod); t != nil {
			return t, c
		}
	}
	return nil, nil
}

// BindMethod makes an executable for trait t, defined by class definer, bound
// to receiver (which may be nil for an unbound method).
func (c *ClassObject) BindMethod(t *Trait, definer *ClassObject, receiver Object) Executable {
	if definer == nil {
		definer = c
	}
	return FromMethod(t.Method(), definer.scope, receiver, definer)
}

// FindStatic looks up a class-side method of c and binds it to the class
// object.
func (c *ClassObject) FindStatic(local string) (Executable, bool) {
	t := c.def.FindClassTrait(local, TraitMethod)
	if t == nil {
		return Executable{}, false
	}
	return FromMethod(t.Method(), c.scope, c, c), true
}

// Initialize runs the class initializer, if any, with the class object as
// receiver.
func (c *ClassObject) Initialize(caller *Activation) error {
	if c.def.cinit == nil {
		return nil
	}
	init := FromMethod(c.def.cinit, c.scope, c, c)
	_, err := init.Exec(nil, nil, caller, c)
	return err
}

// Construct creates a new instance and runs the constructor on it.
// Classes without a constructor inherit the nearest one of a superclass.
func (c *ClassObject) Construct(caller *Activation, args []Value) (Object, error) {
	obj := NewScriptObject(c)
	for k := c; k != nil; k = k.superclass {
		if ctor := k.def.iinit; ctor != nil {
			exec := FromMethod(ctor, k.scope, obj, k)
			if _, err := exec.Exec(nil, args, caller, obj); err != nil {
				return nil, err
			}
			break
		}
	}
	return obj, nil
}

// LookupMethod finds a method named local on object obj and binds it to obj.
// Class objects are searched for static methods. Other objects are searched
// for instance methods of their class, where functions and arrays use the
// registered classes "Function" and "Array". Instances finally fall back to
// function-valued dynamic properties.
func (avm *Avm2) LookupMethod(obj Object, local string) (Executable, bool) {
	if c, ok := obj.(*ClassObject); ok {
		return c.FindStatic(local)
	}
	class := obj.Class()
	if class == nil {
		class = avm.builtinClass(obj)
	}
	if class != nil {
		if t, definer := class.FindMethod(local); t != nil {
			return class.BindMethod(t, definer, obj), true
		}
	}
	if o, ok := obj.(*ScriptObject); ok {
		if v, ok := o.Get(local); ok {
			if f, ok := v.(*FunctionObject); ok {
				return f.Executable(), true
			}
		}
	}
	return Executable{}, false
}

func (avm *Avm2) builtinClass(obj Object) *ClassObject {
	switch obj.(type) {
	case *FunctionObject:
		return avm.ClassByName("Function")
	case *ArrayObject:
		return avm.ClassByName("Array")
	}
	return nil
}
