/*
Package manifest loads program manifests and installs them into a VM session.

A manifest is a YAML document declaring classes and functions. Every method
is either a reference to a native (a key of a globals.Registry) or a body of
assembler text:

    name: shapes
    classes:
      - package: flash.display
        name: Shape
        instance:
          - name: area
            params: [{name: w, type: Number}, {name: h, type: Number, default: 1}]
            code: |
              getlocal_1
              getlocal_2
              multiply
              returnvalue
    functions:
      - name: log
        native: trace

Package manifest traces to key 'ruffle.manifest'.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package manifest

import (
	"fmt"
	"io"
	"strings"

	"github.com/emergence75/ruffle-clone/avm2"
	"github.com/emergence75/ruffle-clone/avm2/abc"
	"github.com/emergence75/ruffle-clone/avm2/globals"
	"github.com/emergence75/ruffle-clone/runtime"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// tracer traces with key 'ruffle.manifest'.
func tracer() tracing.Trace {
	return tracing.Select("ruffle.manifest")
}

// Program is the top-level manifest document.
type Program struct {
	Name      string       `yaml:"name"`
	Classes   []ClassSpec  `yaml:"classes,omitempty"`
	Functions []MethodSpec `yaml:"functions,omitempty"`
}

// ClassSpec declares a class.
type ClassSpec struct {
	Package     string       `yaml:"package,omitempty"`
	Name        string       `yaml:"name"`
	Extends     string       `yaml:"extends,omitempty"` // local or qualified name
	CInit       *MethodSpec  `yaml:"cinit,omitempty"`
	Constructor *MethodSpec  `yaml:"constructor,omitempty"`
	Static      []MethodSpec `yaml:"static,omitempty"`
	Instance    []MethodSpec `yaml:"instance,omitempty"`
}

// QName returns the qualified name of the class.
func (c *ClassSpec) QName() avm2.QName {
	return avm2.QName{Namespace: c.Package, Local: c.Name}
}

// MethodSpec declares a method. Exactly one of Native and Code must be set.
// Params, Variadic, Unchecked and Arguments apply to bytecode methods only;
// natives carry their own signature.
type MethodSpec struct {
	Name      string      `yaml:"name"`
	Kind      string      `yaml:"kind,omitempty"` // method (default), getter or setter
	Params    []ParamSpec `yaml:"params,omitempty"`
	Variadic  bool        `yaml:"variadic,omitempty"`
	Unchecked bool        `yaml:"unchecked,omitempty"`
	Arguments bool        `yaml:"arguments,omitempty"`
	Native    string      `yaml:"native,omitempty"`
	Code      string      `yaml:"code,omitempty"`
}

// ParamSpec declares a formal parameter. A parameter with a default is
// optional. The scalar `undefined` denotes the undefined value, a YAML null
// denotes null.
type ParamSpec struct {
	Name    string
	Type    string
	Default *yaml.Node // nil if the parameter is required
}

// UnmarshalYAML decodes a parameter mapping. It keeps the default value as a
// node, as the decoder would drop an explicit null.
func (p *ParamSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameter must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "name":
			p.Name = val.Value
		case "type":
			p.Type = val.Value
		case "default":
			p.Default = val
		default:
			return fmt.Errorf("line %d: unknown parameter field %q", key.Line, key.Value)
		}
	}
	if p.Name == "" {
		return fmt.Errorf("line %d: parameter has no name", n.Line)
	}
	return nil
}

// Load reads a manifest and checks it for structural errors.
func Load(r io.Reader) (*Program, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	p := &Program{}
	if err := dec.Decode(p); err != nil {
		tracer().Errorf("manifest: %v", err)
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if err := p.validate(); err != nil {
		tracer().Errorf("manifest %s: %v", p.Name, err)
		return nil, err
	}
	tracer().P("program", p.Name).Debugf("loaded %d classes, %d functions",
		len(p.Classes), len(p.Functions))
	return p, nil
}

func (p *Program) validate() error {
	if p.Name == "" {
		return fmt.Errorf("manifest has no name")
	}
	seen := make(map[string]bool)
	for i := range p.Classes {
		c := &p.Classes[i]
		if c.Name == "" {
			return fmt.Errorf("class #%d has no name", i)
		}
		qn := c.QName().Qualified()
		if seen[qn] {
			return fmt.Errorf("class %s declared twice", qn)
		}
		seen[qn] = true
		for _, m := range c.methods() {
			if err := m.validate(qn); err != nil {
				return err
			}
		}
	}
	for i := range p.Functions {
		if err := p.Functions[i].validate(""); err != nil {
			return err
		}
	}
	return nil
}

func (c *ClassSpec) methods() []*MethodSpec {
	var ms []*MethodSpec
	if c.CInit != nil {
		ms = append(ms, c.CInit)
	}
	if c.Constructor != nil {
		ms = append(ms, c.Constructor)
	}
	for i := range c.Static {
		ms = append(ms, &c.Static[i])
	}
	for i := range c.Instance {
		ms = append(ms, &c.Instance[i])
	}
	return ms
}

func (m *MethodSpec) validate(owner string) error {
	where := m.Name
	if owner != "" {
		where = owner + "/" + m.Name
	}
	if (m.Native == "") == (m.Code == "") {
		return fmt.Errorf("method %s needs exactly one of native or code", where)
	}
	if _, err := m.traitKind(); err != nil {
		return fmt.Errorf("method %s: %w", where, err)
	}
	return nil
}

func (m *MethodSpec) traitKind() (avm2.TraitKind, error) {
	switch m.Kind {
	case "", "method":
		return avm2.TraitMethod, nil
	case "getter":
		return avm2.TraitGetter, nil
	case "setter":
		return avm2.TraitSetter, nil
	}
	return avm2.TraitMethod, fmt.Errorf("unknown trait kind %q", m.Kind)
}

func (m *MethodSpec) flags() avm2.MethodFlags {
	var f avm2.MethodFlags
	if m.Variadic {
		f |= avm2.NeedRest
	}
	if m.Arguments {
		f |= avm2.NeedArguments
	}
	if m.Unchecked {
		f |= avm2.Unchecked
	}
	for _, p := range m.Params {
		if p.Default != nil {
			f |= avm2.HasOptional
		}
	}
	return f
}

func (m *MethodSpec) signature() ([]avm2.ParamSpec, error) {
	sig := make([]avm2.ParamSpec, len(m.Params))
	for i, p := range m.Params {
		sig[i] = avm2.Param(p.Name, p.Type)
		if p.Default == nil {
			continue
		}
		v, err := defaultValue(p.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		sig[i].Default = v
	}
	return sig, nil
}

func defaultValue(n *yaml.Node) (avm2.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("default value must be a scalar (line %d)", n.Line)
	}
	switch n.ShortTag() {
	case "!!null":
		return avm2.Null, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return avm2.Bool(b), err
	case "!!int":
		var i int32
		err := n.Decode(&i)
		return avm2.Int(i), err
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return avm2.Number(f), err
	}
	if n.Value == "undefined" && n.Style == 0 {
		return avm2.Undefined, nil
	}
	return avm2.String(n.Value), nil
}

// --- Installation ----------------------------------------------------------

type installer struct {
	avm     *avm2.Avm2
	natives globals.Registry
	unit    *avm2.TranslationUnit
	program *runtime.Scope
	specs   map[string]*ClassSpec
	state   map[*ClassSpec]int // 1 = in progress, 2 = installed
}

// Install builds the classes and functions of program p in session avm,
// resolving native references through natives. Classes are created parent
// before child and their class initializers are run. Class and function names
// are bound in a new program scope below the global scope, which is returned.
func (p *Program) Install(avm *avm2.Avm2, natives globals.Registry) (*runtime.Scope, error) {
	ins := &installer{
		avm:     avm,
		natives: natives,
		unit:    avm2.NewTranslationUnit(avm.Domain()),
		specs:   make(map[string]*ClassSpec),
		state:   make(map[*ClassSpec]int),
	}
	tree := avm.ScopeTree
	ins.program = tree.PushNewScope(p.Name)
	defer tree.PopScope()
	for i := range p.Classes {
		c := &p.Classes[i]
		ins.specs[c.Name] = c
		ins.specs[c.QName().Qualified()] = c
	}
	for i := range p.Classes {
		if _, err := ins.class(&p.Classes[i]); err != nil {
			tracer().P("program", p.Name).Errorf("install: %v", err)
			return nil, err
		}
	}
	chain := tree.Capture()
	for i := range p.Functions {
		fs := &p.Functions[i]
		m, err := ins.method(fs, "")
		if err != nil {
			tracer().P("program", p.Name).Errorf("install: %v", err)
			return nil, err
		}
		ins.program.Define(fs.Name, avm2.NewFunctionObject(avm2.FromMethod(m, chain, nil, nil)))
	}
	tracer().P("program", p.Name).Infof("installed %d classes, %d functions",
		len(p.Classes), len(p.Functions))
	return ins.program, nil
}

func (ins *installer) class(cs *ClassSpec) (*avm2.ClassObject, error) {
	qn := cs.QName().Qualified()
	switch ins.state[cs] {
	case 1:
		return nil, fmt.Errorf("class %s inherits from itself", qn)
	case 2:
		return ins.avm.ClassByName(qn), nil
	}
	ins.state[cs] = 1
	var super *avm2.ClassObject
	b := avm2.NewClassDef(cs.QName())
	if cs.Extends != "" {
		var err error
		if parent, ok := ins.specs[cs.Extends]; ok {
			super, err = ins.class(parent)
		} else if super = ins.avm.ClassByName(cs.Extends); super == nil {
			err = fmt.Errorf("class %s extends unknown class %s", qn, cs.Extends)
		}
		if err != nil {
			return nil, err
		}
		b.Extends(super.Definition().Name())
	}
	if err := ins.members(b, cs, qn); err != nil {
		return nil, err
	}
	tree := ins.avm.ScopeTree
	scope := tree.PushNewScope(cs.Name)
	chain := tree.Capture()
	tree.PopScope()
	class := avm2.NewClassObject(b.Build(), super, chain)
	scope.Define(cs.Name, class)
	if err := ins.avm.RegisterClass(class); err != nil {
		return nil, err
	}
	ins.program.Define(cs.Name, class)
	ins.state[cs] = 2
	if err := class.Initialize(ins.avm.RootActivation()); err != nil {
		return nil, fmt.Errorf("initializing class %s: %w", qn, err)
	}
	return class, nil
}

func (ins *installer) members(b *avm2.ClassBuilder, cs *ClassSpec, qn string) error {
	if cs.CInit != nil {
		m, err := ins.method(cs.CInit, qn)
		if err != nil {
			return err
		}
		b.ClassInit(m)
	}
	if cs.Constructor != nil {
		m, err := ins.method(cs.Constructor, qn)
		if err != nil {
			return err
		}
		b.Constructor(m)
	}
	for i := range cs.Static {
		ms := &cs.Static[i]
		m, err := ins.method(ms, qn)
		if err != nil {
			return err
		}
		kind, _ := ms.traitKind()
		b.Static(ms.Name, kind, m)
	}
	for i := range cs.Instance {
		ms := &cs.Instance[i]
		m, err := ins.method(ms, qn)
		if err != nil {
			return err
		}
		kind, _ := ms.traitKind()
		b.InstanceTrait(ms.Name, kind, m)
	}
	return nil
}

func (ins *installer) method(ms *MethodSpec, owner string) (avm2.Method, error) {
	if ms.Native != "" {
		m, ok := ins.natives[ms.Native]
		if !ok {
			return nil, fmt.Errorf("method %s: unknown native %q (have %s)", ms.Name, ms.Native,
				strings.Join(ins.natives.Keys(), ", "))
		}
		return m, nil
	}
	sig, err := ms.signature()
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", ms.Name, err)
	}
	name := ms.Name
	if owner != "" {
		name = owner + "/" + ms.Name
	}
	return abc.NewMethod(ins.unit, name, sig, ms.flags(), ms.Code)
}
