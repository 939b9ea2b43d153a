package avm2

import (
	"fmt"
	"strings"

	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/sets/treeset"
)

// StubKind classifies members reported as stubs.
type StubKind uint8

// Kinds of stubs.
const (
	StubKindMethod StubKind = iota
	StubKindGetter
	StubKindSetter
	StubKindConstructor
)

func (k StubKind) String() string {
	switch k {
	case StubKindGetter:
		return "getter"
	case StubKindSetter:
		return "setter"
	case StubKindConstructor:
		return "constructor"
	}
	return "method"
}

// Stub identifies a host member which is not (fully) implemented.
type Stub struct {
	Kind      StubKind `hash:"name:kind"`
	Class     string   `hash:"name:class"`
	Member    string   `hash:"name:member"`
	Specifics string   `hash:"name:specifics"`
}

func newStub(kind StubKind, class, member string, specifics []string) Stub {
	return Stub{
		Kind:      kind,
		Class:     class,
		Member:    member,
		Specifics: strings.Join(specifics, " "),
	}
}

// ID returns a stable identifier of the stub, suitable for comparing reports
// of different runs.
func (s Stub) ID() string {
	h, err := structhash.Hash(s, 1)
	if err != nil { // cannot happen for flat structs of strings
		return s.String()
	}
	return h
}

func (s Stub) String() string {
	var name string
	switch s.Kind {
	case StubKindGetter:
		name = fmt.Sprintf("%s.%s getter", s.Class, s.Member)
	case StubKindSetter:
		name = fmt.Sprintf("%s.%s setter", s.Class, s.Member)
	case StubKindConstructor:
		name = fmt.Sprintf("%s constructor", s.Class)
	default:
		name = fmt.Sprintf("%s.%s()", s.Class, s.Member)
	}
	if s.Specifics != "" {
		name += " with " + s.Specifics
	}
	return name
}

func compareStubs(a, b interface{}) int {
	s1, s2 := a.(Stub), b.(Stub)
	switch {
	case s1.Class != s2.Class:
		return strings.Compare(s1.Class, s2.Class)
	case s1.Member != s2.Member:
		return strings.Compare(s1.Member, s2.Member)
	case s1.Kind != s2.Kind:
		return int(s1.Kind) - int(s2.Kind)
	}
	return strings.Compare(s1.Specifics, s2.Specifics)
}

// StubTracker remembers the stubs a session ran into, reporting each one once.
type StubTracker struct {
	encountered *treeset.Set
}

// NewStubTracker creates an empty tracker.
func NewStubTracker() *StubTracker {
	return &StubTracker{encountered: treeset.NewWith(compareStubs)}
}

// Encounter records stub s. It returns true if s has not been seen before.
func (st *StubTracker) Encounter(s Stub) bool {
	if st.encountered.Contains(s) {
		return false
	}
	st.encountered.Add(s)
	tracer().P("stub", s.ID()).Infof("encountered stub %s", s)
	return true
}

// Len returns the number of distinct stubs encountered.
func (st *StubTracker) Len() int {
	return st.encountered.Size()
}

// Stubs lists the stubs encountered, sorted by class and member.
func (st *StubTracker) Stubs() []Stub {
	values := st.encountered.Values()
	stubs := make([]Stub, len(values))
	for i, v := range values {
		stubs[i] = v.(Stub)
	}
	return stubs
}
