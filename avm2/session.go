package avm2

import (
	"errors"
	"fmt"

	"github.com/emergence75/ruffle-clone/runtime"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/google/uuid"
	"github.com/npillmayer/schuko/gconf"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ruffle.avm2'.
func tracer() tracing.Trace {
	return tracing.Select("ruffle.avm2")
}

// DefaultMaxCallDepth is the call depth at which calls fail with a
// RecursionError, unless configured otherwise.
const DefaultMaxCallDepth = 256

// Interpreter runs the instruction stream of a bytecode method within an
// activation. Errors are propagated to the caller unchanged.
type Interpreter interface {
	Run(m *BytecodeMethod, act *Activation) (Value, error)
}

// Domain is an application domain. Code loaded into a domain sees the
// definitions of its parent domains.
type Domain struct {
	Name   string
	parent *Domain
}

// NewDomain creates a domain as a child of parent (which may be nil).
func NewDomain(name string, parent *Domain) *Domain {
	return &Domain{Name: name, parent: parent}
}

// Parent returns the parent domain, or nil for the root domain.
func (d *Domain) Parent() *Domain { return d.parent }

func (d *Domain) String() string {
	if d == nil {
		return "<no domain>"
	}
	return fmt.Sprintf("<domain %s>", d.Name)
}

// --- Sessions --------------------------------------------------------------

// Avm2 is a VM session. It owns the runtime environment (global scope and
// call stack), the class registry and the stub tracker.
//
// A session is single-threaded: it must not be used from more than one
// goroutine at a time.
type Avm2 struct {
	*runtime.Runtime
	id          string
	domain      *Domain
	interp      Interpreter
	coercer     Coercer
	stubs       *StubTracker
	classes     *treemap.Map // qualified name → *ClassObject
	borrowed    map[Object]int
	debug       bool // check preconditions of Exec
	maxDepth    int
	traceFrames int
	failure     *failure
}

// failure records the call stack at the innermost frame an error passed.
type failure struct {
	err    error
	frames []runtime.Frame
}

// Option configures a session.
type Option func(*Avm2)

// WithMaxCallDepth sets the maximum call depth (0 for no limit).
func WithMaxCallDepth(n int) Option {
	return func(avm *Avm2) { avm.maxDepth = n }
}

// WithInterpreter sets the interpreter for bytecode methods.
func WithInterpreter(interp Interpreter) Option {
	return func(avm *Avm2) { avm.interp = interp }
}

// WithCoercer replaces the standard parameter coercion.
func WithCoercer(c Coercer) Option {
	return func(avm *Avm2) { avm.coercer = c }
}

// WithDebugAssertions switches precondition checks of Exec on or off.
func WithDebugAssertions(on bool) Option {
	return func(avm *Avm2) { avm.debug = on }
}

// WithDomain sets the session's root domain.
func WithDomain(d *Domain) Option {
	return func(avm *Avm2) { avm.domain = d }
}

// WithTraceFrames sets the number of frames kept at either end of rendered
// stack traces (0 for complete traces).
func WithTraceFrames(n int) Option {
	return func(avm *Avm2) { avm.traceFrames = n }
}

// New creates a session. Defaults are taken from the global configuration
// (keys 'avm2.max-call-depth', 'avm2.debug-assertions' and
// 'avm2.stacktrace-frames') and may be overridden by options.
func New(opts ...Option) *Avm2 {
	avm := &Avm2{
		id:          uuid.NewString(),
		domain:      NewDomain("global", nil),
		coercer:     StandardCoercer{},
		stubs:       NewStubTracker(),
		classes:     treemap.NewWithStringComparator(),
		borrowed:    make(map[Object]int),
		debug:       gconf.GetBool("avm2.debug-assertions"),
		maxDepth:    DefaultMaxCallDepth,
		traceFrames: DefaultTraceFrames,
	}
	if gconf.IsSet("avm2.max-call-depth") {
		avm.maxDepth = gconf.GetInt("avm2.max-call-depth")
	}
	if gconf.IsSet("avm2.stacktrace-frames") {
		avm.traceFrames = gconf.GetInt("avm2.stacktrace-frames")
	}
	for _, opt := range opts {
		opt(avm)
	}
	avm.Runtime = runtime.NewRuntimeEnvironment(avm.maxDepth)
	tracer().P("session", avm.id).Infof("new session, max call depth = %d", avm.maxDepth)
	return avm
}

// ID returns the unique identifier of the session.
func (avm *Avm2) ID() string { return avm.id }

// Domain returns the session's root domain.
func (avm *Avm2) Domain() *Domain { return avm.domain }

// Stubs lists the stubs encountered so far.
func (avm *Avm2) Stubs() []Stub { return avm.stubs.Stubs() }

// RootActivation returns an activation standing for the host, to be used as
// the caller of calls made from outside any emulated code.
func (avm *Avm2) RootActivation() *Activation {
	return NewBuiltinActivation(avm, nil, nil, avm.GlobalChain(), avm.domain)
}

// Call calls exec from the host. Errors reaching the host are returned as
// *UncaughtError, carrying the stack trace at the point the error was raised.
func (avm *Avm2) Call(exec Executable, receiver Object, args []Value) (Value, error) {
	host := avm.Runtime.CallStack.Depth() == 0
	if host {
		avm.failure = nil
	}
	v, err := exec.Exec(receiver, args, avm.RootActivation(), nil)
	if err == nil || !host {
		return v, err
	}
	var uncaught *UncaughtError
	if errors.As(err, &uncaught) {
		return nil, err
	}
	trace := avm.failureTrace(err)
	avm.failure = nil
	tracer().P("session", avm.id).Errorf("uncaught error: %v", err)
	return nil, &UncaughtError{Err: err, Trace: trace}
}

// CallStack returns the call stack of the session. Clients reading it from
// another goroutine must synchronize with the goroutine running the session.
func (avm *Avm2) CallStack() *runtime.CallStack {
	return avm.Runtime.CallStack
}

// StackTrace returns a trace of the calls currently in flight.
func (avm *Avm2) StackTrace() *StackTrace {
	return newStackTrace(avm.Runtime.CallStack.Snapshot(), avm.traceFrames)
}

func (avm *Avm2) pushCall(e Executable) (*runtime.Slot, error) {
	slot, err := avm.Runtime.CallStack.Push(e)
	if err != nil {
		var derr *runtime.DepthError
		if errors.As(err, &derr) {
			return nil, &RecursionError{Limit: derr.Limit}
		}
		return nil, err
	}
	return slot, nil
}

// settle is called with the outcome of every call, while the call is still on
// the stack. It remembers the stack of the innermost frame an error passed.
// The record survives successful calls made while the error propagates; it is
// reset by Call on entry from the host.
func (avm *Avm2) settle(v Value, err error) (Value, error) {
	if err == nil {
		if v == nil {
			v = Undefined
		}
		return v, nil
	}
	if avm.failure == nil || !errors.Is(err, avm.failure.err) {
		avm.failure = &failure{err: err, frames: avm.Runtime.CallStack.Snapshot()}
	}
	return nil, err
}

func (avm *Avm2) failureTrace(err error) *StackTrace {
	if avm.failure != nil && errors.Is(err, avm.failure.err) {
		return newStackTrace(avm.failure.frames, avm.traceFrames)
	}
	return avm.StackTrace()
}

// --- Borrows ---------------------------------------------------------------

// BorrowMut marks obj as exclusively borrowed until the returned function is
// called. With debug assertions enabled, calls made while any object is
// borrowed panic with a *LogicError.
func (avm *Avm2) BorrowMut(obj Object) (release func()) {
	avm.borrowed[obj]++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		if avm.borrowed[obj]--; avm.borrowed[obj] <= 0 {
			delete(avm.borrowed, obj)
		}
	}
}

func (avm *Avm2) assertUnborrowed(e Executable) {
	if !avm.debug || len(avm.borrowed) == 0 {
		return
	}
	err := &LogicError{Msg: fmt.Sprintf("call of %s while %d object(s) are exclusively borrowed",
		e.FullName(), len(avm.borrowed))}
	tracer().Errorf("%v", err)
	panic(err)
}

// --- Classes and globals ---------------------------------------------------

// RegisterClass adds a class to the session's class registry.
func (avm *Avm2) RegisterClass(c *ClassObject) error {
	name := c.Definition().Name().Qualified()
	if _, exists := avm.classes.Get(name); exists {
		return fmt.Errorf("class %s is already defined", name)
	}
	avm.classes.Put(name, c)
	tracer().P("class", name).Debugf("registered class")
	return nil
}

// ClassByName finds a registered class by qualified name, or else by local
// name.
func (avm *Avm2) ClassByName(name string) *ClassObject {
	if c, ok := avm.classes.Get(name); ok {
		return c.(*ClassObject)
	}
	for _, c := range avm.classes.Values() {
		if c := c.(*ClassObject); c.Definition().Name().Local == name {
			return c
		}
	}
	return nil
}

// Classes lists the registered classes, sorted by qualified name.
func (avm *Avm2) Classes() []*ClassObject {
	values := avm.classes.Values()
	classes := make([]*ClassObject, len(values))
	for i, c := range values {
		classes[i] = c.(*ClassObject)
	}
	return classes
}

// DefineGlobal binds a value to a name in the global scope.
func (avm *Avm2) DefineGlobal(name string, v Value) {
	avm.Globals().Define(name, v)
}

// GlobalFunction makes a function value from native method m, with no bound
// receiver or superclass, and binds it in the global scope.
func (avm *Avm2) GlobalFunction(m *NativeMethod) *FunctionObject {
	f := NewFunctionObject(FromMethod(m, avm.GlobalChain(), nil, nil))
	avm.DefineGlobal(m.Name, f)
	return f
}
