/*
Package runtime implements the runtime environment shared by all calls of a
VM session, consisting of scope frames, scope chains, bindings (tags) and the
call-stack ledger.

Scope Tree and Scope Chains

While classes and functions are being defined, scopes are pushed and popped
onto a scope tree. A method closure captures the tree's current top of stack
as a ScopeChain. Chains are immutable and are shared by every executable
created from the same closure; each call adds a fresh frame for its locals on
top of the captured chain.

Call Stack

The call stack (or ledger) records the callables currently in flight. Push
returns a slot which has to be released on every exit path, usually by a
deferred call.


----------------------------------------------------------------------

BSD License

Copyright (c) 2017-21, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions
are met:

1. Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright
notice, this list of conditions and the following disclaimer in the
documentation and/or other materials provided with the distribution.

3. Neither the name of this software or the names of its contributors
may be used to endorse or promote products derived from this software
without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE. */
package runtime

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ruffle.runtime'.
func tracer() tracing.Trace {
	return tracing.Select("ruffle.runtime")
}

// Runtime is a type implementing a runtime environment for a VM session.
type Runtime struct {
	ScopeTree *ScopeTree  // collect scopes at definition time
	CallStack *CallStack  // ledger of in-flight calls
	UData     interface{} // extension point
}

// NewRuntimeEnvironment constructs
// a new runtime environment, initialized with a global scope. maxDepth limits
// the call stack (0 for no limit).
//
func NewRuntimeEnvironment(maxDepth int) *Runtime {
	rt := &Runtime{}
	rt.ScopeTree = new(ScopeTree)         // scopes for packages, classes and functions
	rt.ScopeTree.PushNewScope("global")   // push global scope first
	rt.CallStack = NewCallStack(maxDepth) // initialize ledger
	return rt
}

// Globals returns the global scope frame.
func (rt *Runtime) Globals() *Scope {
	return rt.ScopeTree.Globals()
}

// GlobalChain returns a scope chain consisting of the global frame only.
func (rt *Runtime) GlobalChain() ScopeChain {
	return ChainFrom(rt.ScopeTree.Globals())
}
