/*
Package avm2 implements the method invocation core of the second-generation
virtual machine.

Every call of emulated code passes through a single entry point,
Executable.Exec. An Executable binds a method descriptor to the scope chain it
closes over, and optionally to a receiver and to the class which defined it.
Method descriptors come in two kinds: native methods, implemented by Go
functions, and bytecode methods, whose instruction stream is run by an
Interpreter.

	exec := avm2.FromMethod(method, class.Scope(), nil, class)
	result, err := exec.Exec(receiver, args, caller, nil)

Each call creates a fresh Activation, binds the arguments to the declared
parameters, and records the executable on the call stack of the session
(type Avm2) for as long as the call is in flight.

Errors

Recoverable errors are returned unchanged through every nested call. Errors
reaching the host through Avm2.Call are wrapped into an *UncaughtError, which
carries a stack trace taken at the innermost frame the error passed.

Configuration

Sessions read 'avm2.max-call-depth', 'avm2.debug-assertions' and
'avm2.stacktrace-frames' from the global configuration (package gconf).

Tracing

Package avm2 traces to key 'ruffle.avm2'.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package avm2
