/*
Package abc is a reference interpreter for decoded instruction streams of
bytecode methods, together with an assembler producing them from text.

The interpreter covers a subset of the instruction set: stack manipulation,
locals, constants, branches, arithmetic and comparison, and the call
instructions `call`, `callproperty`, `callsuper` and `newfunction`. Every call
goes through avm2.Executable.Exec.

	machine := abc.NewMachine()
	avm := avm2.New(avm2.WithInterpreter(machine))
	unit := avm2.NewTranslationUnit(avm.Domain())
	m, err := abc.NewMethod(unit, "twice", []avm2.ParamSpec{avm2.Param("x", "Number")}, 0, `
	    getlocal_1
	    dup
	    add
	    returnvalue
	`)

Package abc traces to key 'ruffle.abc'.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package abc

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'ruffle.abc'.
func tracer() tracing.Trace {
	return tracing.Select("ruffle.abc")
}
