/*
Command avm2sh provides an interactive shell for a VM session. Users load
program manifests and call methods of the classes and functions they define.
Uncaught errors are printed together with their stack trace.

    avm2sh -trace Debug -load shapes.yaml

Commands:

    load FILE                 load and install a manifest
    call Class.method ARGS    call a static method
    call $N.method ARGS       call an instance method of object $N
    call fn ARGS              call a function of a loaded program or a global
    new Class ARGS            construct an instance, bound to $N
    classes                   list classes and their traits
    stack                     show the stack trace of the last uncaught error
    stubs                     list the stubs encountered so far
    quit

Arguments are literals: numbers, quoted strings, true, false, null and
undefined, or $N for objects created by new.

Configuration is read from NestedText files for application tag "avm2sh" at
the standard locations.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ruffle.shell'
func tracer() tracing.Trace {
	return tracing.Select("ruffle.shell")
}
