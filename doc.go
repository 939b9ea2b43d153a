/*
Package ruffle is the method invocation core of an emulator for a legacy
multimedia runtime. It focusses on the second-generation virtual machine
(AVM2) and the way it calls code. Package structure is as follows:

■ runtime: Package runtime provides scope frames, immutable scope chains and the
call-stack ledger which records in-flight calls.

■ avm2: Package avm2 implements method descriptors, executables, activations and
the single invocation entry point shared by host-implemented (native) and
bytecode methods.

■ avm2/abc: Package abc is a small reference interpreter for decoded instruction
streams, together with a text assembler producing decoded method records.

■ avm2/globals: Package globals provides natives (host-implemented routines)
and the builtin classes holding them.

■ avm2/manifest: Package manifest loads YAML program manifests and installs
their classes into a VM session.

■ avm2/avm2sh: Command avm2sh is an interactive shell for loading manifests and
calling methods.

The base package contains the token and span types of the assembler's scanner.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package ruffle
