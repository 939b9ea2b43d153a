/*
Package globals provides host-implemented (native) routines and the builtin
classes holding them.

Natives are collected in a Registry, keyed by "Class.member" for class members
and by plain names for global functions. Program manifests refer to natives by
these keys.

Package globals traces to key 'ruffle.globals'.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package globals

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/emergence75/ruffle-clone/avm2"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ruffle.globals'.
func tracer() tracing.Trace {
	return tracing.Select("ruffle.globals")
}

// Registry maps keys to native methods.
type Registry map[string]*avm2.NativeMethod

// Keys lists the keys of the registry in sorted order.
func (r Registry) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Natives creates the registry of all natives. trace writes to out.
func Natives(out io.Writer) Registry {
	r := Registry{}
	add := func(key string, fn avm2.NativeFunc, variadic bool, sig ...avm2.ParamSpec) {
		name := key[strings.LastIndexByte(key, '.')+1:]
		r[key] = avm2.NewNativeMethod(name, fn, sig, variadic)
	}
	add("trace", traceTo(out), true)
	add("add", addNumbers, false, avm2.Param("a", "Number"), avm2.Param("b", "Number"))
	add("Math.max", mathExtremum(true), true)
	add("Math.min", mathExtremum(false), true)
	add("Function.call", functionCall, true, avm2.OptionalParam("thisArg", "*", avm2.Undefined))
	add("Function.apply", functionApply, false,
		avm2.OptionalParam("thisArg", "*", avm2.Undefined), avm2.OptionalParam("argArray", "Array", avm2.Null))
	add("Array.join", arrayJoin, false, avm2.OptionalParam("sep", "String", avm2.String(",")))
	add("FileReference.browse", fileReferenceBrowse, false, avm2.OptionalParam("typeFilter", "Array", avm2.Null))
	add("FileReference.cancel", fileReferenceCancel, false)
	return r
}

// Install defines the builtin classes and global functions of registry r in
// session avm. Missing natives are skipped.
func Install(avm *avm2.Avm2, r Registry) error {
	for _, fn := range []string{"trace", "add"} {
		if m := r[fn]; m != nil {
			avm.GlobalFunction(m)
		}
	}
	builtins := []struct {
		name     avm2.QName
		static   []string
		instance []string
	}{
		{avm2.QName{Local: "Math"}, []string{"max", "min"}, nil},
		{avm2.QName{Local: "Function"}, nil, []string{"call", "apply"}},
		{avm2.QName{Local: "Array"}, nil, []string{"join"}},
		{avm2.QName{Namespace: "flash.net", Local: "FileReference"}, nil, []string{"browse", "cancel"}},
	}
	for _, b := range builtins {
		def := avm2.NewClassDef(b.name)
		for _, s := range b.static {
			if m := r[b.name.Local+"."+s]; m != nil {
				def.Static(s, avm2.TraitMethod, m)
			}
		}
		for _, s := range b.instance {
			if m := r[b.name.Local+"."+s]; m != nil {
				def.Instance(s, m)
			}
		}
		class := avm2.NewClassObject(def.Build(), nil, avm.GlobalChain())
		if err := avm.RegisterClass(class); err != nil {
			return err
		}
		avm.DefineGlobal(b.name.Local, class)
	}
	tracer().Infof("installed %d natives", len(r))
	return nil
}

// --- Natives ---------------------------------------------------------------

func traceTo(out io.Writer) avm2.NativeFunc {
	return func(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
		rest := args[len(args)-1].(*avm2.ArrayObject)
		parts := make([]string, rest.Len())
		for i, v := range rest.Elements {
			parts[i] = avm2.ToString(v)
		}
		line := strings.Join(parts, " ")
		tracer().Debugf("trace: %s", line)
		if out != nil {
			fmt.Fprintln(out, line)
		}
		return avm2.Undefined, nil
	}
}

func addNumbers(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
	return avm2.Number(avm2.ToNumber(args[0]) + avm2.ToNumber(args[1])), nil
}

func mathExtremum(largest bool) avm2.NativeFunc {
	return func(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
		values := args[len(args)-1].(*avm2.ArrayObject).Elements
		result := avm2.Number(math.Inf(-1))
		if !largest {
			result = avm2.Number(math.Inf(1))
		}
		for _, v := range values {
			n := avm2.ToNumber(v)
			if math.IsNaN(n) {
				return avm2.Number(math.NaN()), nil
			}
			if (largest && n > float64(result)) || (!largest && n < float64(result)) {
				result = avm2.Number(n)
			}
		}
		return result, nil
	}
}

func asFunction(this avm2.Object) (*avm2.FunctionObject, error) {
	f, ok := this.(*avm2.FunctionObject)
	if !ok {
		return nil, &avm2.CoercionError{Value: this, Type: "Function"}
	}
	return f, nil
}

// functionCall implements Function.call(thisArg, ...args).
func functionCall(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
	f, err := asFunction(this)
	if err != nil {
		return nil, err
	}
	receiver, _ := args[0].(avm2.Object)
	return f.Call(act, receiver, args[1].(*avm2.ArrayObject).Elements)
}

// functionApply implements Function.apply(thisArg, argArray).
func functionApply(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
	f, err := asFunction(this)
	if err != nil {
		return nil, err
	}
	receiver, _ := args[0].(avm2.Object)
	var callArgs []avm2.Value
	if a, ok := args[1].(*avm2.ArrayObject); ok {
		callArgs = a.Elements
	}
	return f.Call(act, receiver, callArgs)
}

func arrayJoin(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
	a, ok := this.(*avm2.ArrayObject)
	if !ok {
		return nil, &avm2.CoercionError{Value: this, Type: "Array"}
	}
	sep := ","
	if s, ok := args[0].(avm2.String); ok {
		sep = string(s)
	}
	parts := make([]string, a.Len())
	for i, v := range a.Elements {
		if !avm2.IsAbsent(v) {
			parts[i] = avm2.ToString(v)
		}
	}
	return avm2.String(strings.Join(parts, sep)), nil
}

// There are no file dialogs in this host; browse reports a stub and answers
// false ("no dialog opened").
func fileReferenceBrowse(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
	if filters, ok := args[0].(*avm2.ArrayObject); ok && filters.Len() > 0 {
		act.StubMethod("flash.net.FileReference", "browse", "typeFilter")
	} else {
		act.StubMethod("flash.net.FileReference", "browse")
	}
	return avm2.Bool(false), nil
}

func fileReferenceCancel(act *avm2.Activation, this avm2.Object, args []avm2.Value) (avm2.Value, error) {
	act.StubMethod("flash.net.FileReference", "cancel")
	return avm2.Undefined, nil
}
