package avm2

import "errors"

// Parameter binding. Supplied arguments are coerced to their declared types,
// missing trailing arguments take their declared defaults (or Undefined), and
// surplus arguments of variadic routines are collected into a rest array.

// bindParameters binds args to sig on behalf of routine name. For variadic
// routines the result carries one extra trailing element, the rest array.
func (act *Activation) bindParameters(name string, args []Value, sig []ParamSpec, variadic bool) ([]Value, error) {
	n := len(sig)
	if variadic {
		n++
	}
	bound := make([]Value, 0, n)
	for i, p := range sig {
		if i >= len(args) {
			if p.HasDefault() {
				bound = append(bound, p.Default)
			} else {
				bound = append(bound, Undefined)
			}
			continue
		}
		v, err := act.Coerce(args[i], p.Type)
		if err != nil {
			return nil, paramError(err, name, p)
		}
		bound = append(bound, v)
	}
	if variadic {
		var surplus []Value
		if len(args) > len(sig) {
			surplus = args[len(sig):]
		}
		bound = append(bound, NewArray(surplus...))
	}
	return bound, nil
}

// paramError attaches the parameter's identity to coercion errors.
func paramError(err error, method string, p ParamSpec) error {
	var cerr *CoercionError
	if errors.As(err, &cerr) {
		cerr.Method, cerr.Param = method, p.Name
	}
	tracer().P("param", p.Name).Errorf("binding parameters of %s: %v", method, err)
	return err
}

// checkArgumentCount enforces the argument count of a checked bytecode method.
// The error returned is not yet named.
func checkArgumentCount(m *BytecodeMethod, got int) *ArgumentCountError {
	if m.IsUnchecked() {
		return nil
	}
	if got > len(m.Signature) && !m.Variadic() {
		return &ArgumentCountError{Expected: len(m.Signature), Got: got}
	}
	if req := requiredParams(m.Signature); got < req {
		return &ArgumentCountError{Expected: req, Got: got}
	}
	return nil
}
