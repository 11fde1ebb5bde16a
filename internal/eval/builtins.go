package eval

// builtins supplies the Go implementation behind every operator identifier
// internal/check/prelude.go types (spec §4.C: binary operators desugar to
// ordinary Apply nodes against these names). VBuiltin.Fn is unary, so a
// binary operator is bound to a VBuiltin that itself returns a second
// VBuiltin closing over the first argument — the same currying the
// evaluator already applies to multi-parameter Lambda/Rec.
func builtins() map[string]Value {
	return map[string]Value{
		"+":  binIntOp("+", func(a, b int64) (int64, error) { return a + b, nil }),
		"-":  binIntOp("-", func(a, b int64) (int64, error) { return a - b, nil }),
		"*":  binIntOp("*", func(a, b int64) (int64, error) { return a * b, nil }),
		"/": binIntOp("/", func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, RuntimeErrorf("DivisionByZero", "division by zero")
			}
			return a / b, nil
		}),
		"%": binIntOp("%", func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, RuntimeErrorf("DivisionByZero", "division by zero")
			}
			return a % b, nil
		}),
		"<":  cmpIntOp("<", func(a, b int64) bool { return a < b }),
		">":  cmpIntOp(">", func(a, b int64) bool { return a > b }),
		"<=": cmpIntOp("<=", func(a, b int64) bool { return a <= b }),
		">=": cmpIntOp(">=", func(a, b int64) bool { return a >= b }),
		"==": binBuiltin("==", func(a, b Value) (Value, error) { return VBool(valueEquals(a, b)), nil }),
		"!=": binBuiltin("!=", func(a, b Value) (Value, error) { return VBool(!valueEquals(a, b)), nil }),
		"&&": binBuiltin("&&", func(a, b Value) (Value, error) {
			ab, aok := a.(VBool)
			bb, bok := b.(VBool)
			if !aok || !bok {
				return nil, RuntimeErrorf("TypeError", "&& applied to non-Bool operand")
			}
			return VBool(bool(ab) && bool(bb)), nil
		}),
		"||": binBuiltin("||", func(a, b Value) (Value, error) {
			ab, aok := a.(VBool)
			bb, bok := b.(VBool)
			if !aok || !bok {
				return nil, RuntimeErrorf("TypeError", "|| applied to non-Bool operand")
			}
			return VBool(bool(ab) || bool(bb)), nil
		}),
		"::": binBuiltin("::", func(a, b Value) (Value, error) {
			tail, ok := b.(VList)
			if !ok {
				return nil, RuntimeErrorf("TypeError", ":: applied to a non-list tail")
			}
			elems := make([]Value, 0, len(tail.Elements)+1)
			elems = append(elems, a)
			elems = append(elems, tail.Elements...)
			return VList{Elements: elems}, nil
		}),
	}
}

// binBuiltin curries a two-argument Go function into nested VBuiltins.
func binBuiltin(name string, fn func(a, b Value) (Value, error)) *VBuiltin {
	return &VBuiltin{Name: name, Fn: func(a Value) (Value, error) {
		return &VBuiltin{Name: name, Fn: func(b Value) (Value, error) {
			return fn(a, b)
		}}, nil
	}}
}

func binIntOp(name string, fn func(a, b int64) (int64, error)) *VBuiltin {
	return binBuiltin(name, func(a, b Value) (Value, error) {
		ai, aok := a.(VInt)
		bi, bok := b.(VInt)
		if !aok || !bok {
			return nil, RuntimeErrorf("TypeError", "%s applied to non-Int operand", name)
		}
		r, err := fn(int64(ai), int64(bi))
		if err != nil {
			return nil, err
		}
		return VInt(r), nil
	})
}

func cmpIntOp(name string, fn func(a, b int64) bool) *VBuiltin {
	return binBuiltin(name, func(a, b Value) (Value, error) {
		ai, aok := a.(VInt)
		bi, bok := b.(VInt)
		if !aok || !bok {
			return nil, RuntimeErrorf("TypeError", "%s applied to non-Int operand", name)
		}
		return VBool(fn(int64(ai), int64(bi))), nil
	})
}

// valueEquals implements spec's structural equality over runtime values:
// same shape, same contents, recursively. Closures, builtins and
// continuations are never equal to anything, including themselves, since
// spec gives "==" no defined case for function-typed operands.
func valueEquals(a, b Value) bool {
	switch av := a.(type) {
	case VInt:
		bv, ok := b.(VInt)
		return ok && av == bv
	case VFloat:
		bv, ok := b.(VFloat)
		return ok && av == bv
	case VBool:
		bv, ok := b.(VBool)
		return ok && av == bv
	case VString:
		bv, ok := b.(VString)
		return ok && av == bv
	case VUnit:
		_, ok := b.(VUnit)
		return ok
	case VList:
		bv, ok := b.(VList)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !valueEquals(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case VTuple:
		bv, ok := b.(VTuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !valueEquals(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case VRecord:
		bv, ok := b.(VRecord)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range av.Fields {
			bvv, ok := bv.Fields[k]
			if !ok || !valueEquals(v, bvv) {
				return false
			}
		}
		return true
	case VConstructor:
		bv, ok := b.(VConstructor)
		if !ok || av.Name != bv.Name || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !valueEquals(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
