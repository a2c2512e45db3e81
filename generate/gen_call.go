package generate

import (
	"pythoc/ast"
	"pythoc/depm"
	"pythoc/report"
	"pythoc/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// calleeSymbol resolves a callee name through the driver's redirection hook.
func (g *Generator) calleeSymbol(name string) *depm.Symbol {
	if g.CalleeSymbol == nil {
		return nil
	}

	return g.CalleeSymbol(name)
}

// genCallValue emits a call expression.  Intrinsics lower inline; ordinary
// calls go to the concrete symbol chosen by effect propagation.
func (g *Generator) genCallValue(node *ast.Call) value.Value {
	switch fn := node.Func.(type) {
	case *ast.Name:
		if val, handled := g.genIntrinsic(node, fn.Id); handled {
			return val
		}

		// Conversion through a type call.
		if node.Type() != nil && len(node.Args) == 1 {
			if _, isFunc := typing.InnerType(node.Type()).(*typing.FuncType); !isFunc {
				if sym := g.calleeSymbol(fn.Id); sym == nil {
					return g.genConversion(node)
				}
			}
		}

		sym := g.calleeSymbol(fn.Id)
		if sym == nil {
			// A type call with no arguments constructs a zero value.
			if node.Type() != nil {
				return zeroValue(g.convType(node.Type()))
			}

			report.ReportICE("call to unresolved symbol `%s`", fn.Id)
		}

		// Declared type names: conversions and refined-type construction.
		if sym.DefKind == depm.DKType {
			if len(node.Args) == 0 {
				return zeroValue(g.convType(node.Type()))
			}

			if _, isRef := typing.InnerType(sym.Type).(*typing.RefinedType); isRef {
				return g.genAssumeValue(node)
			}

			return g.genConversion(node)
		}

		return g.genDirectCall(sym, node.Args)
	case *ast.Attribute:
		// Effect method call: resolve the implementation and call it.
		if base, ok := fn.Value.(*ast.Name); ok && base.Id == "effect" {
			impl, found := g.EffectImpl(fn.Attr)
			if !found || impl.Symbol == nil {
				report.ReportICE("call through unbound effect `%s`", fn.Attr)
			}

			return g.genDirectCall(impl.Symbol, node.Args)
		}

		// Call through a function-pointer field.
		callee := g.genExpr(fn)
		args := g.genArgs(node.Args)
		return g.block.NewCall(callee, args...)
	case *ast.Subscript:
		// Subscripted type call constructs a zero value of the type.
		if node.Type() != nil {
			return zeroValue(g.convType(node.Type()))
		}
	}

	report.ReportICE("cannot lower call")
	return nil
}

func (g *Generator) genDirectCall(sym *depm.Symbol, args []ast.Expr) value.Value {
	fn := g.DeclareFunc(sym)
	return g.block.NewCall(fn, g.genArgs(args)...)
}

func (g *Generator) genArgs(args []ast.Expr) []value.Value {
	vals := make([]value.Value, len(args))
	for i, arg := range args {
		vals[i] = g.genExpr(arg)
	}

	return vals
}

// genConversion emits an explicit numeric or pointer conversion.
func (g *Generator) genConversion(node *ast.Call) value.Value {
	src := g.genExpr(node.Args[0])
	srcType := node.Args[0].Type()
	dstType := node.Type()
	llDst := g.convType(dstType)

	switch typing.CheckCast(srcType, dstType) {
	case typing.CastIdentity, typing.CastForgetRefinement, typing.CastRefinedToRefined:
		return src
	case typing.CastIntTrunc:
		return g.block.NewTrunc(src, llDst)
	case typing.CastIntExt:
		if it, ok := typing.InnerType(srcType).(*typing.IntType); ok && !it.Signed {
			return g.block.NewZExt(src, llDst)
		}

		return g.block.NewSExt(src, llDst)
	case typing.CastIntToFloat:
		if it, ok := typing.InnerType(srcType).(*typing.IntType); ok && !it.Signed {
			return g.block.NewUIToFP(src, llDst)
		}

		return g.block.NewSIToFP(src, llDst)
	case typing.CastFloatToInt:
		if it, ok := typing.InnerType(dstType).(*typing.IntType); ok && !it.Signed {
			return g.block.NewFPToUI(src, llDst)
		}

		return g.block.NewFPToSI(src, llDst)
	case typing.CastFloatResize:
		if sizeOf(dstType) > sizeOf(srcType) {
			return g.block.NewFPExt(src, llDst)
		}

		return g.block.NewFPTrunc(src, llDst)
	case typing.CastPtrBit:
		return g.block.NewBitCast(src, llDst)
	}

	// Identity conversions of literals land here after literal adaptation.
	return src
}

// genIntrinsic lowers front-end intrinsic calls.  The second result is false
// when the name is not an intrinsic.
func (g *Generator) genIntrinsic(node *ast.Call, name string) (value.Value, bool) {
	switch name {
	case "sizeof":
		size := 0
		if len(node.Args) == 1 && node.Args[0].Type() != nil {
			size = sizeOf(node.Args[0].Type())
		}

		return constant.NewInt(types.I64, int64(size)), true
	case "ptr":
		if addr := g.genAddr(node.Args[0]); addr != nil {
			return addr, true
		}

		// Taking the address of a temporary spills it.
		val := g.genExpr(node.Args[0])
		slot := g.block.NewAlloca(val.Type())
		g.block.NewStore(val, slot)
		return slot, true
	case "nullptr":
		return constant.NewNull(types.I8Ptr), true
	case "linear":
		// Linear tokens are zero-width; their creation emits nothing.
		return constant.NewZeroInitializer(types.NewStruct()), true
	case "consume":
		// Ownership transitions are fully erased.
		return nil, true
	case "move":
		return g.genExpr(node.Args[0]), true
	case "assume":
		return g.genAssumeValue(node), true
	case "label", "goto", "goto_begin", "goto_end", "defer", "cimport":
		report.ReportICE("intrinsic `%s` in expression position", name)
	}

	return nil, false
}

// genAssumeValue emits the value side of assume: the single value unchanged,
// or the carrier struct for the multi-value form.
func (g *Generator) genAssumeValue(node *ast.Call) value.Value {
	var vals []value.Value
	for _, arg := range node.Args {
		// Predicate references and tag strings contribute nothing at
		// runtime.
		if name, ok := arg.(*ast.Name); ok {
			if sym := g.calleeSymbol(name.Id); sym != nil {
				if _, isFunc := sym.Type.(*typing.FuncType); isFunc {
					continue
				}
			}
		}

		if c, ok := arg.(*ast.Constant); ok {
			if _, isStr := c.Value.(string); isStr {
				continue
			}
		}

		vals = append(vals, g.genExpr(arg))
	}

	if len(vals) == 1 {
		return vals[0]
	}

	fieldTypes := make([]types.Type, len(vals))
	for i, v := range vals {
		fieldTypes[i] = v.Type()
	}

	var agg value.Value = constant.NewZeroInitializer(types.NewStruct(fieldTypes...))
	for i, v := range vals {
		agg = g.block.NewInsertValue(agg, v, uint64(i))
	}

	return agg
}
