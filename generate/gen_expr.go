package generate

import (
	"fmt"

	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// genExpr emits an expression and yields its value.
func (g *Generator) genExpr(expr ast.Expr) value.Value {
	switch v := expr.(type) {
	case *ast.Constant:
		return g.genConstant(v)
	case *ast.Name:
		if ident, ok := g.lookupLocal(v.Id); ok {
			if ident.Mutable {
				return g.block.NewLoad(ident.Val.Type().(*types.PointerType).ElemType, ident.Val)
			}

			return ident.Val
		}

		// A bare function reference becomes a pointer to the declared
		// symbol.
		if sym := g.calleeSymbol(v.Id); sym != nil {
			return g.DeclareFunc(sym)
		}

		report.ReportICE("undefined name `%s` survived checking", v.Id)
		return nil
	case *ast.Attribute:
		return g.genAttribute(v)
	case *ast.Subscript:
		return g.genSubscript(v)
	case *ast.Call:
		return g.genCallValue(v)
	case *ast.BinaryOp:
		return g.genBinaryOp(v)
	case *ast.UnaryOp:
		return g.genUnaryOp(v)
	case *ast.Compare:
		return g.genCompare(v)
	case *ast.TupleExpr:
		return g.genTuple(v)
	}

	report.ReportICE("cannot lower expression")
	return nil
}

func (g *Generator) genConstant(node *ast.Constant) value.Value {
	llTyp := types.Type(types.I32)
	if node.Type() != nil {
		llTyp = g.convType(node.Type())
	}

	switch v := node.Value.(type) {
	case int64:
		if it, ok := llTyp.(*types.IntType); ok {
			return constant.NewInt(it, v)
		}
		if ft, ok := llTyp.(*types.FloatType); ok {
			return constant.NewFloat(ft, float64(v))
		}
	case float64:
		if ft, ok := llTyp.(*types.FloatType); ok {
			return constant.NewFloat(ft, v)
		}

		return constant.NewFloat(types.Double, v)
	case bool:
		return constant.NewBool(v)
	case string:
		strConst := constant.NewCharArrayFromString(v + "\x00")
		g.globalCounter++
		global := g.mod.NewGlobalDef(fmt.Sprintf("__strlit.%d", g.globalCounter), strConst)
		global.Immutable = true

		zero := constant.NewInt(types.I64, 0)
		return g.block.NewGetElementPtr(strConst.Typ, global, zero, zero)
	case nil:
		return constant.NewNull(types.I8Ptr)
	}

	report.ReportICE("cannot lower constant")
	return nil
}

func (g *Generator) genAttribute(node *ast.Attribute) value.Value {
	// Effect reads resolve through the driver-installed resolver: value
	// effects fold to constants, callable effects to their implementation
	// symbol.
	if base, ok := node.Value.(*ast.Name); ok && base.Id == "effect" {
		return g.genEffectRead(node)
	}

	// Enum variant reference: construct the tagged value.
	if base, ok := node.Value.(*ast.Name); ok {
		if et, ok := typing.InnerType(node.Type()).(*typing.EnumType); ok && base.Id == et.Name {
			if variant, found := et.Variant(node.Attr); found {
				return g.genEnumValue(et, variant, nil)
			}
		}
	}

	baseVal := g.genExpr(node.Value)
	baseType := node.Value.Type()

	st, ok := typing.InnerType(baseType).(*typing.StructType)
	if !ok {
		if rt, isRef := typing.InnerType(baseType).(*typing.RefinedType); isRef {
			st, ok = typing.InnerType(rt.Base).(*typing.StructType)
		}

		if !ok {
			report.ReportICE("attribute access on non-struct survived checking")
		}
	}

	index := st.FieldIndex(node.Attr)
	if index < 0 {
		report.ReportICE("unknown field `%s` survived checking", node.Attr)
	}

	return g.block.NewExtractValue(baseVal, uint64(index))
}

func (g *Generator) genEffectRead(node *ast.Attribute) value.Value {
	if g.EffectImpl == nil {
		report.ReportICE("effect read without a resolver")
	}

	impl, ok := g.EffectImpl(node.Attr)
	if !ok {
		report.ReportICE("unbound effect `%s` survived checking", node.Attr)
	}

	if impl.Symbol != nil {
		return g.DeclareFunc(impl.Symbol)
	}

	// Value effects fold into constants.
	folded := &ast.Constant{ExprBase: ast.NewExprBaseOn(node.Pos), Value: impl.Value}
	folded.SetType(node.Type())
	return g.genConstant(folded)
}

// genEnumValue builds a tagged enum value with an optional payload.
func (g *Generator) genEnumValue(et *typing.EnumType, variant typing.EnumVariant, payload value.Value) value.Value {
	llTyp := g.convEnumType(et)

	var agg value.Value = constant.NewZeroInitializer(llTyp)
	tag := constant.NewInt(types.NewInt(uint64(et.TagType.Width)), variant.Tag)
	agg = g.block.NewInsertValue(agg, tag, 0)

	if payload != nil {
		// The payload spills through memory into the blob field.
		slot := g.block.NewAlloca(llTyp)
		g.block.NewStore(agg, slot)

		blobAddr := g.block.NewGetElementPtr(llTyp, slot,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 1))
		cast := g.block.NewBitCast(blobAddr, types.NewPointer(payload.Type()))
		g.block.NewStore(payload, cast)

		return g.block.NewLoad(llTyp, slot)
	}

	return agg
}

func (g *Generator) genSubscript(node *ast.Subscript) value.Value {
	if addr := g.genAddr(node); addr != nil {
		elemType := addr.Type().(*types.PointerType).ElemType
		return g.block.NewLoad(elemType, addr)
	}

	report.ReportICE("cannot lower subscript")
	return nil
}

// genAddr computes the address of an assignable location.
func (g *Generator) genAddr(expr ast.Expr) value.Value {
	switch v := expr.(type) {
	case *ast.Name:
		if ident, ok := g.lookupLocal(v.Id); ok && ident.Mutable {
			return ident.Val
		}
	case *ast.Attribute:
		base := g.genAddr(v.Value)
		if base == nil {
			return nil
		}

		st, ok := typing.InnerType(v.Value.Type()).(*typing.StructType)
		if !ok {
			return nil
		}

		index := st.FieldIndex(v.Attr)
		if index < 0 {
			return nil
		}

		baseType := base.Type().(*types.PointerType).ElemType
		return g.block.NewGetElementPtr(baseType, base,
			constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
	case *ast.Subscript:
		base := g.genAddr(v.Value)
		if base == nil {
			return nil
		}

		indices := []value.Value{constant.NewInt(types.I32, 0)}
		for _, index := range v.Indices {
			indices = append(indices, g.genExpr(index))
		}

		baseType := base.Type().(*types.PointerType).ElemType
		return g.block.NewGetElementPtr(baseType, base, indices...)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (g *Generator) genBinaryOp(node *ast.BinaryOp) value.Value {
	left := g.genExpr(node.Left)
	right := g.genExpr(node.Right)

	isFloat := isFloatValue(left)
	signed := isSignedOperand(node.Left)

	switch node.Op {
	case "+":
		if isFloat {
			return g.block.NewFAdd(left, right)
		}
		return g.block.NewAdd(left, right)
	case "-":
		if isFloat {
			return g.block.NewFSub(left, right)
		}
		return g.block.NewSub(left, right)
	case "*":
		if isFloat {
			return g.block.NewFMul(left, right)
		}
		return g.block.NewMul(left, right)
	case "/", "//":
		if isFloat {
			return g.block.NewFDiv(left, right)
		}
		if signed {
			return g.block.NewSDiv(left, right)
		}
		return g.block.NewUDiv(left, right)
	case "%":
		if isFloat {
			return g.block.NewFRem(left, right)
		}
		if signed {
			return g.block.NewSRem(left, right)
		}
		return g.block.NewURem(left, right)
	case "&":
		return g.block.NewAnd(left, right)
	case "|":
		return g.block.NewOr(left, right)
	case "^":
		return g.block.NewXor(left, right)
	case "<<":
		return g.block.NewShl(left, right)
	case ">>":
		if signed {
			return g.block.NewAShr(left, right)
		}
		return g.block.NewLShr(left, right)
	case "and":
		return g.block.NewAnd(left, right)
	case "or":
		return g.block.NewOr(left, right)
	}

	report.ReportICE("cannot lower binary operator `%s`", node.Op)
	return nil
}

func (g *Generator) genUnaryOp(node *ast.UnaryOp) value.Value {
	operand := g.genExpr(node.Operand)

	switch node.Op {
	case "-":
		if isFloatValue(operand) {
			return g.block.NewFNeg(operand)
		}

		return g.block.NewSub(zeroValue(operand.Type()), operand)
	case "not":
		return g.block.NewXor(operand, constant.NewBool(true))
	case "~":
		return g.block.NewXor(operand, constant.NewInt(operand.Type().(*types.IntType), -1))
	}

	report.ReportICE("cannot lower unary operator `%s`", node.Op)
	return nil
}

func (g *Generator) genCompare(node *ast.Compare) value.Value {
	var result value.Value
	prev := g.genExpr(node.Left)
	prevExpr := ast.Expr(node.Left)

	for i, op := range node.Ops {
		next := g.genExpr(node.Comparators[i])

		var cmp value.Value
		if isFloatValue(prev) {
			cmp = g.block.NewFCmp(floatPred(op), prev, next)
		} else {
			cmp = g.block.NewICmp(intPred(op, isSignedOperand(prevExpr)), prev, next)
		}

		if result == nil {
			result = cmp
		} else {
			result = g.block.NewAnd(result, cmp)
		}

		prev = next
		prevExpr = node.Comparators[i]
	}

	return result
}

func (g *Generator) genEquality(lhs, rhs value.Value) value.Value {
	if isFloatValue(lhs) {
		return g.block.NewFCmp(enum.FPredOEQ, lhs, rhs)
	}

	return g.block.NewICmp(enum.IPredEQ, lhs, rhs)
}

func (g *Generator) genTuple(node *ast.TupleExpr) value.Value {
	llTyp := g.convType(node.Type())

	var agg value.Value = constant.NewZeroInitializer(llTyp)
	for i, elem := range node.Elems {
		agg = g.block.NewInsertValue(agg, g.genExpr(elem), uint64(i))
	}

	return agg
}

// -----------------------------------------------------------------------------

func isFloatValue(v value.Value) bool {
	_, ok := v.Type().(*types.FloatType)
	return ok
}

func isSignedOperand(expr ast.Expr) bool {
	if expr.Type() == nil {
		return true
	}

	if it, ok := typing.InnerType(expr.Type()).(*typing.IntType); ok {
		return it.Signed
	}

	return true
}

func intPred(op string, signed bool) enum.IPred {
	switch op {
	case "==":
		return enum.IPredEQ
	case "!=":
		return enum.IPredNE
	case "<":
		if signed {
			return enum.IPredSLT
		}
		return enum.IPredULT
	case "<=":
		if signed {
			return enum.IPredSLE
		}
		return enum.IPredULE
	case ">":
		if signed {
			return enum.IPredSGT
		}
		return enum.IPredUGT
	default:
		if signed {
			return enum.IPredSGE
		}
		return enum.IPredUGE
	}
}

func floatPred(op string) enum.FPred {
	switch op {
	case "==":
		return enum.FPredOEQ
	case "!=":
		return enum.FPredONE
	case "<":
		return enum.FPredOLT
	case "<=":
		return enum.FPredOLE
	case ">":
		return enum.FPredOGT
	default:
		return enum.FPredOGE
	}
}
