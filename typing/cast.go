package typing

// CastKind describes how one type converts to another.
type CastKind int

const (
	CastIllegal CastKind = iota
	CastIdentity
	CastIntTrunc
	CastIntExt
	CastIntToFloat
	CastFloatToInt
	CastFloatResize
	CastPtrBit
	CastForgetRefinement
	CastRefinedToRefined
)

// CheckCast classifies an explicit conversion from src to dst.  It returns
// CastIllegal for conversions the language forbids, notably base → refined
// which must go through `assume` or `refine`.
func CheckCast(src, dst DataType) CastKind {
	src, dst = InnerType(src), InnerType(dst)

	if Equals(src, dst) {
		return CastIdentity
	}

	srcRef, srcIsRef := src.(*RefinedType)
	dstRef, dstIsRef := dst.(*RefinedType)

	switch {
	case srcIsRef && dstIsRef:
		if RefinedConvertible(srcRef, dstRef) {
			return CastRefinedToRefined
		}

		return CastIllegal
	case srcIsRef:
		// Refined → base: forgetting refinement is always allowed.
		if Equals(srcRef.Base, dst) {
			return CastForgetRefinement
		}

		return CastIllegal
	case dstIsRef:
		// Base → refined requires a runtime or assumed proof.
		return CastIllegal
	}

	switch s := src.(type) {
	case *IntType:
		switch d := dst.(type) {
		case *IntType:
			if d.Width < s.Width {
				return CastIntTrunc
			}

			return CastIntExt
		case *FloatType:
			return CastIntToFloat
		case PrimType:
			if d == PrimBool {
				return CastIntTrunc
			}
		}
	case *FloatType:
		switch dst.(type) {
		case *IntType:
			return CastFloatToInt
		case *FloatType:
			return CastFloatResize
		}
	case PrimType:
		if s == PrimBool {
			if _, ok := dst.(*IntType); ok {
				return CastIntExt
			}
		}
	case *PointerType:
		if _, ok := dst.(*PointerType); ok {
			return CastPtrBit
		}
	}

	return CastIllegal
}
