package match

import "pythoc/typing"

// Ctor describes one constructor of a subject type for specialization
// purposes.
type Ctor struct {
	Tag      int64
	Name     string
	SubTypes []typing.DataType
}

// constructors enumerates the constructors of a type: True/False for bool,
// one per variant for enums, and a single tag-0 constructor for structs and
// arrays.  Infinite scalar types have no enumerable constructors.
func constructors(typ typing.DataType) []Ctor {
	switch v := typing.InnerType(typ).(type) {
	case typing.PrimType:
		if v == typing.PrimBool {
			return []Ctor{{Tag: 1, Name: "True"}, {Tag: 0, Name: "False"}}
		}
	case *typing.EnumType:
		ctors := make([]Ctor, len(v.Variants))
		for i, variant := range v.Variants {
			ctor := Ctor{Tag: variant.Tag, Name: v.Name + "." + variant.Name}
			if variant.Payload != nil {
				ctor.SubTypes = []typing.DataType{variant.Payload}
			}

			ctors[i] = ctor
		}

		return ctors
	case *typing.StructType:
		subs := make([]typing.DataType, len(v.Fields))
		for i, f := range v.Fields {
			subs[i] = f.Type
		}

		name := v.Name
		if name == "" {
			name = "struct"
		}

		return []Ctor{{Tag: 0, Name: name, SubTypes: subs}}
	case *typing.ArrayType:
		elem := elemAfterFirstDim(v)
		subs := make([]typing.DataType, v.Dims[0])
		for i := range subs {
			subs[i] = elem
		}

		return []Ctor{{Tag: 0, Name: "array", SubTypes: subs}}
	}

	return nil
}

// ctorByTag returns the constructor with the given tag.
func ctorByTag(typ typing.DataType, tag int64) (Ctor, bool) {
	for _, ctor := range constructors(typ) {
		if ctor.Tag == tag {
			return ctor, true
		}
	}

	return Ctor{}, false
}

// elemAfterFirstDim peels the outermost dimension off an array type.
func elemAfterFirstDim(at *typing.ArrayType) typing.DataType {
	if len(at.Dims) == 1 {
		return at.ElemType
	}

	return &typing.ArrayType{ElemType: at.ElemType, Dims: at.Dims[1:]}
}

// boolLiteralTag maps a bool literal to its constructor tag; -1 for
// non-bool literals.
func boolLiteralTag(value interface{}) int64 {
	if b, ok := value.(bool); ok {
		if b {
			return 1
		}

		return 0
	}

	return -1
}
