package ast

// Def represents a top level definition in user source code.
type Def interface {
	Node

	// Names returns the list of names that this definition defines.
	Names() []string

	// Annotations returns a map of the decorator markers applied to this
	// definition: `compile`, `inline`, `extern`, `enum`, and their arguments.
	Annotations() map[string]string
}

// DefBase is the base type for all definition types.
type DefBase struct {
	NodeBase

	annots map[string]string
}

// NewDefBase creates a new definition base with the given annotations.
func NewDefBase(annots map[string]string) DefBase {
	if annots == nil {
		annots = make(map[string]string)
	}

	return DefBase{annots: annots}
}

func (db *DefBase) Annotations() map[string]string {
	return db.annots
}

// HasAnnotation reports whether the definition carries the given marker.
func (db *DefBase) HasAnnotation(name string) bool {
	_, ok := db.annots[name]
	return ok
}

// -----------------------------------------------------------------------------

// Param is one formal parameter of a function definition.
type Param struct {
	Name string

	// Annot is the parameter's type annotation expression.
	Annot Expr
}

// FuncDef is an AST node for a function definition.
type FuncDef struct {
	DefBase

	Name   string
	Params []Param

	// Returns is the return type annotation expression; nil for void.
	Returns Expr

	Body []Stmt
}

func (fd *FuncDef) Names() []string {
	return []string{fd.Name}
}

// ParamNames returns the names of the function's parameters in order.
func (fd *FuncDef) ParamNames() []string {
	names := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		names[i] = p.Name
	}

	return names
}

// -----------------------------------------------------------------------------

// ClassField is one annotated field of a class-based type declaration.
type ClassField struct {
	Name string

	// Annot is the field's type annotation; for enum declarations a `None`
	// annotation marks a payload-less variant.
	Annot Expr

	// Default is the optional field initializer; enum declarations use it for
	// explicit tag values.
	Default Expr
}

// ClassDef is an AST node for a class-based type declaration.  Un-decorated
// classes declare structs; classes marked `enum(tag_type=...)` declare tagged
// sums; classes with a `union` marker declare untagged unions.
type ClassDef struct {
	DefBase

	Name   string
	Fields []ClassField
}

func (cd *ClassDef) Names() []string {
	return []string{cd.Name}
}
