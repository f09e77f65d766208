package graver

import "fmt"

// Kind classifies a runtime type into the closed set the engine understands.
// Every dispatch switch over Kind must be exhaustive and end in an internal
// error so an unhandled kind fails loudly instead of writing garbage.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindDomainPrim
	KindEnum
	KindList
	KindDict
	KindStruct
	KindClass
	KindPolyRoot
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindPrimitive:
		return "Primitive"
	case KindDomainPrim:
		return "DomainPrimitive"
	case KindEnum:
		return "Enum"
	case KindList:
		return "List"
	case KindDict:
		return "Dictionary"
	case KindStruct:
		return "Struct"
	case KindClass:
		return "Class"
	case KindPolyRoot:
		return "PolymorphicRoot"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
