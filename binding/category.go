package binding

// Category classifies the type of a function parameter, by the registry that declares it.
type Category int

//go:generate go tool enumer -type=Category -trimprefix=Category category.go

const (
	CategoryUnknown Category = iota

	// CategoryEnum is a "typedef enum" type.
	CategoryEnum

	// CategoryInt is a "typedef int" type, usually an object handle.
	CategoryInt

	// CategoryStruct is a "typedef struct" type.
	CategoryStruct

	// CategoryRaw is one of the dialect's raw C types (char, int, void).
	CategoryRaw
)
