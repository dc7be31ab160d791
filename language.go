package cryptbind

// Language is a target of the binding generator.
type Language int

//go:generate go tool enumer -type=Language -transform=lower language.go

const (
	Java Language = iota
	Python
	Net
)
