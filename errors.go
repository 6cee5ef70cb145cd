package cs2replay

import "fmt"

// Kind is one of the exhaustive error kinds a demo decode can fail with.
type Kind int

const (
	// Truncated means the stream ended before a complete frame/field could be read.
	Truncated Kind = iota
	// MisalignedRead means a caller asked the bit reader for a bit count outside the 0..32 range a single read supports.
	MisalignedRead
	// UnsupportedFormat means the file's magic stamp is neither the Source 1 nor Source 2 form.
	UnsupportedFormat
	// UnknownClass means a class id was referenced before its serializer was registered.
	UnknownClass
	// UnknownField means a field path resolved to no FlatField in its class.
	UnknownField
	// MissingEntity means a Delta update targeted an empty slot.
	MissingEntity
	// CorruptPath means a field path exceeded the maximum depth or decoded to a malformed stack.
	CorruptPath
	// ProtoDecode means a protobuf-wire-format message body could not be parsed.
	ProtoDecode
	// StringTableOverflow means a string table update referenced a table id that was never created. Entry indices are not checked against a table's declared capacity.
	StringTableOverflow
	// UnknownEvent means a query named an event that has no descriptor.
	UnknownEvent
	// UnknownProp means a query named a property absent from the curated prop table.
	UnknownProp
	// InvalidArgument means a public call received a malformed or type-mismatched argument.
	InvalidArgument
)

var kindNames = [...]string{
	"Truncated", "MisalignedRead", "UnsupportedFormat", "UnknownClass",
	"UnknownField", "MissingEntity", "CorruptPath", "ProtoDecode",
	"StringTableOverflow", "UnknownEvent", "UnknownProp", "InvalidArgument",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Error is the error type returned (or panicked with, internally) by every
// decoding and query operation in this module.
type Error struct {
	Kind   Kind
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Errorf builds an *Error of the given kind, matching the teacher's
// fmt.Errorf-with-%w wrapping style.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind. It type-asserts
// err directly, so an *Error re-wrapped with fmt.Errorf("%w", ...) does not
// match.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
