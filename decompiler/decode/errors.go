package decode

import "fmt"

// PrefixNotFound is raised when no catalog entry's prefix (and, where
// present, range check) matches the bits at the cursor (spec.md §4.1, §7).
type PrefixNotFound struct {
	PeekedBits string
}

func (e *PrefixNotFound) Error() string {
	return fmt.Sprintf("no instruction prefix matches %q", e.PeekedBits)
}

// OperandLoad is raised when an operand declaration's loader runs out of
// bits or refs partway through decoding a matched instruction.
type OperandLoad struct {
	Mnemonic string
	Operand  string
	Cause    error
}

func (e *OperandLoad) Error() string {
	return fmt.Sprintf("%s: load operand %s: %v", e.Mnemonic, e.Operand, e.Cause)
}

func (e *OperandLoad) Unwrap() error { return e.Cause }

// CompletionTagMissing is raised when a subslice operand declares
// completion_tag but none of the captured bits is set. One returns it
// wrapped in an OperandLoad.
type CompletionTagMissing struct {
	Mnemonic string
	Operand  string
}

func (e *CompletionTagMissing) Error() string {
	return fmt.Sprintf("%s: operand %s: completion tag missing", e.Mnemonic, e.Operand)
}
