package stk

import "github.com/slowlang/unbox/decompiler/ir"

// Value is one abstract stack value (spec.md §3): a globally unique id
// plus, when it was produced by a "push continuation" opcode, the lifted
// function it names.
type Value struct {
	ID   string
	Cont *ir.ContinuationMeta
}

// Guard is the conditional-alignment guard of spec.md §4.2. Depth is the
// distance between the current top and the boundary below which access is
// blocked; Arms holds one pending-variable list per mutually exclusive
// runtime arm.
type Guard struct {
	Depth int
	Arms  [][]string
}

// Stack is the symbolic operand stack: an ordered bottom-to-top sequence
// of abstract stack values plus an optional guard.
type Stack struct {
	values []Value
	guard  *Guard

	alloc *IDAllocator
}

// New returns an empty stack backed by alloc.
func New(alloc *IDAllocator) *Stack {
	return &Stack{alloc: alloc}
}

// Copy returns an independent deep copy — used to snapshot before
// attempting an instruction, so a failed attempt can be discarded without
// disturbing the committed stack (spec.md §4.3 step 3/4).
func (s *Stack) Copy() *Stack {
	cp := &Stack{
		values: append([]Value{}, s.values...),
		alloc:  s.alloc,
	}

	if s.guard != nil {
		g := &Guard{Depth: s.guard.Depth, Arms: make([][]string, len(s.guard.Arms))}
		for i, a := range s.guard.Arms {
			g.Arms[i] = append([]string{}, a...)
		}
		cp.guard = g
	}

	return cp
}

// Len is the number of values currently on the stack.
func (s *Stack) Len() int { return len(s.values) }

// Assign replaces this stack's state with other's — used to commit a
// snapshot taken with Copy once an instruction has been applied
// successfully.
func (s *Stack) Assign(other *Stack) {
	s.values = other.values
	s.guard = other.guard
}

// IDs returns the identifiers currently on the stack, bottom to top.
func (s *Stack) IDs() []Value {
	return append([]Value{}, s.values...)
}

// NewPendingVar mints a fresh identifier without touching the stack or
// guard — used to name a conditional-output arm's pending variable before
// the guard is finalized and the merged identifier is actually pushed.
func (s *Stack) NewPendingVar() string {
	return s.alloc.NewVar()
}

// HasGuard reports whether a conditional-alignment guard is active.
func (s *Stack) HasGuard() bool { return s.guard != nil }

func (s *Stack) absIndex(depth int) (int, error) {
	idx := len(s.values) - 1 - depth
	if idx < 0 {
		return 0, &StackUnderflow{Depth: -idx}
	}

	return idx, nil
}

// Pop removes and returns the top value. If a guard is active and its
// depth has been exhausted, it fails with ErrGuardUnresolved instead of
// reaching below the boundary; otherwise an empty stack fails with
// StackUnderflow{Depth: 1}.
func (s *Stack) Pop() (Value, error) {
	if s.guard != nil {
		if s.guard.Depth == 0 {
			return Value{}, &ErrGuardUnresolved{}
		}

		s.guard.Depth--
	}

	if len(s.values) == 0 {
		return Value{}, &StackUnderflow{Depth: 1}
	}

	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]

	return v, nil
}

// Push allocates a fresh identifier, pushes it, and returns it. If a guard
// is active its depth grows, since the new value sits above the boundary.
func (s *Stack) Push() Value {
	v := Value{ID: s.alloc.NewVar()}
	s.values = append(s.values, v)

	if s.guard != nil {
		s.guard.Depth++
	}

	return v
}

// PushContinuation is Push, additionally attaching continuation metadata
// to the pushed value (spec.md §4.3 step 3d, "push continuation" opcodes).
func (s *Stack) PushContinuation(fn *ir.Function) Value {
	v := s.Push()
	v.Cont = &ir.ContinuationMeta{Continuation: fn}
	s.values[len(s.values)-1] = v

	return v
}

// Peek returns the value at depth without removing it.
func (s *Stack) Peek(depth int) (Value, error) {
	idx, err := s.absIndex(depth)
	if err != nil {
		return Value{}, err
	}

	return s.values[idx], nil
}

// InsertArgsAtBottom synthesizes n fresh formal parameters and prepends
// them to the bottom of the stack. Within the synthesized group, the last
// one minted is placed shallowest (closest to the rest of the stack) so
// that a subsequent Pop yields it first — spec.md §9's resolution of the
// "forward or reversed" source ambiguity: "a subsequent pop() yields the
// last synthesized argument first."
func (s *Stack) InsertArgsAtBottom(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = s.alloc.NewArg()
	}

	fresh := make([]Value, n)
	for i, id := range ids {
		fresh[i] = Value{ID: id}
	}

	s.values = append(fresh, s.values...)

	if s.guard != nil {
		s.guard.Depth += n
	}

	return ids
}

// EnsureGuard installs a guard if none is active, or tightens an existing
// one: the boundary depth is the minimum of the existing and requested
// depth, and the arm count is resized — extended with empty arms, or
// trimmed — to numArms (spec.md §4.2: "takes the most restrictive
// (smallest) depth and must be called with the same arm count").
func (s *Stack) EnsureGuard(depthFromTop, numArms int) {
	if s.guard == nil {
		s.guard = &Guard{Depth: depthFromTop, Arms: make([][]string, numArms)}
		return
	}

	if depthFromTop < s.guard.Depth {
		s.guard.Depth = depthFromTop
	}

	switch {
	case numArms > len(s.guard.Arms):
		for len(s.guard.Arms) < numArms {
			s.guard.Arms = append(s.guard.Arms, nil)
		}
	case numArms < len(s.guard.Arms):
		s.guard.Arms = s.guard.Arms[:numArms]
	}
}

// ShuffleOp is one step of a stack-shuffle instruction's decomposition
// into the four primitive operations of spec.md §4.2. I and J are 0-based
// depths from the top of the stack at the moment the step runs; N is a
// count. Which fields apply depends on Op.
type ShuffleOp struct {
	Op string // "xchg", "blkpush", "blkpop", "reverse"
	I  int
	J  int
	N  int
}

// Xchg swaps the entries at depths i and j.
func (s *Stack) Xchg(i, j int) error {
	ai, err := s.absIndex(i)
	if err != nil {
		return err
	}

	aj, err := s.absIndex(j)
	if err != nil {
		return err
	}

	s.values[ai], s.values[aj] = s.values[aj], s.values[ai]

	return nil
}

// BlkPush duplicates the entry at depth j, n times, pushing each copy onto
// the top. The target absolute index is captured once, before any push,
// since duplicating a value never allocates a fresh identifier — it is
// the same abstract value occupying another slot.
func (s *Stack) BlkPush(n, j int) error {
	aj, err := s.absIndex(j)
	if err != nil {
		return err
	}

	v := s.values[aj]

	for i := 0; i < n; i++ {
		s.values = append(s.values, v)

		if s.guard != nil {
			s.guard.Depth++
		}
	}

	return nil
}

// BlkPop pops the top n entries, swapping top with depth j before each
// pop (spec.md §4.2: "used for 'drop from deeper slot'"). j is
// re-resolved against the current, shrinking stack on every iteration.
func (s *Stack) BlkPop(n, j int) error {
	for i := 0; i < n; i++ {
		if err := s.Xchg(0, j); err != nil {
			return err
		}

		if _, err := s.Pop(); err != nil {
			return err
		}
	}

	return nil
}

// Reverse reverses the contiguous subsequence of length n spanning depths
// j (shallowest) through j+n-1 (deepest).
func (s *Stack) Reverse(n, j int) error {
	if n <= 1 {
		return nil
	}

	lo, err := s.absIndex(j + n - 1)
	if err != nil {
		return err
	}

	hi, err := s.absIndex(j)
	if err != nil {
		return err
	}

	for lo < hi {
		s.values[lo], s.values[hi] = s.values[hi], s.values[lo]
		lo++
		hi--
	}

	return nil
}

// ExecShuffle applies a decomposed sequence of shuffle primitives in
// order, stopping at the first error.
func (s *Stack) ExecShuffle(ops []ShuffleOp) error {
	for _, op := range ops {
		var err error

		switch op.Op {
		case "xchg":
			err = s.Xchg(op.I, op.J)
		case "blkpush":
			err = s.BlkPush(op.N, op.J)
		case "blkpop":
			err = s.BlkPop(op.N, op.J)
		case "reverse":
			err = s.Reverse(op.N, op.J)
		default:
			return &ErrUnknownShuffleOp{Op: op.Op}
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// AppendToGuardArm appends vars to the pending-variable list of arm idx.
func (s *Stack) AppendToGuardArm(idx int, vars ...string) error {
	if s.guard == nil {
		return &ErrGuardUnresolved{}
	}

	if idx < 0 || idx >= len(s.guard.Arms) {
		return &ErrGuardUnresolved{}
	}

	s.guard.Arms[idx] = append(s.guard.Arms[idx], vars...)

	return nil
}

// TryFinalizeGuard succeeds only when every arm has accumulated the same
// number of pending variables. On success it allocates one fresh merged
// id per position, splices them into the stack at the boundary, clears
// the guard, and returns the merged ids; otherwise it returns nil without
// side effects.
func (s *Stack) TryFinalizeGuard() []string {
	if s.guard == nil {
		return nil
	}

	n := -1

	for _, arm := range s.guard.Arms {
		if n == -1 {
			n = len(arm)
			continue
		}

		if len(arm) != n {
			return nil
		}
	}

	if n < 0 {
		n = 0
	}

	merged := make([]string, n)
	fresh := make([]Value, n)

	for i := range merged {
		merged[i] = s.alloc.NewVar()
		fresh[i] = Value{ID: merged[i]}
	}

	insertAt := len(s.values) - s.guard.Depth
	if insertAt < 0 {
		insertAt = 0
	}

	tail := append([]Value{}, s.values[insertAt:]...)
	s.values = append(append(s.values[:insertAt], fresh...), tail...)

	s.guard = nil

	return merged
}
