package lifo

// DefaultCapacity is the number of values a device holds when no capacity is
// configured.
const DefaultCapacity = 10

// stack is a fixed-capacity LIFO of integers.
//
// stack does no locking of its own; the Coordinator that owns it serializes
// every access.
type stack struct {
	slots []int
	top   int
}

func newStack(capacity int) *stack {
	return &stack{slots: make([]int, capacity)}
}

// tryPush stores v on top of the stack, or returns errFull.
func (s *stack) tryPush(v int) error {
	if s.full() {
		return errFull
	}
	s.slots[s.top] = v
	s.top++
	return nil
}

// tryPop removes and returns the most recently pushed value, or returns errEmpty.
func (s *stack) tryPop() (int, error) {
	if s.empty() {
		return 0, errEmpty
	}
	s.top--
	v := s.slots[s.top]
	s.slots[s.top] = 0
	return v, nil
}

func (s *stack) full() bool  { return s.top == len(s.slots) }
func (s *stack) empty() bool { return s.top == 0 }
func (s *stack) len() int    { return s.top }
func (s *stack) cap() int    { return len(s.slots) }
