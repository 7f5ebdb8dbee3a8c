package runtime

import (
	"sort"

	"learnpi/interpreter-go/pkg/ast"
)

// Function is a user-defined function bound to a symbol.
type Function struct {
	Params []string
	Body   ast.Node
}

// Symbol is a named binding holding either a value or a function.
type Symbol struct {
	Name     string
	Value    Value
	Function *Function
}

// IsFunction reports whether the symbol names a function.
func (s *Symbol) IsFunction() bool { return s.Function != nil }

const (
	defaultScopeCapacity = 16
	// maximum load, counting tombstones, in quarters
	maxLoadQuarters = 3
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotUsed
	slotDeleted
)

type slot struct {
	state  slotState
	symbol *Symbol
}

// Scope is one open-addressed hash table of symbols.
type Scope struct {
	slots      []slot
	live       int
	occupied   int
	maxSymbols int
}

// NewScope creates an empty scope. maxSymbols <= 0 means unbounded.
func NewScope(maxSymbols int) *Scope {
	return &Scope{
		slots:      make([]slot, defaultScopeCapacity),
		maxSymbols: maxSymbols,
	}
}

func symhash(name string) uint {
	var h uint
	for i := 0; i < len(name); i++ {
		h = h*9 ^ uint(name[i])
	}
	return h
}

// Len reports the number of live symbols.
func (s *Scope) Len() int { return s.live }

// Capacity reports the current number of slots.
func (s *Scope) Capacity() int { return len(s.slots) }

// lookup returns the slot index holding name, or -1.
func (s *Scope) lookup(name string) int {
	n := uint(len(s.slots))
	start := symhash(name) % n
	for i := uint(0); i < n; i++ {
		idx := (start + i) % n
		switch s.slots[idx].state {
		case slotEmpty:
			return -1
		case slotUsed:
			if s.slots[idx].symbol.Name == name {
				return int(idx)
			}
		}
	}
	return -1
}

// Lookup finds name in this scope only.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	idx := s.lookup(name)
	if idx < 0 {
		return nil, false
	}
	return s.slots[idx].symbol, true
}

// Insert adds a fresh symbol for name.
func (s *Scope) Insert(name string) (*Symbol, error) {
	if s.lookup(name) >= 0 {
		return nil, Errorf(ErrAlreadyDefined, "%q is already defined in this scope", name)
	}
	if s.maxSymbols > 0 && s.live >= s.maxSymbols {
		return nil, Errorf(ErrTableFull, "scope holds the maximum of %d symbols", s.maxSymbols)
	}
	if (s.occupied+1)*4 > len(s.slots)*maxLoadQuarters {
		s.rehash()
	}
	sym := &Symbol{Name: name}
	s.place(sym)
	s.live++
	return sym, nil
}

// place stores sym in the first empty or deleted slot of its probe chain.
func (s *Scope) place(sym *Symbol) {
	n := uint(len(s.slots))
	start := symhash(sym.Name) % n
	for i := uint(0); i < n; i++ {
		idx := (start + i) % n
		switch s.slots[idx].state {
		case slotEmpty:
			s.occupied++
			fallthrough
		case slotDeleted:
			s.slots[idx] = slot{state: slotUsed, symbol: sym}
			return
		}
	}
	panic("runtime: scope has no free slot after rehash")
}

// rehash drops tombstones and doubles the table when live symbols alone
// would exceed the load limit.
func (s *Scope) rehash() {
	size := len(s.slots)
	for (s.live+1)*4 > size*maxLoadQuarters {
		size *= 2
	}
	old := s.slots
	s.slots = make([]slot, size)
	s.occupied = 0
	for _, sl := range old {
		if sl.state == slotUsed {
			s.place(sl.symbol)
		}
	}
}

// Delete removes name from this scope, leaving a tombstone so later probe
// chains stay intact.
func (s *Scope) Delete(name string) bool {
	idx := s.lookup(name)
	if idx < 0 {
		return false
	}
	s.slots[idx] = slot{state: slotDeleted}
	s.live--
	return true
}

// Names returns the live symbol names in sorted order.
func (s *Scope) Names() []string {
	names := make([]string, 0, s.live)
	for _, sl := range s.slots {
		if sl.state == slotUsed {
			names = append(names, sl.symbol.Name)
		}
	}
	sort.Strings(names)
	return names
}

//-----------------------------------------------------------------------------
// Scope stack
//-----------------------------------------------------------------------------

// ScopeStack is the chain of active scopes, innermost last. The global
// scope is created up front and never popped.
type ScopeStack struct {
	scopes     []*Scope
	maxSymbols int
}

// NewScopeStack creates a stack holding only the global scope.
func NewScopeStack(maxSymbols int) *ScopeStack {
	return &ScopeStack{
		scopes:     []*Scope{NewScope(maxSymbols)},
		maxSymbols: maxSymbols,
	}
}

// Depth reports how many scopes are active, including the global one.
func (s *ScopeStack) Depth() int { return len(s.scopes) }

// EnterScope pushes a fresh innermost scope.
func (s *ScopeStack) EnterScope() {
	s.scopes = append(s.scopes, NewScope(s.maxSymbols))
}

// ExitScope pops the innermost scope, releasing its symbols.
func (s *ScopeStack) ExitScope() {
	if len(s.scopes) <= 1 {
		return
	}
	s.scopes[len(s.scopes)-1] = nil
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Current returns the innermost scope.
func (s *ScopeStack) Current() *Scope {
	return s.scopes[len(s.scopes)-1]
}

// Global returns the outermost scope.
func (s *ScopeStack) Global() *Scope {
	return s.scopes[0]
}

// Lookup searches from the innermost scope outward.
func (s *ScopeStack) Lookup(name string) (*Symbol, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i].Lookup(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// Insert adds name to the innermost scope. Shadowing an outer binding is
// allowed; redefining one in the same scope is not.
func (s *ScopeStack) Insert(name string) (*Symbol, error) {
	return s.Current().Insert(name)
}

// Delete removes the innermost visible binding of name.
func (s *ScopeStack) Delete(name string) error {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].Delete(name) {
			return nil
		}
	}
	return Errorf(ErrNameNotFound, "%q is not defined", name)
}

// DefineFunction binds a user function to name in the innermost scope.
func (s *ScopeStack) DefineFunction(name string, params []string, body ast.Node) (*Symbol, error) {
	sym, err := s.Insert(name)
	if err != nil {
		return nil, err
	}
	sym.Function = &Function{Params: append([]string(nil), params...), Body: body}
	return sym, nil
}
