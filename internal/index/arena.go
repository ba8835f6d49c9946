package index

import (
	"fmt"

	"fortio.org/safecast"
)

// declArena stores declarations in a flat slice. Index 0 is the sentinel.
type declArena struct {
	data []Decl
}

func newDeclArena(capacity int) declArena {
	return declArena{data: make([]Decl, 1, capacity+1)}
}

func (a *declArena) add(d Decl) DeclID {
	value, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("declaration arena overflow: %w", err))
	}
	a.data = append(a.data, d)
	return DeclID(value)
}

func (a *declArena) get(id DeclID) *Decl {
	if !id.IsValid() || int(id) >= len(a.data) {
		return nil
	}
	return &a.data[id]
}

func (a *declArena) len() int { return len(a.data) - 1 }

type refArena struct {
	data []Ref
}

func newRefArena(capacity int) refArena {
	return refArena{data: make([]Ref, 1, capacity+1)}
}

func (a *refArena) add(r Ref) RefID {
	value, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("reference arena overflow: %w", err))
	}
	a.data = append(a.data, r)
	return RefID(value)
}

func (a *refArena) get(id RefID) *Ref {
	if !id.IsValid() || int(id) >= len(a.data) {
		return nil
	}
	return &a.data[id]
}

func (a *refArena) len() int { return len(a.data) - 1 }
