package index

import (
	"slnlint/internal/extractor"
)

// DeclID is a handle into the declaration arena. Zero is never allocated.
type DeclID uint32

// RefID is a handle into the reference arena. Zero is never allocated.
type RefID uint32

const (
	NoDecl DeclID = 0
	NoRef  RefID  = 0
)

func (id DeclID) IsValid() bool { return id != NoDecl }
func (id RefID) IsValid() bool  { return id != NoRef }

// Decl is a declaration together with the project declaring it.
type Decl struct {
	extractor.Declaration
	Project string `json:"project"`
}

// Ref is a reference and the outcome of resolving it.
type Ref struct {
	extractor.Reference
	Project string           `json:"project"`
	Target  DeclID           `json:"target,omitempty"`
	Reason  UnresolvedReason `json:"reason,omitempty"`
	// Candidates holds what an ambiguous or not visible reference could
	// have meant.
	Candidates []DeclID `json:"candidates,omitempty"`
}

// UnresolvedReason explains why a reference has no target.
type UnresolvedReason string

const (
	ReasonNone UnresolvedReason = ""
	// ReasonNoCandidate: nothing in the solution has the name.
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	// ReasonAmbiguous: several unrelated declarations qualify.
	ReasonAmbiguous UnresolvedReason = "ambiguous"
	// ReasonNotVisible: a declaration exists but outside the projects the
	// referencing project depends on, or it is not exported.
	ReasonNotVisible UnresolvedReason = "not_visible"
	// ReasonExternal: the qualifier names something outside the solution.
	ReasonExternal UnresolvedReason = "external"
)

// ResolveStats counts what one stage did.
type ResolveStats struct {
	Attempted  int `json:"attempted"`
	Resolved   int `json:"resolved"`
	Classified int `json:"classified"`
}

// StageResult records one resolver stage of a build.
type StageResult struct {
	Stage            string       `json:"stage"`
	Stats            ResolveStats `json:"stats"`
	UnresolvedBefore int          `json:"unresolved_before"`
	UnresolvedAfter  int          `json:"unresolved_after"`
}

// ProjectSymbols lists the handles owned by one project.
type ProjectSymbols struct {
	ID           string
	Declarations []DeclID
	References   []RefID
}
