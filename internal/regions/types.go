// internal/regions/types.go
package regions

import (
	"github.com/navlens/navlens-cli/internal/page"
)

// Kind identifies one of the semantic regions the classifier can locate.
type Kind int

const (
	KindPrimaryNav Kind = iota
	KindFooter
	KindMobileNav
)

func (k Kind) String() string {
	switch k {
	case KindPrimaryNav:
		return "primary-nav"
	case KindFooter:
		return "footer"
	case KindMobileNav:
		return "mobile-nav"
	default:
		return "unknown"
	}
}

// Candidate is an element under consideration during one scored
// classification pass. It holds a weak handle into the live document and
// is discarded once a winner is selected.
type Candidate struct {
	Node      page.NodeRef
	Score     int
	Reasons   []string
	LinkCount int
	Class     string
	AriaLabel string
}

// Result is the outcome of a classification. Absence of a region is a
// normal outcome, not an error: Found is false and Node is empty.
//
// When Found is true the node was confirmed visible with a positive score
// at the moment of classification. The document can mutate afterwards;
// callers must tolerate stale references.
type Result struct {
	Found   bool
	Node    page.NodeRef
	Score   int
	Reasons []string
}

// notFound is the canonical empty result.
var notFound = Result{}

// Pattern tags which drawer implementation a mobile nav uses. The set is
// closed: each tag selects a fixed open/close/is-open strategy.
type Pattern int

const (
	PatternDetailsSummary Pattern = iota
	PatternBootstrapNavbar
	PatternDataAttribute
	PatternDrawerComponent
	PatternClassHeuristic
)

func (p Pattern) String() string {
	switch p {
	case PatternDetailsSummary:
		return "details-summary"
	case PatternBootstrapNavbar:
		return "bootstrap-navbar"
	case PatternDataAttribute:
		return "data-attribute"
	case PatternDrawerComponent:
		return "drawer-component"
	case PatternClassHeuristic:
		return "class-heuristic"
	default:
		return "unknown"
	}
}

// Descriptor describes a detected mobile navigation: the control that
// toggles it, the drawer panel it reveals, and the implementation pattern
// that determines how its state is driven and queried.
//
// Root is the enclosing stateful element when the pattern has one (the
// <details> element, the drawer web component); empty otherwise.
type Descriptor struct {
	Trigger page.NodeRef
	Drawer  page.NodeRef
	Root    page.NodeRef
	Pattern Pattern
	Score   int
	Reasons []string
}
