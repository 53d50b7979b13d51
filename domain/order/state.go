package order

// State is the order lifecycle state.
//
// Display labels and localization for these values live in the
// presentation layer; the core only knows the tags and the legal
// transitions between them.
type State string

const (
	StateInit             State = "INIT"               // created, not yet paying
	StatePaying           State = "PAYING"             // payment in progress
	StatePaid             State = "PAID"               // payment confirmed
	StatePartShipped      State = "PART_SHIPPED"       // some line items shipped
	StateShipped          State = "SHIPPED"            // all line items shipped
	StateReceived         State = "RECEIVED"           // buyer confirmed receipt
	StateExpired          State = "EXPIRED"            // receipt window elapsed
	StateCanceled         State = "CANCELED"           // cancelled before payment
	StateAftersalesIng    State = "AFTERSALES_ING"     // after-sales case open
	StateAftersalesOK     State = "AFTERSALES_SUCCESS" // after-sales resolved
	StateAftersalesFailed State = "AFTERSALES_FAILED"  // after-sales declined
	StateAuditing         State = "AUDITING"           // waiting for supplier audit
	StateAcceptOrder      State = "ACCEPT_ORDER"       // supplier accepted
	StateRejectOrder      State = "REJECT_ORDER"       // supplier rejected
	StateException        State = "EXCEPTION"          // manual-intervention parking state
)

// transitions enumerates the legal edges driven by the lifecycle core.
// Terminal states have no outgoing edges.
var transitions = map[State][]State{
	StateInit:          {StatePaying, StatePaid, StateCanceled, StateAuditing},
	StatePaying:        {StatePaid, StateCanceled},
	StatePaid:          {StatePartShipped, StateShipped, StateReceived, StateExpired, StateAftersalesIng},
	StatePartShipped:   {StateShipped, StateReceived},
	StateShipped:       {StateReceived, StateAftersalesIng},
	StateAftersalesIng: {StateAftersalesOK, StateAftersalesFailed},
	StateAuditing:      {StateAcceptOrder, StateRejectOrder},
	StateAcceptOrder:   {StateExpired},
}

// terminal is the set of soft-terminal states: the record persists for
// audit but the lifecycle core drives no further transition from it.
var terminal = map[State]bool{
	StateCanceled:         true,
	StateReceived:         true,
	StateExpired:          true,
	StateAftersalesOK:     true,
	StateAftersalesFailed: true,
	StateRejectOrder:      true,
	StateException:        true,
}

// IsValid reports whether s is a known state value. No entity may hold
// anything else.
func (s State) IsValid() bool {
	if terminal[s] {
		return true
	}
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s is a soft-terminal state.
func (s State) IsTerminal() bool {
	return terminal[s]
}

// CanTransitionTo reports whether the edge s -> target is legal.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether an order in this state may be cancelled.
// Only unpaid orders qualify; everything else must go through
// after-sales.
func (s State) CanCancel() bool {
	return s == StateInit || s == StatePaying
}

// CancellableStates returns the source states of the cancel transition,
// in the form eligibility queries need.
func CancellableStates() []State {
	return []State{StateInit, StatePaying}
}

func (s State) String() string { return string(s) }
