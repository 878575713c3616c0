package workflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RahulDas-dev/invoice-parser/models"
)

// ErrNoInvoiceFound is the normal terminal outcome for a document without invoice pages.
var ErrNoInvoiceFound = errors.New("no invoice found in the document")

// State is one step of a document run.
type State int

const (
	Start State = iota
	RenderPages
	ExtractText
	Reject
	FormatSimple
	GroupPages
	FormatGrouped
	Aggregate
	Done
)

var stateNames = [...]string{
	Start:         "Start",
	RenderPages:   "RenderPages",
	ExtractText:   "ExtractText",
	Reject:        "Reject",
	FormatSimple:  "FormatSimple",
	GroupPages:    "GroupPages",
	FormatGrouped: "FormatGrouped",
	Aggregate:     "Aggregate",
	Done:          "Done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	Start:         {RenderPages},
	RenderPages:   {ExtractText},
	ExtractText:   {Reject, FormatSimple, GroupPages},
	Reject:        {Done},
	FormatSimple:  {Done},
	GroupPages:    {FormatGrouped},
	FormatGrouped: {Aggregate},
	Aggregate:     {Done},
}

// CanTransition reports whether the machine may move from one state to the next.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// StageError records the state a run failed in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s| %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// WorkflowState is the introspectable state of one run. It is owned by a single run.
type WorkflowState struct {
	RunID    string
	State    State
	Route    Route
	Pages    []models.PageRecord
	Groups   []models.PageGroup
	Invoices []models.Invoice
	Tokens   []models.TokenCount
	// Error is "<Stage>| <message>" when the run failed.
	Error string
	// Visited lists the states in the order they were entered.
	Visited []State
}

// Result converts the state into the published run result.
func (s *WorkflowState) Result() models.RunResult {
	return models.RunResult{
		RunID:    s.RunID,
		Route:    s.Route.String(),
		Pages:    s.Pages,
		Groups:   s.Groups,
		Invoices: s.Invoices,
		Tokens:   s.Tokens,
		Error:    s.Error,
	}
}
