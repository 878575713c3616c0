// Package workflow runs one document through rendering, extraction, classification, grouping,
// structuring and aggregation as an explicit state machine.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RahulDas-dev/invoice-parser/internal/config"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/merge"
	"github.com/RahulDas-dev/invoice-parser/models"
)

type Renderer interface {
	Render(ctx context.Context, doc models.DocumentData) ([]models.RenderedPage, error)
}

type Extractor interface {
	Extract(ctx context.Context, page models.RenderedPage) (models.PageExtraction, error)
}

type Structurer interface {
	StructurePage(ctx context.Context, page models.PageRecord) (*models.Invoice, models.TokenCount, error)
	StructureGroup(ctx context.Context, group models.PageGroup, pages []models.PageRecord) (*models.Invoice, models.TokenCount, error)
}

type GroupProposer interface {
	ProposeGroups(ctx context.Context, pages []models.PageRecord) (models.GroupProposal, models.TokenCount, error)
}

// Collaborators are the external calls a run depends on. Proposer is only needed in proposal
// grouping mode.
type Collaborators struct {
	Renderer   Renderer
	Extractor  Extractor
	Structurer Structurer
	Proposer   GroupProposer
}

// Controller runs documents. It holds no per-run state and may run several documents at once.
type Controller struct {
	collab        Collaborators
	merger        merge.Merger
	maxConcurrent int
	groupingMode  string
	groupFormat   string
	log           logger.Logger
}

func New(cfg config.Config, collab Collaborators, log logger.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collab.Renderer == nil || collab.Extractor == nil || collab.Structurer == nil {
		return nil, errors.New("renderer, extractor and structurer are required")
	}
	if cfg.GroupingMode == config.GroupingProposal && collab.Proposer == nil {
		return nil, fmt.Errorf("%w: proposal grouping needs a group proposer", config.ErrInvalidConfig)
	}
	merger, err := merge.NewFromName(cfg.MergeStrategy)
	if err != nil {
		return nil, err
	}
	return &Controller{
		collab:        collab,
		merger:        merger,
		maxConcurrent: cfg.MaxConcurrent,
		groupingMode:  cfg.GroupingMode,
		groupFormat:   cfg.GroupFormat,
		log:           log,
	}, nil
}

type run struct {
	*Controller
	doc      models.DocumentData
	st       *WorkflowState
	ledger   TokenLedger
	rendered []models.RenderedPage
	combined map[int]*models.Invoice
	log      logger.Logger
}

// Run takes doc through the state machine. The returned state is never nil; on failure its Error
// field carries "<Stage>| <message>" and no invoices are published. A document without invoice
// pages ends in Reject and returns ErrNoInvoiceFound.
func (c *Controller) Run(ctx context.Context, doc models.DocumentData) (*WorkflowState, error) {
	st := &WorkflowState{RunID: uuid.NewString(), State: Start}
	r := &run{Controller: c, doc: doc, st: st, log: c.log.With("run=" + st.RunID)}
	r.log.Info("Starting run for %s (%s)", doc.Name, doc.Type)

	next := RenderPages
	for {
		if !CanTransition(st.State, next) {
			return r.fail(&StageError{Stage: st.State, Err: fmt.Errorf("illegal transition to %s", next)})
		}
		st.State = next
		st.Visited = append(st.Visited, next)
		if next == Done {
			break
		}

		var err error
		next, err = r.step(ctx, next)
		if err != nil {
			return r.fail(&StageError{Stage: st.State, Err: err})
		}
	}

	st.Tokens = r.ledger.Entries()
	if st.Route == NoInvoice {
		st.Error = (&StageError{Stage: Reject, Err: ErrNoInvoiceFound}).Error()
		r.log.Info("Run finished: no invoice found")
		return st, ErrNoInvoiceFound
	}
	r.log.Info("Run finished: %d invoices from %d pages", len(st.Invoices), len(st.Pages))
	return st, nil
}

func (r *run) fail(err *StageError) (*WorkflowState, error) {
	r.st.Error = err.Error()
	r.st.Invoices = nil
	r.st.Tokens = r.ledger.Entries()
	r.log.Error("Run failed: %s", r.st.Error)
	return r.st, err
}

func (r *run) step(ctx context.Context, s State) (State, error) {
	switch s {
	case RenderPages:
		return ExtractText, r.renderPages(ctx)
	case ExtractText:
		return r.extractText(ctx)
	case Reject:
		return Done, nil
	case FormatSimple:
		return Done, r.formatSimple(ctx)
	case GroupPages:
		return FormatGrouped, r.groupPages(ctx)
	case FormatGrouped:
		return Aggregate, r.formatGrouped(ctx)
	case Aggregate:
		return Done, r.aggregate()
	default:
		return Done, fmt.Errorf("no handler for state %s", s)
	}
}
