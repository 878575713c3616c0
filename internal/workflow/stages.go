package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/RahulDas-dev/invoice-parser/internal/config"
	"github.com/RahulDas-dev/invoice-parser/internal/grouping"
	"github.com/RahulDas-dev/invoice-parser/internal/llm"
	"github.com/RahulDas-dev/invoice-parser/models"
)

func (r *run) renderPages(ctx context.Context) error {
	pages, err := r.collab.Renderer.Render(ctx, r.doc)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("document has no pages")
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	for i := 1; i < len(pages); i++ {
		if pages[i].Index == pages[i-1].Index {
			return fmt.Errorf("renderer returned page %d twice", pages[i].Index)
		}
	}

	r.rendered = pages
	r.st.Pages = make([]models.PageRecord, len(pages))
	for i, p := range pages {
		r.st.Pages[i] = models.PageRecord{Index: p.Index, Width: p.Width, Height: p.Height}
	}
	r.log.Info("Rendered %d pages", len(pages))
	return nil
}

func (r *run) extractText(ctx context.Context) (State, error) {
	results, err := llm.ParallelProcess(ctx, r.rendered, r.maxConcurrent, r.log,
		func(ctx context.Context, _ int, page models.RenderedPage) (models.PageExtraction, error) {
			return r.collab.Extractor.Extract(ctx, page)
		})
	if err != nil {
		return Done, err
	}

	for i, res := range results {
		r.st.Pages[i].Text = res.Text
		r.st.Pages[i].Metadata = res.Metadata
		r.ledger.Append(res.Usage)
	}
	r.rendered = nil

	r.st.Route = Classify(r.st.Pages)
	r.log.Info("Extracted %d pages, route %s", len(results), r.st.Route)
	switch r.st.Route {
	case NoInvoice:
		return Reject, nil
	case Simple:
		return FormatSimple, nil
	default:
		return GroupPages, nil
	}
}

type structured struct {
	invoice *models.Invoice
	usage   models.TokenCount
}

// structurePages structures the given pages concurrently and commits the invoices and token
// usage only when every call succeeded.
func (r *run) structurePages(ctx context.Context, indices []int) error {
	pos := make(map[int]int, len(r.st.Pages))
	for i, p := range r.st.Pages {
		pos[p.Index] = i
	}

	results, err := llm.ParallelProcess(ctx, indices, r.maxConcurrent, r.log,
		func(ctx context.Context, _ int, index int) (structured, error) {
			inv, usage, err := r.collab.Structurer.StructurePage(ctx, r.st.Pages[pos[index]])
			return structured{inv, usage}, err
		})
	if err != nil {
		return err
	}
	for i, res := range results {
		r.st.Pages[pos[indices[i]]].Invoice = res.invoice
		r.ledger.Append(res.usage)
	}
	return nil
}

func (r *run) formatSimple(ctx context.Context) error {
	valid := InvoicePages(r.st.Pages)
	indices := make([]int, len(valid))
	for i, p := range valid {
		indices[i] = p.Index
	}
	if err := r.structurePages(ctx, indices); err != nil {
		return err
	}

	pos := make(map[int]int, len(r.st.Pages))
	for i, p := range r.st.Pages {
		pos[p.Index] = i
	}
	invoices := make([]models.Invoice, 0, len(valid))
	for _, index := range indices {
		inv := r.st.Pages[pos[index]].Invoice
		if inv == nil {
			return fmt.Errorf("page %d: structurer returned no invoice", index)
		}
		invoices = append(invoices, *inv)
	}
	r.st.Invoices = invoices
	return nil
}

func (r *run) groupPages(ctx context.Context) error {
	valid := InvoicePages(r.st.Pages)
	input := make([]grouping.Page, len(valid))
	for i, p := range valid {
		input[i] = grouping.Page{Index: p.Index, Metadata: p.Metadata}
	}

	if r.groupingMode == config.GroupingProposal {
		groups, err := r.proposedGroups(ctx, valid, input)
		if err == nil {
			r.st.Groups = groups
			r.log.Info("Accepted proposed grouping: %d groups", len(groups))
			return nil
		}
		r.log.Warn("Grouping proposal rejected, falling back to rules: %v", err)
	}

	groups, err := grouping.Group(input)
	if err != nil {
		return err
	}
	r.st.Groups = groups
	r.log.Info("Grouped %d pages into %d groups", len(input), len(groups))
	return nil
}

func (r *run) proposedGroups(ctx context.Context, valid []models.PageRecord, input []grouping.Page) ([]models.PageGroup, error) {
	proposal, usage, err := r.collab.Proposer.ProposeGroups(ctx, valid)
	if err != nil {
		return nil, err
	}
	r.ledger.Append(usage)
	return grouping.FromProposal(proposal, input)
}

func (r *run) recordsFor(group models.PageGroup) []models.PageRecord {
	byIndex := make(map[int]models.PageRecord, len(r.st.Pages))
	for _, p := range r.st.Pages {
		byIndex[p.Index] = p
	}
	out := make([]models.PageRecord, 0, len(group.Pages))
	for _, idx := range group.Pages {
		out = append(out, byIndex[idx])
	}
	return out
}

func (r *run) formatGrouped(ctx context.Context) error {
	if r.groupFormat != config.FormatCombined {
		var indices []int
		for _, g := range r.st.Groups {
			indices = append(indices, g.Pages...)
		}
		sort.Ints(indices)
		return r.structurePages(ctx, indices)
	}

	// Combined format: one call per multi-page group, per-page calls for the rest.
	var single []int
	var multi []int
	for gi, g := range r.st.Groups {
		if g.IsMultiPage() {
			multi = append(multi, gi)
		} else {
			single = append(single, g.Pages...)
		}
	}
	results, err := llm.ParallelProcess(ctx, multi, r.maxConcurrent, r.log,
		func(ctx context.Context, _ int, gi int) (structured, error) {
			g := r.st.Groups[gi]
			inv, usage, err := r.collab.Structurer.StructureGroup(ctx, g, r.recordsFor(g))
			return structured{inv, usage}, err
		})
	if err != nil {
		return err
	}
	if err := r.structurePages(ctx, single); err != nil {
		return err
	}

	r.combined = make(map[int]*models.Invoice, len(multi))
	for i, res := range results {
		r.combined[multi[i]] = res.invoice
		r.ledger.Append(res.usage)
	}
	return nil
}

func (r *run) aggregate() error {
	invoices := make([]models.Invoice, 0, len(r.st.Groups))
	for gi, g := range r.st.Groups {
		if inv, ok := r.combined[gi]; ok {
			if inv == nil {
				return fmt.Errorf("group %s: structurer returned no invoice", g.Name)
			}
			out := *inv
			out.PageNo = g.PageNo()
			invoices = append(invoices, out)
			continue
		}

		parts := make([]*models.Invoice, 0, len(g.Pages))
		for _, p := range r.recordsFor(g) {
			parts = append(parts, p.Invoice)
		}
		merged, err := r.merger.Merge(parts, g.Details)
		if err != nil {
			return fmt.Errorf("group %s: %w", g.Name, err)
		}
		invoices = append(invoices, merged)
	}
	r.st.Invoices = invoices
	r.log.Info("Aggregated %d groups with the %s strategy", len(r.st.Groups), r.merger.Kind())
	return nil
}
