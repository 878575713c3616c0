package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/models"
)

// Models names the model used for each kind of call.
type Models struct {
	Extract string
	Group   string
	Format  string
}

// Client implements the page extraction, structuring and grouping-proposal calls on the OpenAI
// Responses API. It is safe for concurrent use.
type Client struct {
	api     openai.Client
	models  Models
	limiter *Limiter
	log     logger.Logger
}

func NewClient(apiKey string, m Models, limiter *Limiter, log logger.Logger, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		api:     openai.NewClient(opts...),
		models:  m,
		limiter: limiter,
		log:     log,
	}
}

func (c *Client) respond(
	ctx context.Context,
	model string,
	instructions string,
	content responses.ResponseInputMessageContentListParam,
	format *responses.ResponseFormatTextConfigUnionParam,
	estimatedTokens int,
) (*responses.Response, error) {
	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(model),
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, "user"),
			},
		},
	}
	if format != nil {
		params.Text = responses.ResponseTextConfigParam{Format: *format}
	}
	return RateLimitedCall(ctx, c.limiter, estimatedTokens, func(ctx context.Context) (*responses.Response, error) {
		return c.api.Responses.New(ctx, params)
	})
}

func usage(model, pageRef string, resp *responses.Response) models.TokenCount {
	return models.TokenCount{
		ModelName:      model,
		PageRef:        pageRef,
		RequestTokens:  resp.Usage.InputTokens,
		ResponseTokens: resp.Usage.OutputTokens,
	}
}

// Extract transcribes one rendered page and parses its metadata block.
func (c *Client) Extract(ctx context.Context, page models.RenderedPage) (models.PageExtraction, error) {
	encoded := base64.StdEncoding.EncodeToString(page.Data)
	dataURL := "data:" + page.MIMEType + ";base64," + encoded

	var input responses.ResponseInputContentUnionParam
	if page.MIMEType == "application/pdf" {
		input = responses.ResponseInputContentUnionParam{
			OfInputFile: &responses.ResponseInputFileParam{
				FileData: openai.String(dataURL),
				Filename: openai.String(fmt.Sprintf("page-%d.pdf", page.Index)),
			},
		}
	} else {
		input = responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				ImageURL: openai.String(dataURL),
				Detail:   responses.ResponseInputImageDetailHigh,
			},
		}
	}

	c.log.Debug("Calling OpenAI API for page %d extraction", page.Index)
	resp, err := c.respond(ctx, c.models.Extract, extractInstructions,
		responses.ResponseInputMessageContentListParam{
			input,
			responses.ResponseInputContentParamOfInputText(extractUserMessage),
		},
		nil, estimatedTokensPerPage)
	if err != nil {
		return models.PageExtraction{}, fmt.Errorf("failed to extract page %d: %w", page.Index, err)
	}

	text, meta := documents.SplitExtraction(page.Index, resp.OutputText())
	return models.PageExtraction{
		Text:     text,
		Metadata: meta,
		Usage:    usage(c.models.Extract, models.PageRef(page.Index), resp),
	}, nil
}

func invoiceFormat(name string) *responses.ResponseFormatTextConfigUnionParam {
	f := responses.ResponseFormatTextConfigParamOfJSONSchema(name, invoiceSchema)
	return &f
}

func (c *Client) decodeInvoice(raw string) (*models.Invoice, error) {
	if err := validateJSON(compiledInvoice, []byte(raw)); err != nil {
		return nil, err
	}
	var inv models.Invoice
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice: %w", err)
	}
	inv.Normalize()
	return &inv, nil
}

// StructurePage turns one page transcription into an invoice record tagged with the page index.
func (c *Client) StructurePage(ctx context.Context, page models.PageRecord) (*models.Invoice, models.TokenCount, error) {
	c.log.Debug("Calling OpenAI API to structure page %d", page.Index)
	resp, err := c.respond(ctx, c.models.Format, structureInstructions,
		responses.ResponseInputMessageContentListParam{
			responses.ResponseInputContentParamOfInputText(page.Text),
		},
		invoiceFormat("invoice"), estimatedTokensPerPage)
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("failed to structure page %d: %w", page.Index, err)
	}
	inv, err := c.decodeInvoice(resp.OutputText())
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("page %d: %w", page.Index, err)
	}
	inv.PageNo = strconv.Itoa(page.Index)
	return inv, usage(c.models.Format, models.PageRef(page.Index), resp), nil
}

// StructureGroup structures the concatenated transcriptions of a multi-page group in one call.
// pages must be the group's pages in ascending order.
func (c *Client) StructureGroup(ctx context.Context, group models.PageGroup, pages []models.PageRecord) (*models.Invoice, models.TokenCount, error) {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	hints, err := json.Marshal(group.Details)
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("failed to encode group details: %w", err)
	}

	c.log.Debug("Calling OpenAI API to structure group %s (%d pages)", group.Name, len(pages))
	resp, err := c.respond(ctx, c.models.Format, structureGroupInstructions,
		responses.ResponseInputMessageContentListParam{
			responses.ResponseInputContentParamOfInputText(strings.Join(texts, "\n")),
			responses.ResponseInputContentParamOfInputText("Field hints (page numbers): " + string(hints)),
		},
		invoiceFormat("grouped_invoice"), estimatedTokensPerPage*len(pages))
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("failed to structure group %s: %w", group.Name, err)
	}
	inv, err := c.decodeInvoice(resp.OutputText())
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("group %s: %w", group.Name, err)
	}
	inv.PageNo = group.PageNo()
	return inv, usage(c.models.Format, group.PageNo(), resp), nil
}

type proposalResponse struct {
	Groups []struct {
		Name    string         `json:"group_name"`
		Pages   []string       `json:"pages"`
		Details map[string]any `json:"details"`
	} `json:"groups"`
}

// ProposeGroups asks the grouping model for a partition of the pages based on their metadata.
// The proposal is not validated against the page set; callers do that.
func (c *Client) ProposeGroups(ctx context.Context, pages []models.PageRecord) (models.GroupProposal, models.TokenCount, error) {
	byRef := make(map[string]models.PageMetadata, len(pages))
	indices := make([]string, 0, len(pages))
	for _, p := range pages {
		byRef[models.PageRef(p.Index)] = p.Metadata
		indices = append(indices, strconv.Itoa(p.Index))
	}
	payload, err := json.MarshalIndent(byRef, "", "  ")
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("failed to encode page metadata: %w", err)
	}

	format := responses.ResponseFormatTextConfigParamOfJSONSchema("page_groups", proposalSchema)
	resp, err := c.respond(ctx, c.models.Group, proposalInstructions,
		responses.ResponseInputMessageContentListParam{
			responses.ResponseInputContentParamOfInputText("Group these pages into invoices:\n" + string(payload)),
		},
		&format, estimatedTokensPerPage)
	if err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("failed to propose groups: %w", err)
	}

	raw := resp.OutputText()
	if err := validateJSON(compiledProposal, []byte(raw)); err != nil {
		return nil, models.TokenCount{}, err
	}
	var decoded proposalResponse
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, models.TokenCount{}, fmt.Errorf("failed to decode proposal: %w", err)
	}

	proposal := make(models.GroupProposal, len(decoded.Groups))
	for _, g := range decoded.Groups {
		if _, dup := proposal[g.Name]; dup {
			return nil, models.TokenCount{}, errors.New("proposal repeats group name " + g.Name)
		}
		proposal[g.Name] = models.ProposedGroup{Pages: g.Pages, Details: g.Details}
	}
	return proposal, usage(c.models.Group, strings.Join(indices, "-"), resp), nil
}
