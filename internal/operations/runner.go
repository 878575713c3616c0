package operations

import (
	"github.com/RahulDas-dev/invoice-parser/internal/config"
	"github.com/RahulDas-dev/invoice-parser/internal/documents"
	"github.com/RahulDas-dev/invoice-parser/internal/llm"
	"github.com/RahulDas-dev/invoice-parser/internal/logger"
	"github.com/RahulDas-dev/invoice-parser/internal/workflow"
)

// NewController wires the OpenAI client and the renderer selected by cfg into a workflow
// controller.
func NewController(cfg config.Config, log logger.Logger) (*workflow.Controller, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	limiter := llm.NewLimiter(cfg.TokensPerSecond, cfg.TokenBurst, cfg.MaxRetries, log.With("llm"))
	client := llm.NewClient(cfg.OpenAIAPIKey, llm.Models{
		Extract: cfg.ExtractModel,
		Group:   cfg.GrouperModel,
		Format:  cfg.FormatterModel,
	}, limiter, log.With("llm"))

	var renderer workflow.Renderer
	if cfg.RenderMode == config.RenderPDF {
		renderer = documents.NewPDFPageRenderer(log.With("render"))
	} else {
		renderer = documents.NewRasterRenderer(documents.RenderOptions{
			DPI:       cfg.RenderDPI,
			MaxWidth:  cfg.MaxImageWidth,
			MaxHeight: cfg.MaxImageHeight,
			Format:    cfg.ImageFormat,
		}, log.With("render"))
	}

	return workflow.New(cfg, workflow.Collaborators{
		Renderer:   renderer,
		Extractor:  client,
		Structurer: client,
		Proposer:   client,
	}, log)
}
