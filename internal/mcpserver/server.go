// Package mcpserver exposes document extraction as MCP tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/docextract/internal/extract"
	"github.com/sells-group/docextract/internal/model"
	"github.com/sells-group/docextract/internal/pipeline"
	"github.com/sells-group/docextract/internal/present"
	"github.com/sells-group/docextract/internal/session"
	"github.com/sells-group/docextract/internal/upload"
)

// ServerName is advertised to MCP clients.
const ServerName = "docextract"

// Server registers the extraction tools on an MCP server.
type Server struct {
	pipeline  *pipeline.Pipeline
	presenter *present.Presenter
	mcp       *server.MCPServer
}

// New creates a Server with its tools registered.
func New(p *pipeline.Pipeline, pr *present.Presenter, version string) (*Server, error) {
	if p == nil {
		return nil, eris.New("mcpserver: pipeline is required")
	}
	if pr == nil {
		pr = present.New(p.Builder())
	}
	s := &Server{
		pipeline:  p,
		presenter: pr,
		mcp:       server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		"extract_document",
		mcp.WithDescription("Extract the fields of an identification document (RG, CNH, CPF). Falls back to a manual template when no API key is given or the provider fails."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a JPG, PNG or PDF file"),
		),
		mcp.WithString("provider",
			mcp.Description("AI provider: claude or gemini (default claude)"),
		),
		mcp.WithString("api_key",
			mcp.Description("Provider API key; omit for the manual template"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: text or json (default text)"),
		),
	)
	s.mcp.AddTool(extractTool, s.handleExtract)

	schemaTool := mcp.NewTool(
		"document_schema",
		mcp.WithDescription("List the document sections and fields the extractor knows"),
	)
	s.mcp.AddTool(schemaTool, s.handleSchema)
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcp); err != nil {
		return eris.Wrap(err, "mcpserver: serve stdio")
	}
	return nil
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := strings.ToLower(request.GetString("format", "text"))
	if format != "text" && format != "json" {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q", format)), nil
	}

	strategy, err := strategyFor(request.GetString("provider", string(model.ProviderClaude)), request.GetString("api_key", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	if info.IsDir() {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: is a directory", path)), nil
	}
	if err := s.pipeline.CheckSize(info.Size()); err != nil {
		var ve *upload.ValidationError
		if errors.As(err, &ve) {
			return mcp.NewToolResultError(ve.Message), nil
		}
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}

	res, f, err := s.pipeline.Process(ctx, filepath.Base(path), "", data, strategy)
	if err != nil {
		var ve *upload.ValidationError
		if errors.As(err, &ve) {
			return mcp.NewToolResultError(ve.Message), nil
		}
		return nil, err
	}

	zap.L().Info("mcpserver: extracted document",
		zap.String("file", f.Name),
		zap.String("source", string(res.Extraction.Source)),
	)

	if format == "json" {
		return s.jsonResult(res, f)
	}
	return s.textResult(res)
}

func (s *Server) textResult(res *pipeline.Result) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString(res.Notice.Message)
	sb.WriteString("\n")
	sb.WriteString(present.StatusBanner(res.Extraction).Text)
	sb.WriteString("\n\n")

	summary, err := s.presenter.PlainTextSummary(res.Extraction.Model)
	switch {
	case errors.Is(err, present.ErrEmptyResult):
		sb.WriteString("Nenhum campo preenchido.\n")
	case err != nil:
		return nil, err
	default:
		sb.WriteString(summary)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) jsonResult(res *pipeline.Result, f model.File) (*mcp.CallToolResult, error) {
	doc, err := s.presenter.ExportDocument(res.Extraction, f.Name)
	if errors.Is(err, present.ErrEmptyResult) {
		return mcp.NewToolResultError("⚠️ Nenhum dado para exportar."), nil
	}
	var buf bytes.Buffer
	if err := present.WriteJSON(&buf, doc); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) handleSchema(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(s.pipeline.Builder().Schema().Sections(), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "mcpserver: marshal schema")
	}
	return mcp.NewToolResultText(string(b)), nil
}

// strategyFor picks the manual strategy when no key is given and rejects
// keys that cannot belong to the provider.
func strategyFor(provider, apiKey string) (extract.Strategy, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return extract.Manual(), nil
	}
	p, err := model.ParseProvider(provider)
	if err != nil {
		return extract.Strategy{}, err
	}
	if err := session.ValidateKey(p, apiKey); err != nil {
		return extract.Strategy{}, err
	}
	return extract.Remote(p, apiKey), nil
}
