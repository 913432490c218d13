package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/logx"
	"github.com/hpungsan/mailsift/internal/ops"
	"github.com/hpungsan/mailsift/internal/report"
	"github.com/hpungsan/mailsift/internal/settings"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db   *sql.DB
	cfg  *config.Config
	sink *collect.Sink
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, sink *collect.Sink) *Handlers {
	return &Handlers{db: db, cfg: cfg, sink: sink}
}

// Request types for each tool

// ScanRequest represents the arguments for email_scan.
type ScanRequest struct {
	Sources           []string `json:"sources,omitempty"`
	Text              string   `json:"text,omitempty"`
	Kind              string   `json:"kind,omitempty"`
	CollectAllSources *bool    `json:"collect_all_sources,omitempty"`
	DryRun            bool     `json:"dry_run,omitempty"`
}

// CheckRequest represents the arguments for email_check.
type CheckRequest struct {
	Text string `json:"text"`
}

// ListRequest represents the arguments for email_list.
type ListRequest struct {
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// LatestRequest represents the arguments for email_latest.
type LatestRequest struct {
	Filter string `json:"filter,omitempty"`
}

// HistoryRequest represents the arguments for email_history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// StatsRequest represents the arguments for email_stats.
type StatsRequest struct {
	Top int `json:"top,omitempty"`
}

// CopyRequest represents the arguments for email_copy.
type CopyRequest struct {
	Scope  string `json:"scope,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// CopyOutput is the email_copy result.
type CopyOutput struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// ExportRequest represents the arguments for email_export.
type ExportRequest struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// ClearRequest represents the arguments for email_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// Handler implementations

// HandleScan handles the email_scan tool call.
func (h *Handlers) HandleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScanRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	scanInput := ops.ScanInput{
		Sources: input.Sources,
		Text:    input.Text,
		Kind:    input.Kind,
		DryRun:  input.DryRun,
		// stdin carries the protocol; "-" is refused by the reader.
		Stdin: nil,
	}
	if input.CollectAllSources != nil {
		stored, err := settings.Load(ctx, h.db)
		if err != nil {
			return errorResult(err), nil
		}
		stored.CollectAllSources = *input.CollectAllSources
		scanInput.Settings = &stored
	}

	ctx = logx.Component("mcp").WithContext(ctx)
	result, err := ops.Scan(ctx, h.db, h.sink, h.cfg, scanInput)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCheck handles the email_check tool call.
func (h *Handlers) HandleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Check(ops.CheckInput{Text: input.Text})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the email_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Filter: input.Filter,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLatest handles the email_latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LatestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(ctx, h.db, ops.LatestInput{Filter: input.Filter})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the email_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the email_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Stats(ctx, h.db, ops.StatsInput{Top: input.Top})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCopy handles the email_copy tool call.
func (h *Handlers) HandleCopy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CopyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	emails, err := ops.Emails(ctx, h.db, input.Scope, input.Filter)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(CopyOutput{Text: report.JoinText(emails), Count: len(emails)})
}

// HandleExport handles the email_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:   input.Path,
		Format: input.Format,
		Scope:  input.Scope,
		Filter: input.Filter,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the email_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !input.Confirm {
		return errorResult(errors.NewInvalidRequest("confirm must be true")), nil
	}

	result, err := ops.Clear(ctx, h.sink)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSettingsGet handles the settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.GetSettings(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSettingsUpdate handles the settings_update tool call.
func (h *Handlers) HandleSettingsUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[settings.Patch](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateSettings(ctx, h.db, input)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.SiftError
	if stderrors.As(err, &sErr) {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
