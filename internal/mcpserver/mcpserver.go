// Package mcpserver exposes the orchestrator's Apply, DryRun, Revert
// and ListRuns operations as MCP tools, so astpatch can run as a tool
// server for an MCP-capable agent instead of (or alongside) its CLI.
// The tool and parameter shapes mirror the Params/Arguments
// conventions mcp/client.go uses on the client side of the same
// protocol.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"astpatch.dev/astpatch/internal/orchestrator"
)

// configOverrideOpts are the mcp.ToolOption builders shared by every
// tool that runs a pipeline, mirroring the CLI's -compile-check,
// -keep-runs, -runs-dir-name, -context-lines and
// -rollback-on-compile-fail flags.
var configOverrideOpts = []mcp.ToolOption{
	mcp.WithString("compile_check", mcp.Description("Shell command template run to verify a touched file still compiles; {path} is replaced with the file's path. Empty disables the check. Defaults to the server's configured command.")),
	mcp.WithNumber("keep_runs", mcp.Description("Number of most recent run directories to keep after a successful apply. Defaults to the server's configured value.")),
	mcp.WithString("runs_dir_name", mcp.Description("Directory under the project root where runs are persisted. Defaults to the server's configured value.")),
	mcp.WithNumber("context_lines", mcp.Description("Lines of surrounding source quoted in anchor-mismatch messages. Defaults to the server's configured value.")),
	mcp.WithBoolean("rollback_on_compile_fail", mcp.Description("Restore a touched file's pre-edit content when it fails the compile check. Defaults to the server's configured value.")),
}

// orchestratorFor returns an *orchestrator.Orchestrator reflecting any
// config overrides present in req, sharing every other collaborator
// with s.orch. Orchestrator holds its config by value, so this is a
// cheap shallow copy, not a rebuild.
func (s *Server) orchestratorFor(req mcp.CallToolRequest) *orchestrator.Orchestrator {
	o := *s.orch
	o.Config.CompileCheckCommand = req.GetString("compile_check", o.Config.CompileCheckCommand)
	o.Config.KeepRuns = req.GetInt("keep_runs", o.Config.KeepRuns)
	o.Config.RunsDirName = req.GetString("runs_dir_name", o.Config.RunsDirName)
	o.Config.DefaultContextLines = req.GetInt("context_lines", o.Config.DefaultContextLines)
	o.Config.RollbackOnCompileFail = req.GetBool("rollback_on_compile_fail", o.Config.RollbackOnCompileFail)
	return &o
}

// Server wraps an *orchestrator.Orchestrator as an MCP tool server.
type Server struct {
	orch *orchestrator.Orchestrator
	mcp  *server.MCPServer
}

// New builds an MCP server exposing orch's operations as tools.
func New(orch *orchestrator.Orchestrator, version string) *Server {
	s := &Server{
		orch: orch,
		mcp:  server.NewMCPServer("astpatch", version),
	}
	s.registerTools()
	return s
}

// ServeStdio runs the server over stdio until the transport's stdin is
// closed. Each tool call still gets its own per-request context from
// the mcp-go transport; callers that need a long-lived cancellation
// scope should close stdin to stop the loop.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	applyOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Apply a structural patch bundle to the host-language project rooted at the current editor file, snapshotting every touched file and verifying the result compiles."),
		mcp.WithString("bundle", mcp.Required(), mcp.Description("The bundle text: one or more directives and operations, spec-shaped (DEFAULT_FILE, operation headers, ANCHOR/context lines, replacement bodies).")),
	}, configOverrideOpts...)
	s.mcp.AddTool(mcp.NewTool("astpatch_apply", applyOpts...), s.handleApply)

	dryRunOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Preview a structural patch bundle without writing to disk, persisting a run, or running the compile check."),
		mcp.WithString("bundle", mcp.Required(), mcp.Description("The bundle text to preview.")),
	}, configOverrideOpts...)
	s.mcp.AddTool(mcp.NewTool("astpatch_dry_run", dryRunOpts...), s.handleDryRun)

	revertOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Restore every file a past run touched from that run's snapshots."),
		mcp.WithString("stamp", mcp.Required(), mcp.Description("The run stamp to revert, as returned by astpatch_apply or astpatch_list_runs.")),
	}, configOverrideOpts...)
	s.mcp.AddTool(mcp.NewTool("astpatch_revert", revertOpts...), s.handleRevert)

	s.mcp.AddTool(
		mcp.NewTool("astpatch_list_runs",
			mcp.WithDescription("List past run stamps under the project root, newest first."),
			mcp.WithString("runs_dir_name", mcp.Description("Directory under the project root where runs are persisted. Defaults to the server's configured value.")),
		),
		s.handleListRuns,
	)
}

func (s *Server) handleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bundle, err := requiredString(req, "bundle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.orchestratorFor(req).Apply(ctx, bundle)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(summary.RunPacket()), nil
}

func (s *Server) handleDryRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bundle, err := requiredString(req, "bundle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.orchestratorFor(req).DryRun(ctx, bundle)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(summary.RunPacket()), nil
}

func (s *Server) handleRevert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stamp, err := requiredString(req, "stamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.orchestratorFor(req).Revert(ctx, stamp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.Headline()), nil
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stamps, err := s.orchestratorFor(req).ListRuns()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(stamps) == 0 {
		return mcp.NewToolResultText("(no runs yet)"), nil
	}
	text := ""
	for _, stamp := range stamps {
		text += stamp + "\n"
	}
	return mcp.NewToolResultText(text), nil
}

func requiredString(req mcp.CallToolRequest, name string) (string, error) {
	v, ok := req.Params.Arguments.(map[string]any)[name]
	if !ok {
		return "", fmt.Errorf("mcpserver: missing required argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("mcpserver: argument %q must be a string", name)
	}
	return s, nil
}
