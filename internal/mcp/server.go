// Package mcp exposes the field-mapping engine as a set of MCP tools
// over stdio. Each template path gets a long-lived mapping session; tool
// calls look the session up in the registry and delegate to it.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-mapper/internal/config"
	"github.com/a3tai/mcp-pdf-mapper/internal/filler"
	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	registry  *SessionRegistry
	filler    *filler.Filler
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, registry *SessionRegistry, pdfFiller *filler.Filler) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if pdfFiller == nil {
		return nil, fmt.Errorf("pdfFiller cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		registry:  registry,
		filler:    pdfFiller,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	templateFieldsTool := mcp.NewTool(
		"pdf_template_fields",
		mcp.WithDescription("List the form fields of a PDF template, grouped by category or semantic type, with current mappings"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
		mcp.WithString("view",
			mcp.Description("Grouping view: 'category' (default) or 'semantic'"),
		),
	)
	s.mcpServer.AddTool(templateFieldsTool, s.handleTemplateFields)

	mapFieldTool := mcp.NewTool(
		"pdf_map_field",
		mcp.WithDescription("Map a single template field to a client attribute"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Template field name"),
		),
		mcp.WithString("attribute",
			mcp.Required(),
			mcp.Description("Client attribute id (see pdf_mapper_info for the catalog)"),
		),
	)
	s.mcpServer.AddTool(mapFieldTool, s.handleMapField)

	clearFieldTool := mcp.NewTool(
		"pdf_clear_field",
		mcp.WithDescription("Remove the mapping of a single template field"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Template field name"),
		),
	)
	s.mcpServer.AddTool(clearFieldTool, s.handleClearField)

	mapGroupTool := mcp.NewTool(
		"pdf_map_group",
		mcp.WithDescription("Map every field of a group to the same client attribute"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
		mcp.WithString("group",
			mcp.Required(),
			mcp.Description("Group key in the selected view"),
		),
		mcp.WithString("attribute",
			mcp.Required(),
			mcp.Description("Client attribute id"),
		),
		mcp.WithString("view",
			mcp.Description("Grouping view the key belongs to: 'category' (default) or 'semantic'"),
		),
	)
	s.mcpServer.AddTool(mapGroupTool, s.handleMapGroup)

	mappingStatusTool := mcp.NewTool(
		"pdf_mapping_status",
		mcp.WithDescription("Report mapping completion for a template, overall and per group"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
	)
	s.mcpServer.AddTool(mappingStatusTool, s.handleMappingStatus)

	saveMappingsTool := mcp.NewTool(
		"pdf_save_mappings",
		mcp.WithDescription("Persist the template's current mappings, replacing any previously saved set"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
	)
	s.mcpServer.AddTool(saveMappingsTool, s.handleSaveMappings)

	fillTemplateTool := mcp.NewTool(
		"pdf_fill_template",
		mcp.WithDescription("Generate a filled PDF from the template, its mappings and a client record"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF template"),
		),
		mcp.WithString("client_data",
			mcp.Required(),
			mcp.Description(`JSON object of client attribute ids to values, e.g. {"first_name":"Jane","email":"jane@example.com"}`),
		),
	)
	s.mcpServer.AddTool(fillTemplateTool, s.handleFillTemplate)

	mapperInfoTool := mcp.NewTool(
		"pdf_mapper_info",
		mcp.WithDescription("Get server information, the client attribute catalog, and usage guidance"),
	)
	s.mcpServer.AddTool(mapperInfoTool, s.handleMapperInfo)
}

// Handler functions
func (s *Server) handleTemplateFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if view, ok := request.GetArguments()["view"].(string); ok && view != "" {
		mode, err := parseViewMode(view)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		session.SwitchViewMode(mode)
	}

	return mcp.NewToolResultText(s.formatTemplateFields(path, session)), nil
}

func (s *Server) handleMapField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attribute, err := request.RequireString("attribute")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := session.EditField(field, schema.AttributeID(attribute)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	overall := session.OverallStatus()
	responseText := fmt.Sprintf("Mapped field %q to attribute %q\n", field, attribute)
	responseText += formatCompletion("Overall", overall)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleClearField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session.ClearField(field)

	responseText := fmt.Sprintf("Cleared mapping of field %q\n", field)
	responseText += formatCompletion("Overall", session.OverallStatus())
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleMapGroup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	group, err := request.RequireString("group")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attribute, err := request.RequireString("attribute")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if view, ok := request.GetArguments()["view"].(string); ok && view != "" {
		mode, err := parseViewMode(view)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		session.SwitchViewMode(mode)
	}

	applied, err := session.EditGroup(group, schema.AttributeID(attribute))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Mapped %d field(s) of group %q to attribute %q\n", applied, group, attribute)
	responseText += formatCompletion("Group", session.GroupStatus(group))
	responseText += formatCompletion("Overall", session.OverallStatus())
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleMappingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode, active := session.ActiveView()
	responseText := fmt.Sprintf("Mapping status for: %s\n", path)
	responseText += fmt.Sprintf("State: %s\n", session.State())
	responseText += fmt.Sprintf("View: %s (active group: %s)\n\n", mode, active)
	responseText += formatCompletion("Overall", session.OverallStatus())
	for _, key := range session.GroupKeys() {
		responseText += formatCompletion(key, session.GroupStatus(key))
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSaveMappings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := session.Save(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	overall := session.OverallStatus()
	responseText := fmt.Sprintf("Saved %d mapping(s) for template: %s\n", overall.Mapped, path)
	responseText += formatCompletion("Overall", overall)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleFillTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clientJSON, err := request.RequireString("client_data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := parseClientData(clientJSON)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := s.registry.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	values := filler.ResolveValues(session.Catalog(), session.Mappings(), data)
	outputPath, err := s.filler.Fill(ctx, path, values)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Generated filled PDF: %s\n", outputPath)
	responseText += fmt.Sprintf("Fields filled: %d\n", len(values))
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleMapperInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	responseText := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	responseText += fmt.Sprintf("Template directory: %s\n", s.config.TemplateDirectory)
	responseText += fmt.Sprintf("Output directory: %s\n", s.config.OutputDirectory)
	responseText += fmt.Sprintf("Storage backend: %s\n", s.config.StoreBackend)
	responseText += fmt.Sprintf("Max template size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	responseText += fmt.Sprintf("Active sessions: %d\n\n", s.registry.Len())

	responseText += fmt.Sprintf("Client attributes (%d):\n", schema.Count())
	for _, attr := range schema.Attributes() {
		responseText += fmt.Sprintf("  %-16s %s\n", attr.ID, attr.Label)
	}

	responseText += "\nAvailable tools:\n"
	responseText += "  pdf_template_fields  List template fields with groups and mappings\n"
	responseText += "  pdf_map_field        Map one field to an attribute\n"
	responseText += "  pdf_clear_field      Remove a field mapping\n"
	responseText += "  pdf_map_group        Map a whole group to an attribute\n"
	responseText += "  pdf_mapping_status   Show completion percentages\n"
	responseText += "  pdf_save_mappings    Persist the current mappings\n"
	responseText += "  pdf_fill_template    Generate a filled PDF from client data\n"
	responseText += "\nMap fields with pdf_map_field or pdf_map_group, check progress with pdf_mapping_status, "
	responseText += "then persist with pdf_save_mappings before filling documents."

	return mcp.NewToolResultText(responseText), nil
}

// Formatting helpers

func (s *Server) formatTemplateFields(path string, session *mapping.Session) string {
	mode, active := session.ActiveView()

	text := fmt.Sprintf("Template: %s\n", path)
	text += fmt.Sprintf("View: %s (active group: %s)\n", mode, active)

	c := session.Catalog()
	if c == nil || c.Len() == 0 {
		text += "\nNo form fields found in this template.\n"
		return text
	}
	text += fmt.Sprintf("Fields: %d\n", c.Len())

	mappings := session.Mappings()
	for _, key := range session.GroupKeys() {
		status := session.GroupStatus(key)
		text += fmt.Sprintf("\nGroup %q (%d/%d mapped, %d%%):\n",
			key, status.Mapped, status.Total, status.Percentage)
		for _, name := range session.GroupFields(key) {
			fd, ok := c.Field(name)
			if !ok {
				continue
			}
			line := fmt.Sprintf("  %s (%s)", name, fd.DisplayName)
			if fd.Classified() {
				line += fmt.Sprintf(" [%s %.2f %s]", fd.SemanticType, fd.Confidence, schema.Tier(fd.Confidence))
			}
			if attr, mapped := mappings[name]; mapped {
				line += fmt.Sprintf(" -> %s", attr)
			}
			text += line + "\n"
		}
	}
	text += "\n" + formatCompletion("Overall", session.OverallStatus())
	return text
}

func formatCompletion(label string, c mapping.Completion) string {
	return fmt.Sprintf("%s: %d/%d mapped (%d%%)\n", label, c.Mapped, c.Total, c.Percentage)
}

func parseViewMode(view string) (mapping.ViewMode, error) {
	switch view {
	case "category":
		return mapping.ViewByCategory, nil
	case "semantic":
		return mapping.ViewBySemantic, nil
	default:
		return mapping.ViewByCategory, fmt.Errorf("view must be 'category' or 'semantic', got %q", view)
	}
}

// parseClientData decodes a JSON object of attribute ids to values and
// rejects ids outside the client attribute catalog.
func parseClientData(clientJSON string) (filler.ClientData, error) {
	var raw map[string]string
	if err := json.Unmarshal([]byte(clientJSON), &raw); err != nil {
		return nil, fmt.Errorf("client_data must be a JSON object of strings: %w", err)
	}

	unknown := make([]string, 0)
	data := make(filler.ClientData, len(raw))
	for id, value := range raw {
		attrID := schema.AttributeID(id)
		if !schema.Valid(attrID) {
			unknown = append(unknown, id)
			continue
		}
		data[attrID] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown client attribute(s): %v", unknown)
	}
	return data, nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF mapper MCP server in stdio mode")
		log.Printf("Template directory: %s", s.config.TemplateDirectory)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// For now, we'll just use stdio mode since the mark3labs library
	// handles the transport differently
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
