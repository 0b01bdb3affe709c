package mcp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-mapper/internal/config"
	"github.com/a3tai/mcp-pdf-mapper/internal/filler"
	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// stubDiscoverer serves one canned result for every template
type stubDiscoverer struct {
	result *mapping.DiscoveryResult
	err    error
	calls  int
}

func (d *stubDiscoverer) DiscoverFields(ctx context.Context, templateID string) (*mapping.DiscoveryResult, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

// stubPersister records saved snapshots per template
type stubPersister struct {
	mu    sync.Mutex
	saved map[string]map[string]schema.AttributeID
	err   error
}

func (p *stubPersister) SaveMappings(ctx context.Context, templateID string, mappings map[string]schema.AttributeID) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		p.saved = make(map[string]map[string]schema.AttributeID)
	}
	p.saved[templateID] = mappings
	return nil
}

func templateFixture() *mapping.DiscoveryResult {
	return &mapping.DiscoveryResult{
		Order: []string{"email_1", "email_2", "phone_1"},
		Fields: map[string]mapping.RawField{
			"email_1": {DisplayName: "Email 1", Category: "contact_info", SemanticFingerprint: "email:0.9"},
			"email_2": {DisplayName: "Email 2", Category: "contact_info", SemanticFingerprint: "email:0.6"},
			"phone_1": {DisplayName: "Phone", Category: "contact_info", SemanticFingerprint: "phone:0.8"},
		},
		Mappings: map[string]schema.AttributeID{},
	}
}

func testServer(t *testing.T, d mapping.Discoverer, p mapping.Persister) *Server {
	t.Helper()

	cfg := &config.Config{
		Mode:              "stdio",
		TemplateDirectory: t.TempDir(),
		OutputDirectory:   t.TempDir(),
		StoreBackend:      "file",
		Version:           "1.0.0",
		ServerName:        "test-mapper",
		LogLevel:          "info",
		MaxFileSize:       1024 * 1024,
	}

	pdfFiller, err := filler.New(cfg.OutputDirectory)
	require.NoError(t, err)

	srv, err := NewServer(cfg, NewSessionRegistry(d, p), pdfFiller)
	require.NoError(t, err)
	return srv
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	t.Fatal("expected text content in tool result")
	return ""
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	cfg := &config.Config{ServerName: "test", Version: "1.0.0"}

	pdfFiller, err := filler.New(t.TempDir())
	require.NoError(t, err)

	_, err = NewServer(cfg, nil, pdfFiller)
	assert.Error(t, err)

	_, err = NewServer(cfg, NewSessionRegistry(&stubDiscoverer{}, &stubPersister{}), nil)
	assert.Error(t, err)
}

func TestHandleTemplateFields(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleTemplateFields(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/form.pdf"}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "View: category")
	assert.Contains(t, text, `Group "contact_info"`)
	assert.Contains(t, text, "email_1 (Email 1)")
	assert.Contains(t, text, "[email 0.90 high]")
	assert.Contains(t, text, "Overall: 0/3 mapped (0%)")
}

func TestHandleTemplateFieldsSemanticView(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleTemplateFields(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/form.pdf", "view": "semantic"}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "View: semantic")
	assert.Contains(t, text, `Group "email"`)
	assert.NotContains(t, text, `Group "phone"`, "singleton semantic groups are not shown")
}

func TestHandleTemplateFieldsInvalidView(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleTemplateFields(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/form.pdf", "view": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleTemplateFieldsDiscoveryFailure(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{err: errors.New("no such template")}, &stubPersister{})

	result, err := srv.handleTemplateFields(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/missing.pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no such template")
}

func TestHandleMapFieldAndClear(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleMapField(context.Background(), callRequest(map[string]interface{}{
		"path":      "/tmpl/form.pdf",
		"field":     "phone_1",
		"attribute": "phone_number",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Overall: 1/3 mapped (33%)")

	result, err = srv.handleClearField(context.Background(), callRequest(map[string]interface{}{
		"path":  "/tmpl/form.pdf",
		"field": "phone_1",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Overall: 0/3 mapped (0%)")
}

func TestHandleMapFieldUnknownField(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleMapField(context.Background(), callRequest(map[string]interface{}{
		"path":      "/tmpl/form.pdf",
		"field":     "missing",
		"attribute": "email",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleMapGroupSemantic(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleMapGroup(context.Background(), callRequest(map[string]interface{}{
		"path":      "/tmpl/form.pdf",
		"group":     "email",
		"attribute": "email",
		"view":      "semantic",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Mapped 2 field(s)")
	assert.Contains(t, text, "Group: 2/2 mapped (100%)")
	assert.Contains(t, text, "Overall: 2/3 mapped (67%)")
}

func TestHandleMapGroupUnknownKey(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleMapGroup(context.Background(), callRequest(map[string]interface{}{
		"path":      "/tmpl/form.pdf",
		"group":     "banking_info",
		"attribute": "email",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleMappingStatus(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	_, err := srv.handleMapField(context.Background(), callRequest(map[string]interface{}{
		"path":      "/tmpl/form.pdf",
		"field":     "email_1",
		"attribute": "email",
	}))
	require.NoError(t, err)

	result, err := srv.handleMappingStatus(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/form.pdf"}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "State: ready")
	assert.Contains(t, text, "Overall: 1/3 mapped (33%)")
	assert.Contains(t, text, "contact_info: 1/3 mapped (33%)")
}

func TestHandleSaveMappings(t *testing.T) {
	p := &stubPersister{}
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, p)

	_, err := srv.handleMapField(context.Background(), callRequest(map[string]interface{}{
		"path":      "/tmpl/form.pdf",
		"field":     "email_1",
		"attribute": "email",
	}))
	require.NoError(t, err)

	result, err := srv.handleSaveMappings(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/form.pdf"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Saved 1 mapping(s)")
	assert.Equal(t, map[string]schema.AttributeID{"email_1": schema.AttrEmail}, p.saved["/tmpl/form.pdf"])
}

func TestHandleSaveMappingsFailure(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()},
		&stubPersister{err: errors.New("disk full")})

	result, err := srv.handleSaveMappings(context.Background(),
		callRequest(map[string]interface{}{"path": "/tmpl/form.pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "disk full")
}

func TestHandleFillTemplateRejectsUnknownAttribute(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleFillTemplate(context.Background(), callRequest(map[string]interface{}{
		"path":        "/tmpl/form.pdf",
		"client_data": `{"email":"jane@example.com","shoe_size":"42"}`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "shoe_size")
}

func TestHandleFillTemplateRejectsMalformedJSON(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleFillTemplate(context.Background(), callRequest(map[string]interface{}{
		"path":        "/tmpl/form.pdf",
		"client_data": `not json`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleMapperInfo(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	result, err := srv.handleMapperInfo(context.Background(), callRequest(nil))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "test-mapper v1.0.0")
	assert.Contains(t, text, "Client attributes (18)")
	assert.Contains(t, text, "first_name")
	assert.Contains(t, text, "pdf_save_mappings")
}

func TestSessionRegistryReusesSessions(t *testing.T) {
	d := &stubDiscoverer{result: templateFixture()}
	r := NewSessionRegistry(d, &stubPersister{})

	s1, err := r.Get(context.Background(), "/tmpl/a.pdf")
	require.NoError(t, err)
	s2, err := r.Get(context.Background(), "/tmpl/a.pdf")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, d.calls, "the template is discovered once, not per call")
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistryRetriesFailedLoad(t *testing.T) {
	d := &stubDiscoverer{result: templateFixture(), err: errors.New("transient")}
	r := NewSessionRegistry(d, &stubPersister{})

	_, err := r.Get(context.Background(), "/tmpl/a.pdf")
	require.Error(t, err)

	d.err = nil
	s, err := r.Get(context.Background(), "/tmpl/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, mapping.StateReady, s.State())
}

func TestSessionRegistryReload(t *testing.T) {
	d := &stubDiscoverer{result: templateFixture()}
	r := NewSessionRegistry(d, &stubPersister{})

	s1, err := r.Get(context.Background(), "/tmpl/a.pdf")
	require.NoError(t, err)
	require.NoError(t, s1.EditField("email_1", schema.AttrEmail))

	s2, err := r.Reload(context.Background(), "/tmpl/a.pdf")
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Empty(t, s2.Mappings(), "a reload starts from the persisted state")
}

func TestParseViewMode(t *testing.T) {
	tests := []struct {
		input   string
		want    mapping.ViewMode
		wantErr bool
	}{
		{"category", mapping.ViewByCategory, false},
		{"semantic", mapping.ViewBySemantic, false},
		{"both", mapping.ViewByCategory, true},
		{"", mapping.ViewByCategory, true},
	}

	for _, tt := range tests {
		t.Run("view_"+tt.input, func(t *testing.T) {
			mode, err := parseViewMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestParseClientData(t *testing.T) {
	data, err := parseClientData(`{"email":"jane@example.com","first_name":"Jane"}`)
	require.NoError(t, err)
	assert.Equal(t, filler.ClientData{
		schema.AttrEmail:     "jane@example.com",
		schema.AttrFirstName: "Jane",
	}, data)
}

func TestMissingRequiredArgument(t *testing.T) {
	srv := testServer(t, &stubDiscoverer{result: templateFixture()}, &stubPersister{})

	for name, handler := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"pdf_template_fields": srv.handleTemplateFields,
		"pdf_map_field":       srv.handleMapField,
		"pdf_clear_field":     srv.handleClearField,
		"pdf_map_group":       srv.handleMapGroup,
		"pdf_mapping_status":  srv.handleMappingStatus,
		"pdf_save_mappings":   srv.handleSaveMappings,
		"pdf_fill_template":   srv.handleFillTemplate,
	} {
		t.Run(name, func(t *testing.T) {
			result, err := handler(context.Background(), callRequest(map[string]interface{}{}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.True(t, strings.Contains(strings.ToLower(resultText(t, result)), "required") ||
				strings.Contains(strings.ToLower(resultText(t, result)), "path"))
		})
	}
}
