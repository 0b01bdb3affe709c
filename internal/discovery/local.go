package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// MappingLoader supplies the persisted mappings for a template so a
// discovery response can seed the session store.
type MappingLoader interface {
	LoadMappings(ctx context.Context, templateID string) (map[string]schema.AttributeID, error)
}

// LocalService discovers fields by reading the template PDF directly:
// AcroForm extraction via pdfcpu, then display-name normalization,
// category bucketing and semantic fingerprinting by the rule tables.
type LocalService struct {
	maxFileSize int64
	loader      MappingLoader
}

// NewLocalService creates a local discovery service. loader may be nil,
// in which case sessions start with no persisted mappings.
func NewLocalService(maxFileSize int64, loader MappingLoader) *LocalService {
	return &LocalService{
		maxFileSize: maxFileSize,
		loader:      loader,
	}
}

// DiscoverFields implements mapping.Discoverer. The template id is the
// path of the template PDF.
func (s *LocalService) DiscoverFields(ctx context.Context, templatePath string) (*mapping.DiscoveryResult, error) {
	if err := s.validateTemplate(templatePath); err != nil {
		return nil, err
	}

	names, err := extractFieldNames(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract form fields: %w", err)
	}

	fields := make(map[string]mapping.RawField, len(names))
	order := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := fields[name]; dup {
			continue
		}
		fields[name] = mapping.RawField{
			DisplayName:         normalizeFieldName(name),
			Category:            categorizeField(name),
			SemanticFingerprint: fingerprintField(name),
		}
		order = append(order, name)
	}

	mappings := map[string]schema.AttributeID{}
	if s.loader != nil {
		persisted, err := s.loader.LoadMappings(ctx, templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted mappings: %w", err)
		}
		if persisted != nil {
			mappings = persisted
		}
	}

	return &mapping.DiscoveryResult{
		Order:    order,
		Fields:   fields,
		Mappings: mappings,
	}, nil
}

// validateTemplate checks the template is a readable PDF before pdfcpu
// touches it, so the common failure modes produce clear messages.
func (s *LocalService) validateTemplate(templatePath string) error {
	if templatePath == "" {
		return fmt.Errorf("template path cannot be empty")
	}

	fileInfo, err := os.Stat(templatePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("template does not exist: %s", templatePath)
	}
	if err != nil {
		return fmt.Errorf("cannot access template: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("template path is a directory, not a file: %s", templatePath)
	}
	if !strings.HasSuffix(strings.ToLower(templatePath), ".pdf") {
		return fmt.Errorf("template is not a PDF: %s", templatePath)
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("template is empty: %s", templatePath)
	}
	if s.maxFileSize > 0 && fileInfo.Size() > s.maxFileSize {
		return fmt.Errorf("template too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), s.maxFileSize)
	}

	f, _, err := pdf.Open(templatePath)
	if err != nil {
		return fmt.Errorf("invalid PDF template: %w", err)
	}
	defer f.Close()

	return nil
}

// extractFieldNames walks the AcroForm Fields array and returns the
// terminal field names in document order. A document without an AcroForm
// yields an empty list, not an error.
func extractFieldNames(templatePath string) ([]string, error) {
	file, err := os.Open(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}

	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}

	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var names []string
	for i, fieldRef := range fieldsArray {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}

		name := ""
		if nameObj, found := fieldDict.Find("T"); found {
			if n, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
				name = n
			}
		}
		if name == "" {
			name = fmt.Sprintf("field_%d", i)
		}
		names = append(names, name)
	}

	return names, nil
}
