// Package filler generates filled PDFs from a template, a client record
// and the template's saved mappings. Explicitly mapped fields are filled
// first; unmapped fields that share a semantic type with a mapped field
// are then auto-filled with the same value when their fingerprint
// confidence is high enough.
package filler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// minAutoFillConfidence is the fingerprint confidence an unmapped field
// needs before it inherits a value from its semantic group.
const minAutoFillConfidence = 0.5

// ClientData holds one client's attribute values, keyed by attribute id.
type ClientData map[schema.AttributeID]string

// Filler writes generated PDFs into an output directory.
type Filler struct {
	outputDir string
}

// New creates the output directory if needed and returns a Filler rooted
// there.
func New(outputDir string) (*Filler, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Filler{outputDir: outputDir}, nil
}

// ResolveValues computes the field values to fill. Explicit mappings win:
// an explicitly mapped field is never auto-filled, and auto-fill only
// reaches fields in a multi-member semantic group whose own confidence is
// at least minAutoFillConfidence.
func ResolveValues(c *mapping.Catalog, mappings map[string]schema.AttributeID, data ClientData) map[string]string {
	values := make(map[string]string)

	for fieldName, attr := range mappings {
		if v, ok := data[attr]; ok {
			values[fieldName] = v
		}
	}

	groups := mapping.GroupBySemantics(c)
	for fieldName, attr := range mappings {
		v, ok := data[attr]
		if !ok {
			continue
		}
		fd, ok := c.Field(fieldName)
		if !ok || !fd.Classified() {
			continue
		}
		for similar, member := range groups[fd.SemanticType] {
			if _, mapped := mappings[similar]; mapped {
				continue
			}
			if member.Confidence < minAutoFillConfidence {
				continue
			}
			values[similar] = v
		}
	}

	return values
}

// pdfcpu form-fill JSON shape.
type textField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type form struct {
	TextFields []textField `json:"textfield"`
}

type formGroup struct {
	Forms []form `json:"forms"`
}

// Fill fills the template's form fields with the given values and writes
// the result under the output directory, returning the generated path.
func (f *Filler) Fill(ctx context.Context, templatePath string, values map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", fmt.Errorf("no field values resolved for template: %s", templatePath)
	}

	fields := make([]textField, 0, len(values))
	for _, name := range mapping.SortedKeys(values) {
		fields = append(fields, textField{Name: name, Value: values[name]})
	}
	formJSON, err := json.Marshal(formGroup{Forms: []form{{TextFields: fields}}})
	if err != nil {
		return "", fmt.Errorf("failed to encode form data: %w", err)
	}

	template, err := os.Open(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to open template: %w", err)
	}
	defer template.Close()

	outputPath := filepath.Join(f.outputDir, generatedName())
	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.FillForm(template, bytes.NewReader(formJSON), out, conf); err != nil {
		out.Close()
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to fill form: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to finalize output file: %w", err)
	}
	return outputPath, nil
}

func generatedName() string {
	return fmt.Sprintf("%s_%s.pdf",
		time.Now().Format("20060102150405"),
		uuid.New().String())
}
