package persistence

import (
	"context"
	"crypto/md5" //nolint:gosec // filename bucketing, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// mappingRecord is the on-disk shape of one template's mapping set.
type mappingRecord struct {
	TemplateID string                        `json:"template_id"`
	Mappings   map[string]schema.AttributeID `json:"mappings"`
	UpdatedAt  time.Time                     `json:"updated_at"`
}

// FileStore keeps one JSON file per template under a data directory.
type FileStore struct {
	dataDir string
}

// NewFileStore creates the data directory if needed and returns a store
// rooted there.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// SaveMappings replaces the stored mapping set for the template. The file
// is written to a temp name and renamed so readers never see a partial
// record.
func (s *FileStore) SaveMappings(ctx context.Context, templateID string, mappings map[string]schema.AttributeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := mappingRecord{
		TemplateID: templateID,
		Mappings:   mappings,
		UpdatedAt:  time.Now().UTC(),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}

	target := s.recordPath(templateID)
	tmp, err := os.CreateTemp(s.dataDir, ".mappings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write mappings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace mappings file: %w", err)
	}
	return nil
}

// LoadMappings returns the stored mapping set, or an empty map when the
// template was never saved.
func (s *FileStore) LoadMappings(ctx context.Context, templateID string) (map[string]schema.AttributeID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.recordPath(templateID))
	if os.IsNotExist(err) {
		return map[string]schema.AttributeID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}

	var record mappingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode mappings file: %w", err)
	}
	if record.Mappings == nil {
		record.Mappings = map[string]schema.AttributeID{}
	}
	return record.Mappings, nil
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// recordPath derives a stable filename from the template id. The readable
// prefix aids debugging; the hash suffix disambiguates ids that sanitize
// to the same prefix.
func (s *FileStore) recordPath(templateID string) string {
	base := unsafeNameRe.ReplaceAllString(filepath.Base(templateID), "_")
	if len(base) > 64 {
		base = base[:64]
	}
	sum := md5.Sum([]byte(templateID)) //nolint:gosec
	name := fmt.Sprintf("%s-%s.json", base, hex.EncodeToString(sum[:])[:8])
	return filepath.Join(s.dataDir, name)
}
