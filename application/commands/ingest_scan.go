package commands

import (
	"ckg-backend/domain/core/valueobjects"
	pkgerrors "ckg-backend/pkg/errors"
	"ckg-backend/pkg/utils"
)

// ScanSymbol is one symbol extracted from a source file by a scanner.
// Signature, Doc, and Snippet are optional; whichever are present become
// searchable chunks of the corresponding types.
type ScanSymbol struct {
	Name      string                `json:"name" validate:"required"`
	Kind      string                `json:"kind" validate:"required,oneof=function class variable interface type"`
	Line      int                   `json:"line" validate:"min=0"`
	Column    int                   `json:"column" validate:"min=0"`
	Signature string                `json:"signature,omitempty"`
	Doc       string                `json:"doc,omitempty"`
	Snippet   string                `json:"snippet,omitempty"`
	Metadata  map[string]string     `json:"metadata,omitempty"`
	Exported  bool                  `json:"exported,omitempty"`
	Position  valueobjects.Position `json:"-"`
}

// ScanRelationship is one extracted dependency between symbols. ToPath is
// optional: when set, the target is resolved in that file; otherwise the
// symbol name is resolved project-wide.
type ScanRelationship struct {
	FromSymbol string  `json:"from_symbol" validate:"required"`
	ToSymbol   string  `json:"to_symbol" validate:"required"`
	ToPath     string  `json:"to_path,omitempty"`
	Type       string  `json:"type" validate:"required"`
	Line       int     `json:"line" validate:"min=0"`
	Weight     float64 `json:"weight,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ScanFile is the scanner output for one source file
type ScanFile struct {
	Path          string             `json:"path" validate:"required"`
	Language      string             `json:"language,omitempty"`
	Doc           string             `json:"doc,omitempty"`
	Symbols       []ScanSymbol       `json:"symbols" validate:"dive"`
	Relationships []ScanRelationship `json:"relationships" validate:"dive"`
	Imports       []string           `json:"imports,omitempty"`
}

// IngestScanResult summarizes what one ingestion wrote
type IngestScanResult struct {
	Backend         string   `json:"backend"`
	NodesUpserted   int      `json:"nodes_upserted"`
	EdgesUpserted   int      `json:"edges_upserted"`
	ChunksAdded     int      `json:"chunks_added"`
	ReferencesAdded int      `json:"references_added"`
	Skipped         []string `json:"skipped,omitempty"`
}

// IngestScanCommand ingests one scan record into the project's graph.
// Ingestion is serialized per project and invalidates the project's cached
// query results before the command returns.
type IngestScanCommand struct {
	ProjectRef valueobjects.ProjectRef `json:"project_ref"`
	CommitHash string                  `json:"commit_hash,omitempty"`
	Files      []ScanFile              `json:"files" validate:"required,dive"`

	// Result is populated by the handler
	Result *IngestScanResult `json:"-"`
}

// Validate implements the Command interface
func (c *IngestScanCommand) Validate() error {
	if c.ProjectRef.IsZero() {
		return pkgerrors.NewValidationError("project reference is required")
	}
	if len(c.Files) == 0 {
		return pkgerrors.NewValidationError("scan record must contain at least one file")
	}
	if err := utils.ValidateStruct(c); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}
