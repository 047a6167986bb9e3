package validators

import (
	"fmt"
	"regexp"
	"strings"

	"ckg-backend/domain/core/entities"
	"ckg-backend/pkg/errors"
)

// ScanValidator validates scanner output before it is ingested
type ScanValidator struct {
	maxFilesPerScan    int
	maxSymbolsPerFile  int
	maxRelationsClause int
	maxPathLength      int
	maxNameLength      int
	maxSnippetLength   int
	maxMetadataKeys    int
	pathPattern        *regexp.Regexp
}

// NewScanValidator creates a scan validator with default limits
func NewScanValidator() *ScanValidator {
	return &ScanValidator{
		maxFilesPerScan:    5000,
		maxSymbolsPerFile:  2000,
		maxRelationsClause: 5000,
		maxPathLength:      1024,
		maxNameLength:      512,
		maxSnippetLength:   100000,
		maxMetadataKeys:    50,
		pathPattern:        regexp.MustCompile(`^[^\x00]+$`),
	}
}

// ValidateFileCount checks the number of files in one scan record
func (v *ScanValidator) ValidateFileCount(count int) error {
	if count == 0 {
		return errors.NewValidationError("scan record contains no files")
	}
	if count > v.maxFilesPerScan {
		return errors.NewValidationError(
			fmt.Sprintf("scan record exceeds %d files", v.maxFilesPerScan),
		).WithDetails(map[string]interface{}{"count": count})
	}
	return nil
}

// ValidatePath checks a source file path
func (v *ScanValidator) ValidatePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.NewValidationError("file path cannot be empty")
	}
	if len(path) > v.maxPathLength {
		return errors.NewValidationError("file path too long").
			WithDetails(map[string]interface{}{"path": path[:64], "max_length": v.maxPathLength})
	}
	if strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return errors.NewValidationError("file path must be relative and must not escape the project root").
			WithDetails(map[string]interface{}{"path": path})
	}
	if !v.pathPattern.MatchString(path) {
		return errors.NewValidationError("file path contains invalid characters")
	}
	return nil
}

// ValidateSymbolName checks a symbol name
func (v *ScanValidator) ValidateSymbolName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewValidationError("symbol name cannot be empty")
	}
	if len(name) > v.maxNameLength {
		return errors.NewValidationError("symbol name too long").
			WithDetails(map[string]interface{}{"max_length": v.maxNameLength})
	}
	return nil
}

// ValidateSymbolCount checks the number of symbols in one file
func (v *ScanValidator) ValidateSymbolCount(path string, count int) error {
	if count > v.maxSymbolsPerFile {
		return errors.NewValidationError(
			fmt.Sprintf("file exceeds %d symbols", v.maxSymbolsPerFile),
		).WithDetails(map[string]interface{}{"path": path, "count": count})
	}
	return nil
}

// ValidateRelationship checks one extracted relationship
func (v *ScanValidator) ValidateRelationship(fromSymbol, toSymbol, relType string) error {
	if strings.TrimSpace(fromSymbol) == "" || strings.TrimSpace(toSymbol) == "" {
		return errors.NewValidationError("relationship endpoints cannot be empty")
	}
	if _, err := entities.ParseRelationship(relType); err != nil {
		return err
	}
	return nil
}

// ValidateSnippet checks an optional source snippet attached to a symbol
func (v *ScanValidator) ValidateSnippet(snippet string) error {
	if len(snippet) > v.maxSnippetLength {
		return errors.NewValidationError("symbol snippet too long").
			WithDetails(map[string]interface{}{"max_length": v.maxSnippetLength})
	}
	return nil
}

// ValidateMetadata checks symbol metadata size limits
func (v *ScanValidator) ValidateMetadata(metadata map[string]string) error {
	if len(metadata) > v.maxMetadataKeys {
		return errors.NewValidationError(
			fmt.Sprintf("metadata cannot have more than %d keys", v.maxMetadataKeys),
		).WithDetails(map[string]interface{}{"count": len(metadata)})
	}
	for key := range metadata {
		if len(key) > 100 {
			return errors.NewValidationError("metadata key too long").
				WithDetails(map[string]interface{}{"key": key[:32]})
		}
	}
	return nil
}
