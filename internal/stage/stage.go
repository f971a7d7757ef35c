// Package stage manages the local document stage: the directory that holds
// uploaded invoice PDFs between upload and bronze extraction.
package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ExtractionTrigger is notified after each successful upload so the document
// pipeline can pick the file up. Fired on its own goroutine; upload success
// never depends on it.
type ExtractionTrigger func(ctx context.Context, fileName string)

// DocumentStage stores and serves staged invoice documents on the local
// filesystem.
type DocumentStage struct {
	baseDir string
	trigger ExtractionTrigger
	logger  *zap.Logger
}

// NewDocumentStage creates a document stage rooted at baseDir.
func NewDocumentStage(baseDir string, logger *zap.Logger) (*DocumentStage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stage directory: %w", err)
	}
	return &DocumentStage{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// OnUpload registers the extraction trigger.
func (s *DocumentStage) OnUpload(trigger ExtractionTrigger) {
	s.trigger = trigger
}

// Save writes an uploaded document under its file name and fires the
// extraction trigger.
func (s *DocumentStage) Save(ctx context.Context, fileName string, content []byte) error {
	if len(content) == 0 {
		return fmt.Errorf("document is empty: %s", fileName)
	}

	fullPath, err := s.resolve(fileName)
	if err != nil {
		return err
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to stage document",
			zap.String("file_name", fileName),
			zap.Error(err))
		return fmt.Errorf("failed to stage document: %w", err)
	}

	s.logger.Info("Document staged",
		zap.String("file_name", fileName),
		zap.Int("size", len(content)))

	if s.trigger != nil {
		go s.trigger(context.WithoutCancel(ctx), fileName)
	}

	return nil
}

// Get returns the raw bytes of one staged document.
func (s *DocumentStage) Get(ctx context.Context, fileName string) ([]byte, error) {
	fullPath, err := s.resolve(fileName)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document not staged: %s", fileName)
		}
		s.logger.Error("Failed to read staged document",
			zap.String("file_name", fileName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return content, nil
}

// Exists reports whether a document is staged under the name.
func (s *DocumentStage) Exists(ctx context.Context, fileName string) bool {
	fullPath, err := s.resolve(fileName)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// List returns the staged file names, sorted.
func (s *DocumentStage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// resolve maps a file name to its stage path, rejecting names that would
// escape the stage directory.
func (s *DocumentStage) resolve(fileName string) (string, error) {
	if fileName == "" {
		return "", fmt.Errorf("file name is required")
	}
	if fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return "", fmt.Errorf("invalid file name: %s", fileName)
	}

	fullPath := filepath.Join(s.baseDir, fileName)
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve stage path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes stage directory: %s", fileName)
	}

	return fullPath, nil
}
