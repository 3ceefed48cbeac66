package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StorageService keeps the original CV files. Save returns the id the file
// can later be deleted by.
type StorageService interface {
	Save(ctx context.Context, originalName string, content []byte) (string, error)
	Delete(ctx context.Context, id string) error
}

type localStorageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) (StorageService, error) {
	s := &localStorageService{uploadPath: uploadPath}
	if err := s.ensureUploadDir(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *localStorageService) ensureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *localStorageService) Save(_ context.Context, originalName string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	uniqueFilename := fmt.Sprintf("cv_%s%s", uuid.New().String(), ext)

	if err := os.WriteFile(s.filePath(uniqueFilename), content, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, nil
}

func (s *localStorageService) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *localStorageService) filePath(filename string) string {
	return filepath.Join(s.uploadPath, filepath.Base(filename))
}
