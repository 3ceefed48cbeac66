package services

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type driveStorageService struct {
	files    *drive.FilesService
	folderID string
}

// NewDriveStorageService stores CVs in a Google Drive folder using a service
// account credentials file.
func NewDriveStorageService(ctx context.Context, credentialsFile, folderID string) (StorageService, error) {
	srv, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}

	return &driveStorageService{files: srv.Files, folderID: folderID}, nil
}

func (d *driveStorageService) Save(ctx context.Context, originalName string, content []byte) (string, error) {
	meta := &drive.File{
		Name:     originalName,
		MimeType: "application/pdf",
		Parents:  []string{d.folderID},
	}

	created, err := d.files.Create(meta).
		Media(bytes.NewReader(content)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file to drive: %w", err)
	}

	return created.Id, nil
}

func (d *driveStorageService) Delete(ctx context.Context, id string) error {
	if err := d.files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete drive file: %w", err)
	}
	return nil
}
