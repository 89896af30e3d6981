package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// LocalUploader writes pending attachments to the local filesystem. Used in
// development when no remote store or blob account is available.
type LocalUploader struct {
	basePath string
	logger   *zap.Logger
}

func NewLocalUploader(basePath string, logger *zap.Logger) (*LocalUploader, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalUploader{basePath: basePath, logger: logger}, nil
}

func (u *LocalUploader) UploadPending(ctx context.Context, corporationUUID, documentUUID string, attachments []domain.Attachment) ([]domain.Attachment, error) {
	pending := pendingOnly(attachments)
	if len(pending) == 0 {
		return nil, nil
	}

	uploaded := make([]domain.Attachment, 0, len(pending))
	for _, att := range pending {
		if att.FileData == "" {
			// url-only attachments keep their source reference
			att.UUID = uuid.New().String()
			uploaded = append(uploaded, att)
			continue
		}

		data, err := decodeFileData(att.FileData)
		if err != nil {
			return nil, err
		}

		fileID := uuid.New().String()
		ext := filepath.Ext(att.Name)
		storagePath := filepath.Join(corporationUUID, documentUUID, fileID+ext)
		fullPath := filepath.Join(u.basePath, storagePath)

		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(fullPath, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write file: %w", err)
		}

		att.UUID = fileID
		att.URL = storagePath
		att.Size = int64(len(data))
		att.FileData = ""
		uploaded = append(uploaded, att)
	}

	u.logger.Info("attachments written to local storage",
		zap.String("corporationUUID", corporationUUID),
		zap.String("documentUUID", documentUUID),
		zap.Int("count", len(uploaded)),
	)
	return uploaded, nil
}
