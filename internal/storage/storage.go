package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/config"
	"github.com/bygghuset-as/procurement-api/internal/domain"
	"github.com/bygghuset-as/procurement-api/internal/remote"
)

// Uploader transports pending attachments to their destination and returns
// the persisted descriptors. Attachments that already carry a uuid are
// skipped; they were uploaded on an earlier save.
type Uploader interface {
	UploadPending(ctx context.Context, corporationUUID, documentUUID string, attachments []domain.Attachment) ([]domain.Attachment, error)
}

// NewUploader creates an uploader based on configuration.
// "remote" posts pending files to the remote upload endpoint, "local" writes
// them to disk for development, "azure" uploads them to Blob Storage.
func NewUploader(cfg *config.StorageConfig, client *remote.Client, logger *zap.Logger) (Uploader, error) {
	switch cfg.Mode {
	case "remote", "":
		return NewRemoteUploader(client, logger), nil
	case "local":
		return NewLocalUploader(cfg.LocalBasePath, logger)
	case "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureUploader(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// pendingOnly splits out the attachments that still need transport.
func pendingOnly(attachments []domain.Attachment) []domain.Attachment {
	var pending []domain.Attachment
	for _, a := range attachments {
		if !a.Uploaded() && (a.FileData != "" || a.URL != "") {
			pending = append(pending, a)
		}
	}
	return pending
}

// decodeFileData decodes a base64 payload, tolerating a data-URI prefix.
func decodeFileData(fileData string) ([]byte, error) {
	if idx := strings.Index(fileData, ";base64,"); idx >= 0 {
		fileData = fileData[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(fileData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

// RemoteUploader hands pending attachments to the remote store's own upload
// endpoint, which is the default transport in every deployed environment.
type RemoteUploader struct {
	client *remote.Client
	logger *zap.Logger
}

func NewRemoteUploader(client *remote.Client, logger *zap.Logger) *RemoteUploader {
	return &RemoteUploader{client: client, logger: logger}
}

func (u *RemoteUploader) UploadPending(ctx context.Context, corporationUUID, documentUUID string, attachments []domain.Attachment) ([]domain.Attachment, error) {
	pending := pendingOnly(attachments)
	if len(pending) == 0 {
		return nil, nil
	}

	uploaded, err := u.client.UploadAttachments(ctx, corporationUUID, documentUUID, pending)
	if err != nil {
		return nil, err
	}

	u.logger.Info("attachments uploaded to remote store",
		zap.String("corporationUUID", corporationUUID),
		zap.String("documentUUID", documentUUID),
		zap.Int("count", len(uploaded)),
	)
	return uploaded, nil
}
