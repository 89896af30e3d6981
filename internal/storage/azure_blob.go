package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// AzureUploader writes pending attachments to Azure Blob Storage, one blob
// per attachment prefixed by corporation and document.
type AzureUploader struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

func NewAzureUploader(connectionString, containerName string, logger *zap.Logger) (*AzureUploader, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	// Ensure container exists
	_, err = client.CreateContainer(context.Background(), containerName, nil)
	if err != nil && !strings.Contains(err.Error(), "ContainerAlreadyExists") {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	logger.Info("Azure Blob Storage initialized",
		zap.String("container", containerName),
	)

	return &AzureUploader{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

func (u *AzureUploader) UploadPending(ctx context.Context, corporationUUID, documentUUID string, attachments []domain.Attachment) ([]domain.Attachment, error) {
	pending := pendingOnly(attachments)
	if len(pending) == 0 {
		return nil, nil
	}

	uploaded := make([]domain.Attachment, 0, len(pending))
	for _, att := range pending {
		if att.FileData == "" {
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
		blobName := fmt.Sprintf("%s/%s/%s%s", corporationUUID, documentUUID, fileID, ext)

		uploadOptions := &azblob.UploadStreamOptions{
			HTTPHeaders: &blob.HTTPHeaders{
				BlobContentType: &att.Type,
			},
		}
		if _, err := u.client.UploadStream(ctx, u.containerName, blobName, bytes.NewReader(data), uploadOptions); err != nil {
			return nil, fmt.Errorf("failed to upload blob: %w", err)
		}

		att.UUID = fileID
		att.URL = blobName
		att.Size = int64(len(data))
		att.FileData = ""
		uploaded = append(uploaded, att)

		u.logger.Info("attachment uploaded to Azure Blob Storage",
			zap.String("blobName", blobName),
			zap.String("container", u.containerName),
			zap.String("contentType", att.Type),
			zap.Int64("size", att.Size),
		)
	}

	return uploaded, nil
}

// Delete removes a previously uploaded blob. Missing blobs are not an error.
func (u *AzureUploader) Delete(ctx context.Context, blobName string) error {
	_, err := u.client.DeleteBlob(ctx, u.containerName, blobName, nil)
	if err != nil {
		if strings.Contains(err.Error(), "BlobNotFound") {
			u.logger.Debug("blob already deleted or not found",
				zap.String("blobName", blobName),
				zap.String("container", u.containerName),
			)
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
