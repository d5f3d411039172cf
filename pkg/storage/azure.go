package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/BerndBr/taskana/pkg/lifecycle"
)

type azure struct {
	client    *azblob.Client
	container string
	prefix    string
	logger    *slog.Logger
	ready     atomic.Bool
}

// New returns Noop for a disabled config. Otherwise it builds the Azure
// client without contacting the service.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		logger:    logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func (a *azure) Ready() bool { return a.ready.Load() }

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	lc.Track("storage", a)

	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Error("storage container initialization failed", "error", err)
			return
		}
		a.ready.Store(true)
		a.logger.Info("storage container ready")
	})

	return nil
}

func (a *azure) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	name, err := a.blobName(key)
	if err != nil {
		return err
	}

	_, err = a.client.UploadStream(ctx, a.container, name, reader, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", name, err)
	}
	return nil
}

func (a *azure) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b, err := a.blob(key)
	if err != nil {
		return nil, err
	}

	resp, err := b.DownloadStream(ctx, nil)
	if err != nil {
		return nil, a.mapErr("download", key, err)
	}
	return resp.Body, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	b, err := a.blob(key)
	if err != nil {
		return err
	}

	if _, err := b.Delete(ctx, nil); err != nil {
		return a.mapErr("delete", key, err)
	}
	a.logger.Info("blob deleted", "key", key)
	return nil
}

func (a *azure) Exists(ctx context.Context, key string) (bool, error) {
	b, err := a.blob(key)
	if err != nil {
		return false, err
	}

	_, err = b.GetProperties(ctx, nil)
	switch {
	case err == nil:
		return true, nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return false, nil
	}
	return false, a.mapErr("inspect", key, err)
}

func (a *azure) blob(key string) (*blob.Client, error) {
	name, err := a.blobName(key)
	if err != nil {
		return nil, err
	}
	return a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(name), nil
}

func (a *azure) blobName(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if a.prefix == "" {
		return key, nil
	}
	return a.prefix + "/" + key, nil
}

func (a *azure) mapErr(op, key string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s blob %s: %w", op, key, err)
}
