package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/joocer/s1/internal/domain"
)

var _ domain.ObjectStore = (*AzureStore)(nil)

// AzureStore reads blobs from Azure Blob Storage. Containers play the role
// of buckets.
type AzureStore struct {
	client *azblob.Client
}

// NewAzureStore authenticates with a shared account key. serviceURL defaults
// to the public endpoint for the account.
func NewAzureStore(accountName, accountKey, serviceURL string) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureStore{client: client}, nil
}

// Fetch downloads the whole blob.
func (s *AzureStore) Fetch(ctx context.Context, bucket, path string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, bucket, path, nil)
	if err != nil {
		return nil, azureError(bucket, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read az://%s/%s: %w", bucket, path, err)
	}
	return data, nil
}

// Stat fetches blob properties.
func (s *AzureStore) Stat(ctx context.Context, bucket, path string) (domain.ObjectInfo, error) {
	props, err := s.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(path).GetProperties(ctx, nil)
	if err != nil {
		return domain.ObjectInfo{}, azureError(bucket, path, err)
	}
	info := domain.ObjectInfo{Key: path}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		info.LastModified = props.LastModified.UTC()
	}
	if props.ETag != nil {
		info.ETag = quoteETag(string(*props.ETag))
	}
	return info, nil
}

// List pages through a flat blob listing for prefix.
func (s *AzureStore) List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}
	pager := s.client.NewListBlobsFlatPager(bucket, opts)
	var out []domain.ObjectInfo
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, azureError(bucket, prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := domain.ObjectInfo{Key: *item.Name}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					info.LastModified = p.LastModified.UTC()
				}
				if p.ETag != nil {
					info.ETag = quoteETag(string(*p.ETag))
				}
			}
			out = append(out, info)
		}
	}
	return out, nil
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}

func azureError(bucket, path string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return notFound(bucket, path)
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return domain.ErrNotFound("bucket %s not found", bucket)
	default:
		return fmt.Errorf("az://%s/%s: %w", bucket, path, err)
	}
}
