package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/errs"
)

// Uploader stores an object under key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, file io.Reader) (string, error)
}

// CloudinaryUploader stores objects in Cloudinary. The folder part of the
// key becomes the Cloudinary folder and the base name the public id.
type CloudinaryUploader struct {
	cld          *cloudinary.Cloudinary
	uploadPreset string
}

// NewCloudinaryUploader initializes the Cloudinary client
func NewCloudinaryUploader(cfg *config.Config) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, uploadPreset: cfg.CloudinaryUploadPreset}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, key string, file io.Reader) (string, error) {
	folder, name := path.Split(key)
	uploadParams := uploader.UploadParams{
		PublicID:     strings.TrimSuffix(name, path.Ext(name)),
		Folder:       strings.TrimSuffix(folder, "/"),
		UploadPreset: u.uploadPreset,
		// documents and images share one path
		ResourceType: "auto",
	}

	resp, err := u.cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		return "", errs.Remote("upload "+key, err)
	}
	if resp.Error.Message != "" {
		return "", errs.Remote("upload "+key, fmt.Errorf("%s", resp.Error.Message))
	}
	return resp.SecureURL, nil
}

// MemoryUploader keeps uploaded objects in process memory. Used when no
// Cloudinary account is configured and in tests.
type MemoryUploader struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{Objects: make(map[string][]byte)}
}

func (u *MemoryUploader) Upload(_ context.Context, key string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return "", errs.Remote("upload "+key, err)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Objects[key] = buf.Bytes()
	return "memory://" + key, nil
}

// Keys returns the stored object keys.
func (u *MemoryUploader) Keys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	keys := make([]string, 0, len(u.Objects))
	for k := range u.Objects {
		keys = append(keys, k)
	}
	return keys
}
