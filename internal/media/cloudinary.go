package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// cloudinaryUploads is the part of the SDK upload API used here.
type cloudinaryUploads interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	UnsignedUpload(ctx context.Context, file interface{}, uploadPreset string, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Cloudinary uploads through the Cloudinary SDK. With an API key and secret
// requests are signed; otherwise the unsigned upload preset is used.
type Cloudinary struct {
	cfg CloudinaryConfig
	api cloudinaryUploads
}

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &Cloudinary{cfg: cfg, api: &cld.Upload}, nil
}

func (c *Cloudinary) signed() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

func (c *Cloudinary) Configured() bool {
	return c.cfg.CloudName != "" && (c.signed() || c.cfg.UploadPreset != "")
}

func (c *Cloudinary) Upload(ctx context.Context, upload Upload) (Asset, error) {
	if !c.Configured() {
		return Asset{}, ErrUploaderNotConfigured
	}
	params := uploader.UploadParams{Folder: upload.Folder}

	var (
		result *uploader.UploadResult
		err    error
	)
	if c.signed() {
		params.UploadPreset = c.cfg.UploadPreset
		result, err = c.api.Upload(ctx, bytes.NewReader(upload.Data), params)
	} else {
		result, err = c.api.UnsignedUpload(ctx, bytes.NewReader(upload.Data), c.cfg.UploadPreset, params)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if result == nil {
		return Asset{}, fmt.Errorf("cloudinary upload: empty response")
	}
	if result.Error.Message != "" {
		return Asset{}, &RemoteError{Message: result.Error.Message}
	}
	if result.PublicID == "" {
		return Asset{}, fmt.Errorf("cloudinary upload: response without public_id")
	}
	return Asset{PublicID: result.PublicID, SecureURL: result.SecureURL}, nil
}
