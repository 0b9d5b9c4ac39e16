package media

import (
	"context"
	"errors"
	"fmt"

	"cognetex/api/internal/content"
)

var ErrUploaderNotConfigured = errors.New("missing image CDN credentials")

// Upload is one artifact sent to the image CDN.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Folder      string
}

// Asset is what the CDN hands back for a stored image.
type Asset struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Ref is the value stored on a team member for this asset.
func (a Asset) Ref() content.ImageRef {
	if a.PublicID == "" {
		return content.ClassifyImage(a.SecureURL)
	}
	return content.CDNImage(a.PublicID)
}

type Uploader interface {
	Upload(ctx context.Context, upload Upload) (Asset, error)
}

// RemoteError is a rejection reported by the CDN itself. Its message is safe
// to show to the admin verbatim.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("cdn rejected upload (%d): %s", e.Status, e.Message)
}

// UserMessage is the text an admin sees for a failed upload.
func UserMessage(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return "Upload failed."
}
