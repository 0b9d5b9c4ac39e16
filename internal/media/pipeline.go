package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"path"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoCrop        = errors.New("no crop region selected")
	ErrInvalidState  = errors.New("operation not allowed in current state")
	ErrCancelled     = errors.New("pipeline was cancelled")
	ErrDecode        = errors.New("could not decode image")
	ErrTooManyPixels = errors.New("image dimensions exceed the pixel limit")
)

type State string

const (
	StateIdle         State = "idle"
	StateFileSelected State = "file_selected"
	StateCropping     State = "cropping"
	StateCropped      State = "cropped"
	StateUploading    State = "uploading"
	StateUploaded     State = "uploaded"
	StateUploadFailed State = "upload_failed"
)

// DefaultFolder is the CDN folder for team portraits.
const DefaultFolder = "cognetex/team"

// DefaultMaxPixels bounds the decoded size of a selected image.
const DefaultMaxPixels = 40_000_000

// View is a point-in-time copy of a pipeline.
type View struct {
	State         State  `json:"state"`
	Filename      string `json:"filename,omitempty"`
	Ratio         Ratio  `json:"ratio"`
	Natural       Size   `json:"natural"`
	Display       Size   `json:"display"`
	SuggestedCrop Rect   `json:"suggestedCrop"`
	Crop          *Rect  `json:"crop,omitempty"`
	ArtifactBytes int    `json:"artifactBytes,omitempty"`
	PublicID      string `json:"publicId,omitempty"`
	SecureURL     string `json:"secureUrl,omitempty"`
	Error         string `json:"error,omitempty"`
	PickerToken   uint64 `json:"pickerToken"`
}

// Pipeline takes one image from file selection through crop to upload.
// It is safe for concurrent use; an upload runs without holding the lock.
type Pipeline struct {
	uploader  Uploader
	ratio     Ratio
	folder    string
	maxPixels int64

	mu         sync.Mutex
	state      State
	generation uint64
	filename   string
	source     image.Image
	natural    Size
	display    Size
	suggested  Rect
	crop       *Rect
	artifact   []byte
	asset      Asset
	lastError  string
}

func NewPipeline(uploader Uploader, ratio Ratio, folder string) *Pipeline {
	if !ratio.valid() {
		ratio = PortraitRatio
	}
	if strings.TrimSpace(folder) == "" {
		folder = DefaultFolder
	}
	return &Pipeline{uploader: uploader, ratio: ratio, folder: folder, maxPixels: DefaultMaxPixels, state: StateIdle}
}

// SelectFile decodes a raster image and opens the cropper on it with the
// default suggestion. Any earlier work is discarded. The header is checked
// against the pixel limit before any pixel data is decoded.
func (p *Pipeline) SelectFile(name string, r io.Reader) error {
	p.mu.Lock()
	p.resetLocked()
	p.state = StateFileSelected
	p.filename = name
	generation := p.generation
	maxPixels := p.maxPixels
	p.mu.Unlock()

	src, err := decodeBounded(r, maxPixels)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != generation {
		return ErrCancelled
	}
	if err != nil {
		p.resetLocked()
		if errors.Is(err, ErrTooManyPixels) {
			p.lastError = "Image is too large."
			return err
		}
		p.lastError = "Could not read image file."
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := src.Bounds()
	p.source = src
	p.natural = Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	p.display = p.natural
	p.suggested = DefaultCrop(p.display, p.ratio)
	p.state = StateCropping
	return nil
}

// SetDisplaySize records the size the image is shown at. Crop coordinates are
// expressed in this space from now on.
func (p *Pipeline) SetDisplaySize(size Size) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.croppableLocked() {
		return ErrInvalidState
	}
	if size.empty() {
		return fmt.Errorf("%w: display size must be positive", ErrInvalidState)
	}
	previous := p.display
	p.display = size
	p.suggested = DefaultCrop(size, p.ratio)
	if p.crop != nil {
		scaled := LockRatio(p.crop.Scale(previous, size), p.ratio, size)
		p.crop = &scaled
	}
	p.backToCroppingLocked()
	return nil
}

// AdjustCrop replaces the crop with rect, keeping the ratio locked and the
// rectangle inside the displayed image. It returns the rectangle kept.
func (p *Pipeline) AdjustCrop(rect Rect) (Rect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.croppableLocked() {
		return Rect{}, ErrInvalidState
	}
	locked := LockRatio(rect, p.ratio, p.display)
	p.crop = &locked
	p.backToCroppingLocked()
	return locked, nil
}

// AcceptSuggestedCrop finalizes the default centered crop unchanged.
func (p *Pipeline) AcceptSuggestedCrop() (Rect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.croppableLocked() {
		return Rect{}, ErrInvalidState
	}
	suggested := p.suggested
	p.crop = &suggested
	p.backToCroppingLocked()
	return suggested, nil
}

// ApplyCrop rasterizes the finalized crop. On failure the pipeline stays in
// cropping.
func (p *Pipeline) ApplyCrop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateCropping && p.state != StateCropped {
		return ErrInvalidState
	}
	if p.crop == nil {
		p.state = StateCropping
		p.lastError = "Select a crop area first."
		return ErrNoCrop
	}
	artifact, err := Rasterize(p.source, *p.crop, p.display, JPEGQuality)
	if err != nil {
		p.state = StateCropping
		p.lastError = "Could not crop image."
		return err
	}
	p.artifact = artifact
	p.state = StateCropped
	p.lastError = ""
	return nil
}

// UploadCropped sends the artifact to the CDN. A failed upload keeps the
// artifact so it can be retried without cropping again. If the pipeline is
// cancelled while the request is in flight its result is dropped.
func (p *Pipeline) UploadCropped(ctx context.Context) (Asset, error) {
	p.mu.Lock()
	if p.state != StateCropped && p.state != StateUploadFailed {
		p.mu.Unlock()
		return Asset{}, ErrInvalidState
	}
	if p.uploader == nil {
		p.state = StateUploadFailed
		p.lastError = UserMessage(ErrUploaderNotConfigured)
		p.mu.Unlock()
		return Asset{}, ErrUploaderNotConfigured
	}
	generation := p.generation
	upload := Upload{
		Filename:    croppedFilename(p.filename),
		ContentType: "image/jpeg",
		Data:        p.artifact,
		Folder:      p.folder,
	}
	p.state = StateUploading
	p.lastError = ""
	p.mu.Unlock()

	asset, err := p.uploader.Upload(ctx, upload)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != generation {
		return Asset{}, ErrCancelled
	}
	if err != nil {
		log.Printf("media: upload %s: %v", upload.Filename, err)
		p.state = StateUploadFailed
		p.lastError = UserMessage(err)
		return Asset{}, err
	}
	p.asset = asset
	p.state = StateUploaded
	return asset, nil
}

// Cancel returns to idle from any state and discards everything selected so
// far. The picker token changes so the same file can be picked again.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

// Uploaded returns the stored asset once the upload has succeeded.
func (p *Pipeline) Uploaded() (Asset, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asset, p.state == StateUploaded
}

// Preview returns the cropped JPEG.
func (p *Pipeline) Preview() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.artifact) == 0 {
		return nil, ErrInvalidState
	}
	return bytes.Clone(p.artifact), nil
}

func (p *Pipeline) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	view := View{
		State:         p.state,
		Filename:      p.filename,
		Ratio:         p.ratio,
		Natural:       p.natural,
		Display:       p.display,
		SuggestedCrop: p.suggested,
		ArtifactBytes: len(p.artifact),
		PublicID:      p.asset.PublicID,
		SecureURL:     p.asset.SecureURL,
		Error:         p.lastError,
		PickerToken:   p.generation,
	}
	if p.crop != nil {
		crop := *p.crop
		view.Crop = &crop
	}
	return view
}

func (p *Pipeline) croppableLocked() bool {
	switch p.state {
	case StateCropping, StateCropped, StateUploadFailed:
		return true
	}
	return false
}

// backToCroppingLocked drops an artifact made from a crop that no longer holds.
func (p *Pipeline) backToCroppingLocked() {
	p.artifact = nil
	p.state = StateCropping
	p.lastError = ""
}

func (p *Pipeline) resetLocked() {
	p.generation++
	p.state = StateIdle
	p.filename = ""
	p.source = nil
	p.natural = Size{}
	p.display = Size{}
	p.suggested = Rect{}
	p.crop = nil
	p.artifact = nil
	p.asset = Asset{}
	p.lastError = ""
}

// decodeBounded reads the image header first and only decodes pixels when
// width times height is within maxPixels. A non-positive limit disables the
// check.
func decodeBounded(r io.Reader, maxPixels int64) (image.Image, error) {
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	src, _, err := image.Decode(io.MultiReader(&header, r))
	return src, err
}

func croppedFilename(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + ".jpg"
}
