package media

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"cognetex/api/internal/content"

	"github.com/cloudinary/cloudinary-go/v2"
)

// Transform is an optional fixed output size.
type Transform struct {
	Width  int
	Height int
}

// Resolved is how a stored image is rendered: a URL, or a neutral
// placeholder when there is nothing to show.
type Resolved struct {
	URL         string `json:"imageUrl,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Resolver expands CDN references into delivery URLs, through Cloudinary
// when a cloud name is set and otherwise with a plain base URL prefix.
type Resolver struct {
	cld     *cloudinary.Cloudinary
	baseURL string
}

func NewResolver(cloudName, baseURL string) Resolver {
	r := Resolver{baseURL: strings.TrimRight(baseURL, "/")}
	if cloudName == "" {
		return r
	}
	cld, err := cloudinary.NewFromParams(cloudName, "", "")
	if err != nil {
		log.Printf("media: cloudinary delivery disabled: %v", err)
		return r
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.ForceVersion = false
	cld.Config.URL.Analytics = false
	r.cld = cld
	return r
}

func (r Resolver) Resolve(ref content.ImageRef, t Transform) Resolved {
	switch ref.Kind {
	case content.ImageURL:
		return Resolved{URL: ref.Value}
	case content.ImageCDN:
		if r.cld != nil {
			deliveryURL, err := r.cloudinaryURL(ref.Value, t)
			if err == nil {
				return Resolved{URL: deliveryURL}
			}
			log.Printf("media: build delivery url for %s: %v", ref.Value, err)
		}
		if r.baseURL != "" {
			return Resolved{URL: r.baseURL + "/" + escapePath(ref.Value)}
		}
	}
	return Resolved{Placeholder: true}
}

func (r Resolver) cloudinaryURL(publicID string, t Transform) (string, error) {
	img, err := r.cld.Image(strings.Trim(publicID, "/"))
	if err != nil {
		return "", err
	}
	transformation := "f_auto/q_auto"
	if t.Width > 0 && t.Height > 0 {
		transformation = fmt.Sprintf("c_auto,g_auto,h_%d,w_%d/%s", t.Height, t.Width, transformation)
	}
	img.Transformation = transformation
	return img.String()
}

func escapePath(id string) string {
	segments := strings.Split(strings.Trim(id, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
