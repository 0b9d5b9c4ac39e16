package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type ImageKind string

const (
	ImageEmpty ImageKind = "empty"
	ImageURL   ImageKind = "url"
	ImageCDN   ImageKind = "cdn"
)

var absoluteURLPattern = regexp.MustCompile(`(?i)^https?://`)

// ImageRef is a team member photo: a direct URL, a CDN public id, or nothing.
// The kind is fixed when the value is written.
type ImageRef struct {
	Kind  ImageKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

func URLImage(value string) ImageRef {
	return ImageRef{Kind: ImageURL, Value: strings.TrimSpace(value)}
}

func CDNImage(publicID string) ImageRef {
	return ImageRef{Kind: ImageCDN, Value: strings.TrimSpace(publicID)}
}

// ClassifyImage decides the kind of an untyped stored value.
func ClassifyImage(raw string) ImageRef {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return ImageRef{Kind: ImageEmpty}
	case absoluteURLPattern.MatchString(value):
		return URLImage(value)
	default:
		return CDNImage(value)
	}
}

func (r ImageRef) IsEmpty() bool {
	return r.Kind == "" || r.Kind == ImageEmpty
}

func (r ImageRef) String() string {
	if r.IsEmpty() {
		return ""
	}
	return r.Value
}

func (r ImageRef) validate() string {
	switch r.Kind {
	case "", ImageEmpty:
		if r.Value != "" {
			return "must not carry a value when empty"
		}
	case ImageURL:
		parsed, err := url.Parse(r.Value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return "must be an absolute http or https URL"
		}
	case ImageCDN:
		if strings.TrimSpace(r.Value) == "" {
			return "must name a CDN reference"
		}
	default:
		return fmt.Sprintf("unknown image kind %q", r.Kind)
	}
	return ""
}

func (r ImageRef) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte(`{"kind":"empty"}`), nil
	}
	type plain ImageRef
	return json.Marshal(plain(r))
}

// UnmarshalJSON accepts the tagged form and bare strings from older records.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = ImageRef{Kind: ImageEmpty}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*r = ClassifyImage(raw)
		return nil
	}
	type plain ImageRef
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return fmt.Errorf("decode image reference: %w", err)
	}
	*r = ImageRef(decoded)
	if r.Kind == "" {
		r.Kind = ImageEmpty
	}
	return nil
}

func (r *ImageRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*r = ClassifyImage(node.Value)
		return nil
	}
	type plain ImageRef
	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*r = ImageRef(decoded)
	if r.Kind == "" {
		r.Kind = ImageEmpty
	}
	return nil
}
