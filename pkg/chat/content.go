package chat

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Content is the body of a chat message. It is one of Text, Lines,
// TextPart, ImagePart or Unknown. A nil Content means the message has
// no body yet.
type Content interface {
	isContent()
}

// Text is plain string content.
type Text string

// Lines is an ordered list of strings.
type Lines []string

// TextPart is the tagged {"type":"text","text":...} object.
type TextPart struct {
	Text *string
}

// ImagePart is the tagged {"type":"image_url","image_url":{"url":...}} object.
type ImagePart struct {
	ImageURL *ImageURL
}

// ImageURL holds the url of an ImagePart.
type ImageURL struct {
	URL *string `json:"url,omitempty"`
}

// Unknown keeps any other JSON value verbatim.
type Unknown struct {
	Raw json.RawMessage
}

func (Text) isContent()      {}
func (Lines) isContent()     {}
func (TextPart) isContent()  {}
func (ImagePart) isContent() {}
func (Unknown) isContent()   {}

const (
	partTypeText  = "text"
	partTypeImage = "image_url"
)

// NewTextPart returns a text part holding s.
func NewTextPart(s string) TextPart {
	return TextPart{Text: &s}
}

// NewImagePart returns an image part pointing at url.
func NewImagePart(url string) ImagePart {
	return ImagePart{ImageURL: &ImageURL{URL: &url}}
}

// Normalize collapses content into a single display string. The second
// return value is false when the content has no displayable form.
func Normalize(c Content) (string, bool) {
	switch v := c.(type) {
	case nil:
		return "", false
	case Text:
		return string(v), true
	case Lines:
		return strings.Join(v, "\n"), true
	case TextPart:
		if v.Text == nil || *v.Text == "" {
			return "", false
		}
		return *v.Text, true
	case ImagePart:
		if v.ImageURL == nil || v.ImageURL.URL == nil {
			return "", false
		}
		return *v.ImageURL.URL, true
	default:
		return "", false
	}
}

type textPartJSON struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

type imagePartJSON struct {
	Type     string    `json:"type"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type partJSON struct {
	Type     string    `json:"type"`
	Text     *string   `json:"text"`
	ImageURL *ImageURL `json:"image_url"`
}

// EncodeContent returns the compact JSON encoding of c. A nil Content
// encodes as null.
func EncodeContent(c Content) ([]byte, error) {
	switch v := c.(type) {
	case nil:
		return []byte("null"), nil
	case Text:
		return json.Marshal(string(v))
	case Lines:
		if v == nil {
			v = Lines{}
		}
		return json.Marshal([]string(v))
	case TextPart:
		return json.Marshal(textPartJSON{Type: partTypeText, Text: v.Text})
	case ImagePart:
		return json.Marshal(imagePartJSON{Type: partTypeImage, ImageURL: v.ImageURL})
	case Unknown:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.Raw); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

// DecodeContent maps a raw JSON value onto one of the Content variants.
// It never fails: shapes it does not recognise become Unknown, and
// null or empty input becomes nil.
func DecodeContent(raw []byte) Content {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Text(s)
		}
	case '[':
		var lines []string
		if err := json.Unmarshal(trimmed, &lines); err == nil {
			return Lines(lines)
		}
	case '{':
		var part partJSON
		if err := json.Unmarshal(trimmed, &part); err == nil {
			switch part.Type {
			case partTypeText:
				return TextPart{Text: part.Text}
			case partTypeImage:
				return ImagePart{ImageURL: part.ImageURL}
			}
		}
	}

	return Unknown{Raw: append(json.RawMessage(nil), trimmed...)}
}

// contentString is the wire form of history content: strings go out
// verbatim, everything else as its JSON encoding.
func contentString(c Content) string {
	if s, ok := c.(Text); ok {
		return string(s)
	}
	data, err := EncodeContent(c)
	if err != nil {
		if u, ok := c.(Unknown); ok {
			return string(u.Raw)
		}
		return ""
	}
	return string(data)
}
