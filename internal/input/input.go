package input

import "net/url"

// Kind discriminates the two payload modalities the extraction step
// understands.
type Kind int

const (
	// KindText is a free-form textual event description.
	KindText Kind = iota
	// KindImage is raw image bytes (screenshot or upload).
	KindImage
)

// Payload is the request-scoped input to the extraction step. Exactly one
// of Text / Image is meaningful, selected by Kind.
type Payload struct {
	Kind  Kind
	Text  string
	Image []byte
}

// TextPayload wraps a free-form event description.
func TextPayload(text string) Payload {
	return Payload{Kind: KindText, Text: text}
}

// ImagePayload wraps raw image bytes.
func ImagePayload(img []byte) Payload {
	return Payload{Kind: KindImage, Image: img}
}

// ClassifyURL reports whether the trimmed text is a well-formed absolute
// URL (scheme and host both present). A strict parse/no-parse decision:
// no partial URLs, no heuristics. The returned URL is only valid when the
// second result is true.
func ClassifyURL(text string) (*url.URL, bool) {
	u, err := url.Parse(text)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}
