package mimetypes

import (
	"mime"
	"strings"
)

type MIME string

const (
	OctetStream MIME = "application/octet-stream"
	TextPlain   MIME = "text/plain"
	TextHTML    MIME = "text/html"
	TextCSV     MIME = "text/csv"

	ApplicationPDF  MIME = "application/pdf"
	ApplicationJSON MIME = "application/json"
	ApplicationXML  MIME = "application/xml"
	ApplicationZIP  MIME = "application/zip"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"
)

// Normalize strips parameters such as charset. Unparsable input is OctetStream.
func Normalize(detected string) MIME {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return OctetStream
	}
	return MIME(mt)
}

func (m MIME) IsImage() bool {
	return strings.HasPrefix(string(m), "image/")
}

// Label is the short category shown next to an attachment.
func (m MIME) Label() string {
	switch {
	case m.IsImage():
		return "image"
	case m == ApplicationPDF:
		return "pdf"
	case strings.HasPrefix(string(m), "text/"), m == ApplicationJSON, m == ApplicationXML:
		return "document"
	case m == ApplicationZIP:
		return "archive"
	default:
		return "file"
	}
}
