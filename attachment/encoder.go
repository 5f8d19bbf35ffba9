// Package attachment turns local files into payloads that fit inside a JSON
// chat message, and back.
//
// No size limit is enforced here. Callers warn about large files with IsLarge.
package attachment

import (
	"consult-chat/domain"
	"consult-chat/domain/mimetypes"
	"consult-chat/errors"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const dataURLPrefix = "data:"

type Encoder struct {
	log *slog.Logger
}

func NewEncoder(log *slog.Logger) *Encoder {
	return &Encoder{log: log}
}

// Encode reads the whole file at path.
// Any failure to open or read is reported as errors.ErrFileRead.
func (e *Encoder) Encode(ctx context.Context, path string) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", errors.ErrFileRead, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", errors.ErrFileRead, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", errors.ErrFileRead, err)
	}
	if info.IsDir() {
		return domain.Attachment{}, fmt.Errorf("%w: %s is a directory", errors.ErrFileRead, path)
	}
	return e.EncodeReader(ctx, filepath.Base(path), f)
}

func (e *Encoder) EncodeReader(ctx context.Context, fileName string, r io.Reader) (domain.Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", errors.ErrFileRead, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %v", errors.ErrFileRead, err)
	}
	att := domain.Attachment{
		FileName: fileName,
		MimeType: string(mimetypes.Normalize(mimetype.Detect(data).String())),
		Payload:  data,
	}
	e.log.Debug("Attachment encoded", "file", att.FileName, "mime", att.MimeType, "bytes", att.Size())
	return att, nil
}

// DataURL renders the attachment as data:<mime>;base64,<payload>.
func DataURL(att domain.Attachment) string {
	mt := att.MimeType
	if mt == "" {
		mt = string(mimetypes.OctetStream)
	}
	return dataURLPrefix + mt + ";base64," + base64.StdEncoding.EncodeToString(att.Payload)
}

// Decode accepts a data URL or a bare base64 string as sent by older clients.
func Decode(fileName, fileData string) (domain.Attachment, error) {
	encoded := fileData
	mt := ""
	if strings.HasPrefix(fileData, dataURLPrefix) {
		header, rest, ok := strings.Cut(strings.TrimPrefix(fileData, dataURLPrefix), ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return domain.Attachment{}, fmt.Errorf("%w: unsupported data URL for %s", errors.ErrFrameDecode, fileName)
		}
		mt = strings.TrimSuffix(header, ";base64")
		encoded = rest
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("%w: %s: %v", errors.ErrFrameDecode, fileName, err)
	}
	if mt == "" {
		mt = mimetype.Detect(payload).String()
	}
	return domain.Attachment{
		FileName: fileName,
		MimeType: string(mimetypes.Normalize(mt)),
		Payload:  payload,
	}, nil
}

func IsLarge(att domain.Attachment, threshold int) bool {
	return threshold > 0 && att.Size() > threshold
}
