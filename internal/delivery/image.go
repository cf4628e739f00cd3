package delivery

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const MaxImageSize = 5 << 20

var (
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageTooLarge = fmt.Errorf("image exceeds %d bytes", MaxImageSize)
)

// Image is an attachment held in memory until the next send.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ReadImage reads at most MaxImageSize bytes from r. An empty mimeType is
// sniffed from the content.
func ReadImage(name, mimeType string, r io.Reader) (*Image, error) {
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s (%s): %w", name, mimeType, ErrNotAnImage)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", name, err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%s: %w", name, ErrImageTooLarge)
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("%s (%s): %w", name, mimeType, ErrNotAnImage)
		}
	}

	return &Image{Name: name, MIMEType: mimeType, Data: data}, nil
}

func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}
