// Package compression provides the codecs used for persisted values.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// None stores values as-is.
type None struct{}

func (None) Compress(data []byte) ([]byte, error)   { return data, nil }
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }

func ByName(name string) (Compressor, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "gzip":
		return GzipCompressor{}, nil
	case "zstd":
		return NewZstdCompressor()
	default:
		return nil, fmt.Errorf("unknown compression codec: %q", name)
	}
}
