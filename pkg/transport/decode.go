package transport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

const acceptEncoding = "gzip, deflate, zstd"

// decodeBody undoes the Content-Encoding of a response body. Stacked
// encodings ("gzip, zstd") are removed in reverse order.
func decodeBody(contentEncoding string, raw []byte) ([]byte, error) {
	if contentEncoding == "" {
		return raw, nil
	}
	codings := strings.Split(contentEncoding, ",")
	data := raw
	for i := len(codings) - 1; i >= 0; i-- {
		var err error
		data, err = decodeOne(strings.ToLower(strings.TrimSpace(codings[i])), data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func decodeOne(coding string, data []byte) ([]byte, error) {
	var r io.Reader
	switch coding {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			r = fr
		} else {
			defer zr.Close()
			r = zr
		}
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", coding)
	}

	out, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", coding, err)
	}
	if len(out) > MaxBodySize {
		return nil, fmt.Errorf("%s: decoded body exceeds %d bytes", coding, MaxBodySize)
	}
	return out, nil
}
