package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeBody reads r, undoing every encoding listed in contentEncoding, and
// returns at most limit decoded bytes. Bodies larger than limit fail with
// ErrBodyTooLarge.
func decodeBody(r io.Reader, contentEncoding string, limit int64) ([]byte, error) {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close() //nolint:errcheck // decoders hold no resources worth reporting
		}
	}()

	// Encodings are listed in the order they were applied
	encodings := parseEncodings(contentEncoding)
	for i := len(encodings) - 1; i >= 0; i-- {
		dr, closer, err := newDecoder(encodings[i], r)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		r = dr
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

func parseEncodings(header string) []string {
	var out []string
	for part := range strings.SplitSeq(header, ",") {
		enc := strings.ToLower(strings.TrimSpace(part))
		if enc == "" || enc == "identity" {
			continue
		}
		out = append(out, enc)
	}
	return out
}

func newDecoder(encoding string, r io.Reader) (io.Reader, io.Closer, error) {
	switch encoding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip decode: %w", err)
		}
		return gz, gz, nil
	case "br":
		return brotli.NewReader(r), nil, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd decode: %w", err)
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	case "deflate":
		return newDeflateReader(r)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

// newDeflateReader accepts both zlib-wrapped and raw deflate streams,
// since servers disagree on what "deflate" means.
func newDeflateReader(r io.Reader) (io.Reader, io.Closer, error) {
	br := bufio.NewReader(r)
	if hdr, err := br.Peek(2); err == nil && isZlibHeader(hdr[0], hdr[1]) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("deflate decode: %w", err)
		}
		return zr, zr, nil
	}
	fr := flate.NewReader(br)
	return fr, fr, nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
