//go:build xz

package simplefs

import (
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	RegisterCodec(CodecXZ, &codecHandler{
		Compress: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
		Decompress: func(r io.Reader) (io.ReadCloser, error) {
			rc, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(rc), nil
		},
	})
}
