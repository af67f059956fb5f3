// File: internal/screen/hash.go
package screen

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashFrame computes a sampled 64-bit fingerprint of the frame. The digest is
// seeded with the frame dimensions and downscale, then every max(downscale,1)-th
// pixel of the raw buffer is folded in. The result depends only on the pixel
// bytes, dimensions and downscale. A frame with zero area hashes to 0.
func HashFrame(frame *ScreenFrame, downscale uint32) uint64 {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 {
		return 0
	}

	d := xxhash.New()
	var seed [12]byte
	binary.LittleEndian.PutUint32(seed[0:4], uint32(frame.Width))
	binary.LittleEndian.PutUint32(seed[4:8], uint32(frame.Height))
	binary.LittleEndian.PutUint32(seed[8:12], downscale)
	_, _ = d.Write(seed[:])

	step := int(max(downscale, 1)) * 4
	buf := frame.Pixels
	for i := 0; i+4 <= len(buf); i += step {
		_, _ = d.Write(buf[i : i+4])
	}
	return d.Sum64()
}
