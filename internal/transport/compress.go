package transport

import (
	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<20))
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// compressPayload zstd-compresses a wire payload before framing.
func compressPayload(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

// decompressPayload reverses compressPayload. Data not carrying the zstd
// magic prefix is returned unchanged, for forward compatibility with peers
// sending uncompressed frames.
func decompressPayload(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != zstdMagic[0] || data[1] != zstdMagic[1] || data[2] != zstdMagic[2] || data[3] != zstdMagic[3] {
		return data, nil
	}
	return zstdDecoder.DecodeAll(data, nil)
}
