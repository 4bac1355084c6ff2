// Package compression implements the byte codecs used to serialize rendered
// frames and the messages exchanged between compositing ranks.
package compression

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ZIP compression errors
var (
	ErrZIPCorrupted = errors.New("compression: corrupted ZIP data")
)

// CompressionLevel is a zlib compression level from -2 (Huffman only) to 9
// (best compression).
type CompressionLevel int

const (
	CompressionLevelHuffmanOnly CompressionLevel = -2
	CompressionLevelDefault     CompressionLevel = -1
	CompressionLevelNone        CompressionLevel = 0
	CompressionLevelBestSpeed   CompressionLevel = 1
	CompressionLevelBestSize    CompressionLevel = 9
)

type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// ZIPCompress deflates src with zlib at the default level. Empty input
// compresses to nil.
func ZIPCompress(src []byte) ([]byte, error) {
	return ZIPCompressLevel(src, CompressionLevelDefault)
}

// ZIPCompressLevel deflates src with zlib at the given level.
func ZIPCompressLevel(src []byte, level CompressionLevel) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	if level == CompressionLevelDefault {
		item := zlibWriterPool.Get().(*zlibWriterPoolItem)
		defer zlibWriterPool.Put(item)
		item.buf.Reset()
		item.writer.Reset(item.buf)
		if _, err := item.writer.Write(src); err != nil {
			item.writer.Close()
			return nil, err
		}
		if err := item.writer.Close(); err != nil {
			return nil, err
		}
		return bytes.Clone(item.buf.Bytes()), nil
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, int(level))
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type zlibReaderPoolItem struct {
	reader io.ReadCloser
	src    *bytes.Reader
}

var zlibReaderPool = sync.Pool{
	New: func() any {
		return &zlibReaderPoolItem{src: bytes.NewReader(nil)}
	},
}

// zipMaxExpansion bounds the deflate expansion ratio.
const zipMaxExpansion = 1032

// ZIPDecompress inflates src, which must expand to exactly expectedSize
// bytes. The output grows with the inflated data, so a forged size costs
// no more memory than the stream actually produces.
func ZIPDecompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize < 0 {
		return nil, ErrZIPCorrupted
	}
	if len(src) == 0 {
		if expectedSize != 0 {
			return nil, ErrZIPCorrupted
		}
		return nil, nil
	}
	if expectedSize/zipMaxExpansion > len(src) {
		return nil, ErrZIPCorrupted
	}

	item := zlibReaderPool.Get().(*zlibReaderPoolItem)
	defer zlibReaderPool.Put(item)
	if err := item.open(src); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(min(expectedSize, 4*len(src)))
	if _, err := io.Copy(&buf, io.LimitReader(item.reader, int64(expectedSize)+1)); err != nil {
		return nil, ErrZIPCorrupted
	}
	if buf.Len() != expectedSize {
		return nil, ErrZIPCorrupted
	}
	return buf.Bytes(), nil
}

func (item *zlibReaderPoolItem) open(src []byte) error {
	item.src.Reset(src)
	var err error
	if r, ok := item.reader.(zlib.Resetter); ok {
		err = r.Reset(item.src, nil)
	} else {
		item.reader, err = zlib.NewReader(item.src)
	}
	if err != nil {
		item.reader = nil
		return ErrZIPCorrupted
	}
	return nil
}

// ZIPDecompressTo inflates src into dst, which must be exactly the
// decompressed size.
func ZIPDecompressTo(dst, src []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrZIPCorrupted
		}
		return nil
	}

	item := zlibReaderPool.Get().(*zlibReaderPoolItem)
	defer zlibReaderPool.Put(item)
	if err := item.open(src); err != nil {
		return err
	}

	n, err := io.ReadFull(item.reader, dst)
	if err != nil && err != io.EOF {
		return ErrZIPCorrupted
	}
	if n != len(dst) {
		return ErrZIPCorrupted
	}
	var extra [1]byte
	if m, err := item.reader.Read(extra[:]); m != 0 || (err != nil && err != io.EOF) {
		return ErrZIPCorrupted
	}
	return nil
}
