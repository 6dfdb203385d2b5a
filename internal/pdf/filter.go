package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// decodeData applies a single stream filter to data. parms must contain
// only direct objects.
func decodeData(data []byte, filter Name, parms Dict) ([]byte, error) {
	switch filter {
	case "FlateDecode":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("FlateDecode: %w", err)
		}
		return applyPredictor(out, parms)
	default:
		return nil, fmt.Errorf("unsupported stream filter %q", filter)
	}
}

// compressFlate encodes data with the FlateDecode filter. The compression
// level is fixed so that identical inputs yield identical output bytes.
func compressFlate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dictInt returns the integer stored under key, or def when the entry is
// absent or not a direct integer.
func dictInt(d Dict, key Name, def int) int {
	if d == nil {
		return def
	}
	if x, ok := d[key].(Integer); ok {
		return int(x)
	}
	return def
}

// applyPredictor reverses the predictor transformation described by the
// decode parameters. Only 8 bits per component are supported, which covers
// the cross reference streams and image data this package deals with.
func applyPredictor(data []byte, parms Dict) ([]byte, error) {
	predictor := dictInt(parms, "Predictor", 1)
	if predictor == 1 {
		return data, nil
	}
	colors := dictInt(parms, "Colors", 1)
	bpc := dictInt(parms, "BitsPerComponent", 8)
	columns := dictInt(parms, "Columns", 1)
	if bpc != 8 {
		return nil, fmt.Errorf("predictor with %d bits per component not supported", bpc)
	}
	if colors < 1 || columns < 1 {
		return nil, fmt.Errorf("invalid predictor parameters")
	}
	bpp := colors
	rowLen := colors * columns

	switch {
	case predictor == 2:
		// TIFF horizontal differencing
		out := make([]byte, len(data))
		copy(out, data)
		for row := 0; row+rowLen <= len(out); row += rowLen {
			for i := bpp; i < rowLen; i++ {
				out[row+i] += out[row+i-bpp]
			}
		}
		return out, nil
	case predictor >= 10 && predictor <= 15:
		return unfilterPNG(data, rowLen, bpp)
	}
	return nil, fmt.Errorf("unsupported predictor %d", predictor)
}

// unfilterPNG reverses PNG row filtering. Each row is preceded by a tag
// byte selecting one of the five standard row filters.
func unfilterPNG(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("predictor data is not a whole number of rows")
	}
	rows := len(data) / stride
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		tag := data[r*stride]
		copy(cur, data[r*stride+1:(r+1)*stride])
		switch tag {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = cur[i-bpp]
					upLeft = prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG row filter %d", tag)
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := absInt(p - int(a))
	pb := absInt(p - int(b))
	pc := absInt(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
