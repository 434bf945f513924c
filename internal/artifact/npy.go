package artifact

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Minimal NPY v1.0 codec for 2-D little-endian float matrices. The embedding
// artifact keeps NumPy's on-disk format so either side of the pipeline can
// produce or consume it.

var npyMagic = []byte("\x93NUMPY")

var npyHeaderRe = regexp.MustCompile(
	`'descr':\s*'([^']+)'\s*,\s*'fortran_order':\s*(True|False)\s*,\s*'shape':\s*\((\d+)\s*,\s*(\d+)\s*,?\)`,
)

func readMatrixNPY(r io.Reader) ([][]float32, error) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("npy: read magic: %w", err)
	}
	if string(head[:6]) != string(npyMagic) {
		return nil, fmt.Errorf("npy: bad magic %q", head[:6])
	}
	major := head[6]

	var headerLen int
	switch major {
	case 1:
		var l uint16
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(l)
	case 2, 3:
		var l uint32
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, fmt.Errorf("npy: read header length: %w", err)
		}
		headerLen = int(l)
	default:
		return nil, fmt.Errorf("npy: unsupported version %d", major)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("npy: read header: %w", err)
	}
	m := npyHeaderRe.FindStringSubmatch(string(headerBytes))
	if m == nil {
		return nil, fmt.Errorf("npy: unparseable header %q", strings.TrimSpace(string(headerBytes)))
	}
	descr := m[1]
	if m[2] == "True" {
		return nil, fmt.Errorf("npy: fortran order not supported")
	}
	rows, _ := strconv.Atoi(m[3])
	cols, _ := strconv.Atoi(m[4])

	var itemSize int
	switch descr {
	case "<f4":
		itemSize = 4
	case "<f8":
		itemSize = 8
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q (want <f4 or <f8)", descr)
	}

	raw := make([]byte, rows*cols*itemSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("npy: read data (%dx%d %s): %w", rows, cols, descr, err)
	}

	out := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		base := i * cols * itemSize
		for j := 0; j < cols; j++ {
			off := base + j*itemSize
			if itemSize == 4 {
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
			} else {
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[off:])))
			}
		}
		out[i] = row
	}
	return out, nil
}

func writeMatrixNPY(w io.Writer, matrix [][]float32, dim int) error {
	header := fmt.Sprintf(
		"{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }",
		len(matrix), dim,
	)
	// Total header (magic + version + len + dict + '\n') pads to 64 bytes.
	padTo := 64
	base := len(npyMagic) + 2 + 2
	padded := header
	for (base+len(padded)+1)%padTo != 0 {
		padded += " "
	}
	padded += "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return fmt.Errorf("npy: write magic: %w", err)
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return fmt.Errorf("npy: write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(padded))); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := w.Write([]byte(padded)); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}

	buf := make([]byte, dim*4)
	for i, row := range matrix {
		if len(row) != dim {
			return fmt.Errorf("npy: row %d has dimension %d, want %d", i, len(row), dim)
		}
		for j, v := range row {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("npy: write row %d: %w", i, err)
		}
	}
	return nil
}
