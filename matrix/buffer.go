package matrix

import "sync/atomic"

// Buffer is the live frame buffer: one packed intensity word per
// (row, col) cell. It is read continuously by the scan goroutine while
// draw calls store into it, so cells are widened to uint32 and
// exchanged with atomic loads and stores instead of a lock. A write
// becomes visible within the next full modulation cycle; a pixel
// updated mid-cycle may tear for one frame, which is accepted.
type Buffer struct {
	rows, cols int
	cells      []uint32
}

// NewBuffer allocates a zeroed rows x cols buffer.
func NewBuffer(rows, cols int) *Buffer {
	return &Buffer{
		rows:  rows,
		cols:  cols,
		cells: make([]uint32, rows*cols),
	}
}

func (b *Buffer) Rows() int { return b.rows }
func (b *Buffer) Cols() int { return b.cols }

// At returns the packed word at (row, col).
func (b *Buffer) At(row, col int) uint16 {
	return uint16(atomic.LoadUint32(&b.cells[row*b.cols+col]))
}

// Set stores the packed word at (row, col).
func (b *Buffer) Set(row, col int, v uint16) {
	atomic.StoreUint32(&b.cells[row*b.cols+col], uint32(v))
}

// Clear zeroes every cell. Cells are cleared one at a time; the scan
// may observe a partially cleared buffer for one sweep.
func (b *Buffer) Clear() {
	for i := range b.cells {
		atomic.StoreUint32(&b.cells[i], 0)
	}
}
