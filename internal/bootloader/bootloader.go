// Package bootloader enumerates and reads the firmware image blocks stored
// on the boot flash partition.
//
// The partition starts with a block table: a 4-byte "BLDT" magic, a 4-byte
// little-endian block count, then one 8-byte descriptor per block holding
// the block's byte offset and length within the partition.
package bootloader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Magic identifies a boot partition carrying a block table.
var Magic = [4]byte{'B', 'L', 'D', 'T'}

const (
	headerSize = 8
	descSize   = 8

	// maxBlocks bounds the descriptor table; a count beyond this means a
	// corrupt or foreign partition, not a bigger image.
	maxBlocks = 1024

	// maxBlockSize bounds one block read buffer (64 MiB).
	maxBlockSize = 64 << 20
)

type blockDesc struct {
	offset uint32
	size   uint32
}

// Image is an open boot partition with its block table parsed.
type Image struct {
	f      *os.File
	blocks []blockDesc
}

// Open opens the boot partition device and parses its block table.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boot partition %q: %w", path, err)
	}

	img, err := parse(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parse block table of %q: %w", path, err)
	}
	return img, nil
}

func parse(f *os.File) (*Image, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(header[:4]) != Magic {
		return nil, fmt.Errorf("bad magic %q", header[:4])
	}
	count := binary.LittleEndian.Uint32(header[4:8])
	if count > maxBlocks {
		return nil, fmt.Errorf("block count %d exceeds limit %d", count, maxBlocks)
	}

	table := make([]byte, int(count)*descSize)
	if _, err := io.ReadFull(f, table); err != nil {
		return nil, fmt.Errorf("read %d descriptors: %w", count, err)
	}

	blocks := make([]blockDesc, count)
	for i := range blocks {
		d := table[i*descSize:]
		blocks[i] = blockDesc{
			offset: binary.LittleEndian.Uint32(d[0:4]),
			size:   binary.LittleEndian.Uint32(d[4:8]),
		}
		if blocks[i].size > maxBlockSize {
			return nil, fmt.Errorf("block %d size %d exceeds limit %d", i, blocks[i].size, maxBlockSize)
		}
	}
	return &Image{f: f, blocks: blocks}, nil
}

// BlockCount returns the number of enumerable image blocks.
func (img *Image) BlockCount() int {
	return len(img.blocks)
}

// BlockSize returns the byte length of block i.
func (img *Image) BlockSize(i int) int {
	return int(img.blocks[i].size)
}

// ReadBlock reads block i into a buffer sized exactly to the block.
func (img *Image) ReadBlock(i int) ([]byte, error) {
	if i < 0 || i >= len(img.blocks) {
		return nil, fmt.Errorf("block %d out of range (have %d)", i, len(img.blocks))
	}
	d := img.blocks[i]
	buf := make([]byte, d.size)
	if _, err := img.f.ReadAt(buf, int64(d.offset)); err != nil {
		return nil, fmt.Errorf("read block %d at offset %d: %w", i, d.offset, err)
	}
	return buf, nil
}

// Close releases the partition descriptor.
func (img *Image) Close() error {
	return img.f.Close()
}
