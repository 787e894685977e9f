// Package deviceinfo builds the fixed-size device identity record sent
// after a successful INFO command.
package deviceinfo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RecordSize is the exact on-wire size of a marshalled Record.
const RecordSize = 96

// Record is the device identity block. Field order and widths are part of
// the wire contract; string fields are NUL-padded ASCII.
type Record struct {
	Model       [32]byte
	Product     [16]byte
	Serial      [16]byte
	Firmware    [8]byte
	Bootloader  [8]byte
	Region      [8]byte
	ProductCode uint32
	Flags       uint32
}

// MarshalBinary emits the record in its fixed wire layout, little-endian
// for the numeric tail.
func (r Record) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, RecordSize)
	out = append(out, r.Model[:]...)
	out = append(out, r.Product[:]...)
	out = append(out, r.Serial[:]...)
	out = append(out, r.Firmware[:]...)
	out = append(out, r.Bootloader[:]...)
	out = append(out, r.Region[:]...)
	out = binary.LittleEndian.AppendUint32(out, r.ProductCode)
	out = binary.LittleEndian.AppendUint32(out, r.Flags)
	return out, nil
}

// UnmarshalBinary parses a record from its fixed wire layout.
func (r *Record) UnmarshalBinary(p []byte) error {
	if len(p) != RecordSize {
		return fmt.Errorf("record is %d bytes, expected %d", len(p), RecordSize)
	}
	copy(r.Model[:], p[0:32])
	copy(r.Product[:], p[32:48])
	copy(r.Serial[:], p[48:64])
	copy(r.Firmware[:], p[64:72])
	copy(r.Bootloader[:], p[72:80])
	copy(r.Region[:], p[80:88])
	r.ProductCode = binary.LittleEndian.Uint32(p[88:92])
	r.Flags = binary.LittleEndian.Uint32(p[92:96])
	return nil
}

// FileProvider reads the identity record from a key=value file on the
// device rootfs.
type FileProvider struct {
	Path string
}

// NewFileProvider returns a provider reading from path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Info loads and parses the identity file. Unknown keys are ignored so the
// file can carry extra fields for other firmware tools.
func (p *FileProvider) Info() (Record, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return Record{}, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	var rec Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Record{}, fmt.Errorf("malformed identity line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "model":
			setField(rec.Model[:], value)
		case "product":
			setField(rec.Product[:], value)
		case "serial":
			setField(rec.Serial[:], value)
		case "firmware":
			setField(rec.Firmware[:], value)
		case "bootloader":
			setField(rec.Bootloader[:], value)
		case "region":
			setField(rec.Region[:], value)
		case "product_code":
			code, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return Record{}, fmt.Errorf("parse product_code %q: %w", value, err)
			}
			rec.ProductCode = uint32(code)
		case "flags":
			flags, err := strconv.ParseUint(value, 0, 32)
			if err != nil {
				return Record{}, fmt.Errorf("parse flags %q: %w", value, err)
			}
			rec.Flags = uint32(flags)
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("read identity file: %w", err)
	}
	return rec, nil
}

// setField copies value into a fixed-width field, truncating when too long.
// The remainder stays NUL-padded.
func setField(dst []byte, value string) {
	copy(dst, value)
}
