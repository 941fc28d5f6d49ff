package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

var (
	// qcow2Magic is "QFI" followed by 0xfb, the first four bytes of every
	// QCOW2 file header.
	qcow2Magic = []byte{0x51, 0x46, 0x49, 0xfb}

	// mbrSignature is the boot sector signature at offset 510 of bootable
	// disks. GPT disks carry it too, in the protective MBR.
	mbrSignature = []byte{0x55, 0xaa}
)

// DetectImageFormat detects a disk image's format by reading magic bytes.
// Returns VolumeFormatQCOW2 for QCOW2 images, VolumeFormatRaw for bootable
// raw images, and an error for anything else. This keeps arbitrary files
// out of the image pool.
func DetectImageFormat(filePath string) (VolumeFormat, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return "", fmt.Errorf("file too small to be valid image (< 4 bytes): %w", err)
	}

	if bytes.Equal(magic, qcow2Magic) {
		return VolumeFormatQCOW2, nil
	}

	if _, err := f.Seek(510, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek to boot sector signature: %w", err)
	}

	sig := make([]byte, 2)
	if _, err := io.ReadFull(f, sig); err != nil {
		return "", fmt.Errorf("file too small for boot sector (< 512 bytes): %w", err)
	}

	if bytes.Equal(sig, mbrSignature) {
		return VolumeFormatRaw, nil
	}

	return "", fmt.Errorf("not qcow2 and missing boot sector signature (0x55aa at offset 510)")
}
