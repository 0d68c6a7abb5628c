/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: files.go
Description: File helpers shared by the resource loaders and writers. Paths ending in
.zst are transparently zstd-compressed on write and decompressed on read; parent
directories are created on write.
*/

package resources

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix marks zstd-compressed resource files
const CompressedSuffix = ".zst"

// Compressed reports whether path names a zstd-compressed file
func Compressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

type encodedFile struct {
	*zstd.Encoder
	file *os.File
}

func (f *encodedFile) Close() error {
	if err := f.Encoder.Close(); err != nil {
		_ = f.file.Close()
		return err
	}
	return f.file.Close()
}

type decodedFile struct {
	io.ReadCloser
	file *os.File
}

func (f *decodedFile) Close() error {
	_ = f.ReadCloser.Close()
	return f.file.Close()
}

// Create opens path for writing, creating parent directories
func Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if !Compressed(path) {
		return file, nil
	}

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create zstd writer for %s: %w", path, err)
	}
	return &encodedFile{Encoder: encoder, file: file}, nil
}

// Open opens path for reading
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !Compressed(path) {
		return file, nil
	}

	decoder, err := zstd.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
	}
	return &decodedFile{ReadCloser: decoder.IOReadCloser(), file: file}, nil
}
