package scan

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest file accepted for scanning.
const MaxFileSize = 10 * 1024 * 1024

// File is a receipt or statement held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file length in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// IsPDF reports whether the file is a PDF document.
func (f File) IsPDF() bool {
	return f.ContentType == "application/pdf"
}

// LoadFile reads path and determines its content type from the extension, falling back
// to content sniffing.
func LoadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.Size() > MaxFileSize {
		return File{}, &FileError{Op: "Load", File: path, Err: ErrFileTooLarge}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{Name: path, ContentType: DetectContentType(path, data), Data: data}, nil
}

// DetectContentType returns the media type of a file without parameters.
func DetectContentType(name string, data []byte) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// receiptImageTypes are the image formats accepted by receipt mode.
var receiptImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Validate checks size and type limits before a file is sent to a scanner.
func Validate(f File, mode Mode) error {
	const op = "Validate"

	if f.Size() == 0 {
		return &FileError{Op: op, File: f.Name, Err: ErrEmptyFile}
	}
	if f.Size() > MaxFileSize {
		return &FileError{Op: op, File: f.Name, Err: ErrFileTooLarge}
	}

	var ok bool
	switch mode {
	case ModeReceipt:
		ok = receiptImageTypes[f.ContentType]
	case ModePDF:
		ok = f.IsPDF()
	default:
		ok = strings.HasPrefix(f.ContentType, "image/") || f.IsPDF()
	}
	if !ok {
		return &FileError{Op: op, File: f.Name, Err: fmt.Errorf("%w %q for %s mode", ErrUnsupportedType, f.ContentType, mode)}
	}
	return nil
}
