// Package ziputil writes reproducible zip entries: fixed timestamps, fixed
// modes and sanitized names.
package ziputil

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// FixedZipTime ensures byte-for-byte reproducible archives (1980-01-01 UTC).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// SanitizePath normalizes ZIP entry paths (forward slashes, no drive, no leading '/'),
// and removes '.' and '..' segments without escaping the root.
func SanitizePath(p string) string {
	s := filepath.ToSlash(p)
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	s = strings.TrimLeft(s, "/")
	parts := strings.Split(s, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			continue
		}
		stack = append(stack, part)
	}
	s = strings.Join(stack, "/")
	if s == "" {
		return "entry"
	}
	return s
}

func header(name string) *zip.FileHeader {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	return h
}

// WriteJSON writes an indented JSON entry.
func WriteJSON(zw *zip.Writer, name string, v any) error {
	w, err := zw.CreateHeader(header(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriteText writes a raw entry.
func WriteText(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(header(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
