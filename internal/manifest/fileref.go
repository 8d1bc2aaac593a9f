package manifest

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FileRef points at a stored file or image.
//
// Manifest returns file properties as a bare path string and image
// properties as an object keyed by size name. Both decode into FileRef.
type FileRef struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// imageSizes is the preference order when an image object has no url key.
var imageSizes = []string{"large", "medium", "small", "thumbnail"}

func (f *FileRef) UnmarshalJSON(data []byte) error {
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		f.URL = path
		f.Name = ""
		if path != "" {
			f.Name = filepath.Base(path)
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("file reference: %w", err)
	}

	str := func(key string) string {
		raw, ok := obj[key]
		if !ok {
			return ""
		}
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	}

	f.URL = str("url")
	if f.URL == "" {
		for _, size := range imageSizes {
			if u := str(size); u != "" {
				f.URL = u
				break
			}
		}
	}
	f.Name = str("name")
	if f.Name == "" && f.URL != "" {
		f.Name = filepath.Base(f.URL)
	}
	return nil
}

// File is a binary field attached to a create payload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file length in bytes.
func (f *File) Size() int {
	return len(f.Data)
}

// IsImage reports whether the content type is an image type.
func (f *File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// OpenFile reads a local file into a File, deriving the content type from
// the extension and falling back to content sniffing.
func OpenFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	return &File{
		Name:        filepath.Base(path),
		ContentType: ct,
		Data:        data,
	}, nil
}
