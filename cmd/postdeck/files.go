package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/debemdeboas/postdeck/internal/model"
)

// readBlob loads a local file. The content type comes from the bytes, or from
// the extension when sniffing is inconclusive.
func readBlob(path string) (model.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Blob{}, fmt.Errorf("read %s: %w", path, err)
	}
	return model.Blob{
		Name:        filepath.Base(path),
		ContentType: contentType(path, data),
		Data:        data,
	}, nil
}

func contentType(path string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != "application/octet-stream" && sniffed != "text/plain" {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return byExt
	}
	return sniffed
}
