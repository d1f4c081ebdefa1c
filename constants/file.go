package constants

import "strings"

// AllowedExtensions holds the file extensions picked up by batch import.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
}

// ImageMimeTypes maps image extensions to the MIME type sent upstream.
var ImageMimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeTypeForExt returns the MIME type for a document extension.
func MimeTypeForExt(ext string) string {
	ext = NormalizeExt(ext)
	if ext == "pdf" {
		return "application/pdf"
	}
	if mt, ok := ImageMimeTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}
