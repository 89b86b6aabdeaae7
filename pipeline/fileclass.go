package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"strings"
)

// attachmentExts is the known binary/media extension list used by every scan
// to tell attachments from pages.
var attachmentExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".bmp": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true,
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true,
	".mp4": true, ".webm": true, ".mov": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
}

// IsAttachmentExt reports whether ext (with leading dot) names a known
// attachment type.
func IsAttachmentExt(ext string) bool {
	return attachmentExts[strings.ToLower(ext)]
}

// IsImageExt reports whether ext names an image; images get the image
// attachment role.
func IsImageExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".ico":
		return true
	}
	return false
}

// MimeByExt maps an extension to a MIME type, with a binary fallback.
func MimeByExt(ext string) string {
	if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Checksum returns the hex sha256 of data, recorded into FileInfo metadata
// during scans.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
