package app

import (
	"log/slog"
	"mime"
)

// extraMimeTypes covers static assets and the documents returned by the
// report webhooks on hosts with a sparse mime.types.
var extraMimeTypes = map[string]string{
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":  "application/pdf",
}

func init() {
	for ext, typ := range extraMimeTypes {
		registerMimeType(ext, typ)
	}
}

func registerMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
