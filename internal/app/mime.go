package app

import (
	"log"
	"mime"
)

// Minimal containers lack /etc/mime.types; uploads must still be served with
// an image content type.
func init() {
	ensureMimeType(".webp", "image/webp")
	ensureMimeType(".avif", "image/avif")
	ensureMimeType(".svg", "image/svg+xml")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
