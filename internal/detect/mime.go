package detect

import (
	"strings"

	"github.com/network-lumen/gateway-agent/internal/types"
)

const genericZipMIME = "application/zip"

// isExcludedMedia implements spec.md §4.3 step 1: HEAD content-type
// indicating video/* or audio/* short-circuits detection entirely.
func isExcludedMedia(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
}

// kindForMIME maps a MIME type to the coarse Kind enum (spec.md §3).
func kindForMIME(mime string) types.Kind {
	switch {
	case mime == "":
		return types.KindUnknown
	case strings.HasPrefix(mime, "image/"):
		return types.KindImage
	case mime == "text/html":
		return types.KindHTML
	case strings.HasPrefix(mime, "text/"):
		return types.KindText
	case mime == "application/pdf",
		mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		mime == "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		mime == "application/epub+zip":
		return types.KindDoc
	case strings.HasPrefix(mime, "video/"):
		return types.KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return types.KindAudio
	case mime == "application/zip":
		return types.KindArchive
	case mime == "application/vnd.android.package-archive":
		return types.KindPackage
	case mime == "application/vnd.ipld.car":
		return types.KindIPLD
	default:
		return types.KindUnknown
	}
}

func kindForContainer(container string) types.Kind {
	switch container {
	case "pdf", "docx", "xlsx", "pptx", "epub":
		return types.KindDoc
	case "apk":
		return types.KindPackage
	case "html":
		return types.KindHTML
	case "car":
		return types.KindIPLD
	case "zip":
		return types.KindArchive
	default:
		return types.KindUnknown
	}
}
