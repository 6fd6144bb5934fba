package detect

import (
	"bytes"

	"github.com/network-lumen/gateway-agent/internal/types"
)

// sniffContainer runs the ordered container checks of spec.md §4.3 step 4:
// PDF, ZIP family (with textual sub-signatures for Office/epub/apk), HTML,
// CAR. Returns nil if nothing matched.
func sniffContainer(s windowSample) *types.ContainerSignal {
	combined := append(append([]byte{}, s.head...), s.mid...)
	combined = append(combined, s.tail...)

	if bytes.HasPrefix(s.head, []byte("%PDF-")) {
		return &types.ContainerSignal{
			Container: "pdf", MIME: "application/pdf", ExtGuess: "pdf", Confidence: 0.97,
		}
	}

	if bytes.HasPrefix(s.head, []byte("PK\x03\x04")) {
		switch {
		case bytes.Contains(combined, []byte("word/document.xml")):
			return &types.ContainerSignal{
				Container: "docx",
				MIME:      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				ExtGuess:  "docx", Confidence: 0.97,
			}
		case bytes.Contains(combined, []byte("xl/workbook.xml")):
			return &types.ContainerSignal{
				Container: "xlsx",
				MIME:      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				ExtGuess:  "xlsx", Confidence: 0.97,
			}
		case bytes.Contains(combined, []byte("ppt/presentation.xml")):
			return &types.ContainerSignal{
				Container: "pptx",
				MIME:      "application/vnd.openxmlformats-officedocument.presentationml.presentation",
				ExtGuess:  "pptx", Confidence: 0.97,
			}
		case bytes.Contains(combined, []byte("mimetypeapplication/epub+zip")):
			return &types.ContainerSignal{
				Container: "epub", MIME: "application/epub+zip", ExtGuess: "epub", Confidence: 0.97,
			}
		case bytes.Contains(combined, []byte("AndroidManifest.xml")):
			return &types.ContainerSignal{
				Container: "apk", MIME: "application/vnd.android.package-archive", ExtGuess: "apk", Confidence: 0.95,
			}
		default:
			return &types.ContainerSignal{
				Container: "zip", MIME: "application/zip", ExtGuess: "zip", Confidence: 0.9,
			}
		}
	}

	lowerHead := bytes.ToLower(s.head)
	if bytes.Contains(lowerHead, []byte("<html")) || bytes.Contains(lowerHead, []byte("<!doctype html")) {
		return &types.ContainerSignal{
			Container: "html", MIME: "text/html", ExtGuess: "html", Confidence: 0.9,
		}
	}

	if bytes.Contains(s.head, []byte("\"roots\"")) && bytes.Contains(s.head, []byte("\"version\"")) {
		return &types.ContainerSignal{
			Container: "car", MIME: "application/vnd.ipld.car", ExtGuess: "car", Confidence: 0.85,
		}
	}

	return nil
}
