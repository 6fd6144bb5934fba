package detect

import "bytes"

type magicResult struct {
	MIME       string
	Confidence float64
}

var magicSignatures = []struct {
	prefix []byte
	mime   string
}{
	{[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("RIFF"), "image/webp"}, // refined below by checking WEBP at offset 8
	{[]byte("%PDF-"), "application/pdf"},
	{[]byte("PK\x03\x04"), "application/zip"},
	{[]byte{0x1F, 0x8B}, "application/gzip"},
}

// detectMagic maps the head sample's leading bytes to a MIME type with a
// fixed confidence band (spec.md §4.3 step 3): generic zip 0.9, generic
// octet-stream 0.6, everything else 0.98.
func detectMagic(head []byte) magicResult {
	if len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")) {
		return magicResult{MIME: "image/webp", Confidence: 0.98}
	}
	for _, sig := range magicSignatures {
		if sig.mime == "image/webp" {
			continue // handled above with the WEBP sub-check
		}
		if bytes.HasPrefix(head, sig.prefix) {
			conf := 0.98
			if sig.mime == "application/zip" {
				conf = 0.9
			}
			return magicResult{MIME: sig.mime, Confidence: conf}
		}
	}
	return magicResult{MIME: "application/octet-stream", Confidence: 0.6}
}
