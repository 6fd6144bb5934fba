package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffContainerPDF(t *testing.T) {
	sig := sniffContainer(windowSample{head: []byte("%PDF-1.4 rest of header")})
	require.NotNil(t, sig)
	assert.Equal(t, "pdf", sig.Container)
	assert.Equal(t, "application/pdf", sig.MIME)
}

func TestSniffContainerDocx(t *testing.T) {
	sig := sniffContainer(windowSample{
		head: []byte("PK\x03\x04"),
		mid:  []byte("word/document.xml"),
	})
	require.NotNil(t, sig)
	assert.Equal(t, "docx", sig.Container)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", sig.MIME)
}

func TestSniffContainerGenericZip(t *testing.T) {
	sig := sniffContainer(windowSample{head: []byte("PK\x03\x04unknown contents")})
	require.NotNil(t, sig)
	assert.Equal(t, "zip", sig.Container)
	assert.InDelta(t, 0.9, sig.Confidence, 0.001)
}

func TestSniffContainerHTML(t *testing.T) {
	sig := sniffContainer(windowSample{head: []byte("<!DOCTYPE html><html><head></head></html>")})
	require.NotNil(t, sig)
	assert.Equal(t, "html", sig.Container)
}

func TestSniffContainerCAR(t *testing.T) {
	sig := sniffContainer(windowSample{head: []byte(`{"roots":["bafy..."],"version":1}`)})
	require.NotNil(t, sig)
	assert.Equal(t, "car", sig.Container)
}

func TestSniffContainerNoMatch(t *testing.T) {
	sig := sniffContainer(windowSample{head: []byte("just some random bytes")})
	assert.Nil(t, sig)
}
