package rtr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houseofcat/rabbitretriever/pkg/rtr"
)

func TestZstdRoundtrip(t *testing.T) {

	data := []byte("zstd roundtrip data zstd roundtrip data zstd roundtrip data")

	buffer := &bytes.Buffer{}
	require.NoError(t, rtr.CompressWithZstd(data, buffer))
	assert.NotEqual(t, data, buffer.Bytes())

	require.NoError(t, rtr.DecompressWithZstd(buffer))
	assert.Equal(t, data, buffer.Bytes())
}

func TestGzipRoundtrip(t *testing.T) {

	data := []byte("gzip roundtrip data gzip roundtrip data gzip roundtrip data")

	buffer := &bytes.Buffer{}
	require.NoError(t, rtr.CompressWithGzip(data, buffer))
	assert.NotEqual(t, data, buffer.Bytes())

	require.NoError(t, rtr.DecompressWithGzip(buffer))
	assert.Equal(t, data, buffer.Bytes())
}
