package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmallPayloadUntouched(t *testing.T) {
	data := []byte(`{"name":"World"}`)
	out, compressed, err := Compress(data)
	require.NoError(t, err)
	assert.False(t, compressed)
	assert.Equal(t, data, out)
}

func TestLargePayloadRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"query":"{ projects }"},`), 200)
	out, compressed, err := Compress(data)
	require.NoError(t, err)
	require.True(t, compressed)
	assert.Less(t, len(out), len(data))

	restored, err := Decompress(out)
	require.NoError(t, err)
	assert.Equal(t, data, restored)
}

func TestDecompressGarbage(t *testing.T) {
	_, err := Decompress([]byte("not gzip"))
	assert.Error(t, err)
}
