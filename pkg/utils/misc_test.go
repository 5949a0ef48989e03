package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashContent(nil))
	assert.NotEqual(t, HashContent([]byte("a")), HashContent([]byte("b")))
}

func TestGetHostname(t *testing.T) {
	assert.NotEmpty(t, GetHostname())
}
