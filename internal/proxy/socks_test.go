package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSocksClientEmptyAddr(t *testing.T) {
	c, err := NewSocksClient("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewSocksClient(t *testing.T) {
	c, err := NewSocksClient("127.0.0.1:1080")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, clientTimeout, c.Timeout)
	assert.NotNil(t, c.Transport)
}
