package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCliParams(t *testing.T) {
	got := NewCliParams()
	assert.Equal(t, &Run{Database: DefaultDatabase, ExitOnError: true}, got)
	assert.Zero(t, got.WatchInterval)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	r := &Run{NoColor: true}
	got, ok := FromContext(IntoContext(context.Background(), r))
	assert.True(t, ok)
	assert.Same(t, r, got)

	_, ok = FromContext(IntoContext(context.Background(), nil))
	assert.False(t, ok)
}
