package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers_RegisterAndGet(t *testing.T) {
	t.Parallel()

	h := New()
	h.RegisterHandler("Upper", func() {})
	h.RegisterHandler("Lower", func() {})

	_, ok := h.Get("Upper")
	require.True(t, ok)
	_, ok = h.Get("Missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"Lower", "Upper"}, h.Names())
}

func TestHandlers_DuplicatePanics(t *testing.T) {
	t.Parallel()

	h := New()
	h.RegisterHandler("Upper", func() {})
	assert.Panics(t, func() { h.RegisterHandler("Upper", func() {}) })
	assert.Panics(t, func() { h.RegisterHandler("Nil", nil) })
}
