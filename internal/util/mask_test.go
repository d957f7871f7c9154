package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "s3******", MaskSecret("s3cr3t-admin-key"))
	assert.NotContains(t, MaskSecret("s3cr3t-admin-key"), "admin")
}
