package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownTimeout_OutlastsSlowestCheckout(t *testing.T) {
	requestTimeout := 15 * time.Second

	got := ShutdownTimeout(requestTimeout)

	// Request deadline plus the detached commit window, with room left over.
	assert.Greater(t, got, 2*requestTimeout)
	assert.Equal(t, 40*time.Second, got)
}
