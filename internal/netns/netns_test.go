package netns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlePath(t *testing.T) {
	assert.Equal(t, "/run/netns/blue", HandlePath("blue"))
	assert.Equal(t, "/run/netns/ns-0", HandlePath("ns-0"))
}
