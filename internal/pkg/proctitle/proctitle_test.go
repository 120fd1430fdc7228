package proctitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "doorlock", clip("  doorlock "))
	assert.Equal(t, "doorlock-gatewa", clip("doorlock-gateway-eu"))
	assert.Empty(t, clip("   "))
}

func TestSetRejectsEmpty(t *testing.T) {
	_, err := Set(" ")
	assert.Error(t, err)
}
