package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderIDFormat(t *testing.T) {
	id := newOrderID("alice", "st-1")
	assert.True(t, strings.HasPrefix(id, "alice_st-1_"))

	suffix := strings.TrimPrefix(id, "alice_st-1_")
	assert.NotEmpty(t, suffix)
}

func TestNewOrderIDNeverReused(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newOrderID("alice", "st-1")
		assert.False(t, seen[id], "order id %s generated twice", id)
		seen[id] = true
	}
}
