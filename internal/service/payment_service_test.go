package service

import (
	"testing"

	"bookstore-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	lines := []models.OrderLine{
		{BookID: "bk-1", Count: 2, UnitPrice: 100},
		{BookID: "bk-2", Count: 1, UnitPrice: 500},
	}

	assert.Equal(t, int64(2*100+1*500), ComputeTotal(lines))
}

func TestComputeTotalEmpty(t *testing.T) {
	assert.Equal(t, int64(0), ComputeTotal(nil))
	assert.Equal(t, int64(0), ComputeTotal([]models.OrderLine{}))
}

func TestComputeTotalLargeCounts(t *testing.T) {
	// count x price must not truncate through int
	lines := []models.OrderLine{
		{BookID: "bk", Count: 1_000_000, UnitPrice: 10_000},
	}
	assert.Equal(t, int64(10_000_000_000), ComputeTotal(lines))
}
