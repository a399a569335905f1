package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adboard-backend/internal/domain"
)

func TestStaff(t *testing.T) {
	p := NewStaff([]int64{10, 20})

	assert.True(t, p.IsStaff(10))
	assert.False(t, p.IsStaff(30))
	assert.NoError(t, p.RequireStaff(20))
	assert.ErrorIs(t, p.RequireStaff(30), domain.ErrForbidden)
}
