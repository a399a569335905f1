// Package policy holds the single staff capability check used at the entry of
// every staff-only operation.
package policy

import (
	"fmt"

	"adboard-backend/internal/domain"
)

type Staff struct {
	ids map[int64]struct{}
}

func NewStaff(ids []int64) *Staff {
	p := &Staff{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		p.ids[id] = struct{}{}
	}
	return p
}

func (p *Staff) IsStaff(accountID int64) bool {
	_, ok := p.ids[accountID]
	return ok
}

// RequireStaff fails with domain.ErrForbidden unless accountID is staff.
func (p *Staff) RequireStaff(accountID int64) error {
	if !p.IsStaff(accountID) {
		return fmt.Errorf("account %d is not staff: %w", accountID, domain.ErrForbidden)
	}
	return nil
}
