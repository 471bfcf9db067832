package gallery

import (
	"time"

	"github.com/google/uuid"
)

// Gallery is owned by the surrounding application; only the fields the
// access gate and upload path need are read here.
type Gallery struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"ownerId"`
	Title      string     `json:"title"`
	InviteOnly bool       `json:"inviteOnly"`
	DeletedAt  *time.Time `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (g *Gallery) IsDeleted() bool {
	return g.DeletedAt != nil
}
