package entity

import (
	coreEntity "github.com/JonCoulter/whenly/core/entity"
)

// User is a signed-in account. Anonymous participants never get a row here;
// they exist only as display names on their responses.
type User struct {
	coreEntity.BaseEntity
	Email   string  `db:"email" json:"email"`
	Name    string  `db:"name" json:"name"`
	Picture *string `db:"picture" json:"picture,omitempty"`
}
