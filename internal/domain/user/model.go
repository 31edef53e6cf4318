package user

import (
	"github.com/subsync/subsync/internal/types"
)

type User struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
	// ExternalCustomerID links the user to Subscription.CustomerID
	ExternalCustomerID string `db:"external_customer_id" json:"external_customer_id"`

	types.BaseModel
}

func NewUser(email, name, externalCustomerID string) *User {
	return &User{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Email:              email,
		Name:               name,
		ExternalCustomerID: externalCustomerID,
		BaseModel:          types.GetDefaultBaseModel(),
	}
}

// DisplayName is the greeting name used in notifications
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return "User"
	}
	return u.Name
}
