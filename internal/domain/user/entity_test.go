package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Validate(t *testing.T) {
	assert.NoError(t, NewUser("Ada", "reader", 30).Validate())
	assert.ErrorIs(t, NewUser("Ada", "\n", 30).Validate(), ErrInvalidUser)
	assert.ErrorIs(t, NewUser("Ada", "reader", 0).Validate(), ErrInvalidUser)

	var nilUser *User
	assert.ErrorIs(t, nilUser.Validate(), ErrInvalidUser)
}

func TestUser_UpdateProfile(t *testing.T) {
	u := NewUser("Ada", "reader", 30)
	u.ID = 7
	createdAt := u.CreatedAt

	u.UpdateProfile("Ada King", "countess", 36)
	assert.Equal(t, uint(7), u.ID)
	assert.Equal(t, createdAt, u.CreatedAt)
	assert.Equal(t, "countess", u.Title)
	assert.False(t, u.UpdatedAt.Before(createdAt))
}
