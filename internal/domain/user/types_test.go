//go:build unit

package user_test

import (
	"testing"

	"tutor-booking/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRole(t *testing.T) {
	cases := []struct {
		in    string
		want  user.Role
		errIs error
	}{
		{in: "student", want: user.RoleStudent},
		{in: "tutor", want: user.RoleTutor},
		{in: "admin", want: user.RoleAdmin},
		{in: "viewer", errIs: user.ErrInvalidRole},
		{in: "", errIs: user.ErrInvalidRole},
		{in: "Tutor", errIs: user.ErrInvalidRole},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := user.NewRole(c.in)
			if c.errIs != nil {
				require.ErrorIs(t, err, c.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}
