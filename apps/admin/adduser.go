package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/user"
)

var errUnknownRole = errors.New("invalid role")

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if name == "" {
		name = uname
	}
	if !isRole(role) {
		return errUnknownRole
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname})
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "finding user")
	}
	exists := err == nil

	if !exists {
		now := time.Now().UTC()
		usr = user.User{
			ID:        uuid.NewString(),
			Username:  uname,
			CreatedAt: now,
		}
	}
	usr.Name = name
	usr.Email = email
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}

func isRole(role string) bool {
	for _, r := range user.AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
