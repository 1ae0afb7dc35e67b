package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/user"
	logsvc "github.com/trezcool/matricula/services/logger"
	"github.com/trezcool/matricula/testutil"
)

type noConflicts struct{}

func (noConflicts) CheckUniqueness(context.Context, string, string, ...string) error { return nil }

func TestNewUser_Validate(t *testing.T) {
	validate := validator.New()
	translator := testutil.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logsvc.NewTestLogger())

	valid := func() user.NewUser {
		return user.NewUser{
			Name:            "Marta Ruiz",
			Username:        "MartaRuiz",
			Email:           "Marta@Test.ec",
			Password:        "Matr1cula!2024x",
			PasswordConfirm: "Matr1cula!2024x",
		}
	}
	withPassword := func(pwd string) func(*user.NewUser) {
		return func(nu *user.NewUser) {
			nu.Password = pwd
			nu.PasswordConfirm = pwd
		}
	}

	tests := []struct {
		name    string
		modify  func(*user.NewUser)
		wantErr map[string]string
	}{
		{name: "valid", modify: func(*user.NewUser) {}},
		{name: "too short", modify: withPassword("Ab1!"), wantErr: map[string]string{"password": "password must contain at least 8 characters"}},
		{name: "whitespace", modify: withPassword("Abcd 1234!"), wantErr: map[string]string{"password": "password must not contain whitespace"}},
		{name: "all numeric", modify: withPassword("12345678901"), wantErr: map[string]string{"password": "password cannot be entirely numeric"}},
		{
			name: "not complex", modify: withPassword("abcdefgh1"),
			wantErr: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		},
		{name: "common", modify: withPassword("P@ssw0rd"), wantErr: map[string]string{"password": "password is too common"}},
		{
			name: "similar to the name",
			modify: func(nu *user.NewUser) {
				nu.Name = "Ana Lopez"
				nu.Username = "analopez"
				withPassword("Ana.Lopez1")(nu)
			},
			wantErr: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{
			name:    "confirmation mismatch",
			modify:  func(nu *user.NewUser) { nu.PasswordConfirm = "Matr1cula!2024y" },
			wantErr: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
		{name: "unknown role", modify: func(nu *user.NewUser) { nu.Role = "rector" }, wantErr: map[string]string{"role": "invalid role"}},
		{
			name:    "bad username",
			modify:  func(nu *user.NewUser) { nu.Username = "marta-ruiz" },
			wantErr: map[string]string{"username": "only alphanumeric characters and underscores are allowed"},
		},
		{name: "missing name", modify: func(nu *user.NewUser) { nu.Name = "  " }, wantErr: map[string]string{"name": "this field is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.modify(&nu)
			err := nu.Validate(context.Background(), validate, noConflicts{})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, "martaruiz", nu.Username)
				assert.Equal(t, "marta@test.ec", nu.Email)
				return
			}

			var vErrs validator.ValidationErrors
			if !assert.ErrorAs(t, err, &vErrs) {
				return
			}
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}
