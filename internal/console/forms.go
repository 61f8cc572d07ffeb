package console

import (
	"strings"

	"userconsole/internal/client"
	"userconsole/internal/models"
	strutil "userconsole/pkg/string"
	"userconsole/pkg/validation"
)

// LoginForm is the login mode of the auth page.
type LoginForm struct {
	Username string `form:"username" label:"Username" validate:"required,min=3,max=50"`
	Password string `form:"password" label:"Password" validate:"required,min=6,max=100"`
}

// RegisterForm is the register mode of the auth page.
type RegisterForm struct {
	Username string `form:"username" label:"Username" validate:"required,min=3,max=50"`
	Password string `form:"password" label:"Password" validate:"required,min=6,max=100"`
	FullName string `form:"fullName" label:"Full name" validate:"required,notblank,min=1,max=200"`
	Email    string `form:"email" label:"Email" validate:"required,email"`
	Phone    string `form:"phone" label:"Phone" validate:"omitempty,max=20"`
}

// ProfileForm holds the editable profile fields. Username, role and
// creation date are read-only.
type ProfileForm struct {
	FullName string `form:"fullName" label:"Full name" validate:"required,notblank,min=1,max=200"`
	Email    string `form:"email" label:"Email" validate:"required,email"`
	Phone    string `form:"phone" label:"Phone" validate:"omitempty,max=20"`
}

// UserEditForm is the admin edit of another account.
type UserEditForm struct {
	Username string `form:"username" label:"Username" validate:"required,min=3,max=50"`
	Email    string `form:"email" label:"Email" validate:"required,email"`
	FullName string `form:"fullName" label:"Full name" validate:"required,notblank,min=1,max=200"`
	Role     string `form:"role" label:"Role" validate:"required,oneof=USER ADMIN"`
	Status   string `form:"status" label:"Status" validate:"required,oneof=ACTIVE INACTIVE"`
}

// Passwords are taken verbatim.
func (f *LoginForm) normalize() {
	strutil.TrimStrings(&f.Username)
}

func (f *RegisterForm) normalize() {
	strutil.TrimStrings(&f.Username, &f.FullName, &f.Email, &f.Phone)
}

func (f *ProfileForm) normalize() {
	strutil.TrimStrings(&f.FullName, &f.Email, &f.Phone)
}

func (f *UserEditForm) normalize() {
	strutil.TrimStrings(&f.Username, &f.Email, &f.FullName, &f.Role, &f.Status)
	f.Role = strings.ToUpper(f.Role)
	f.Status = strings.ToUpper(f.Status)
}

// ProfileFormFrom pre-fills the profile form from the cached record.
func ProfileFormFrom(u models.User) ProfileForm {
	return ProfileForm{FullName: u.FullName, Email: u.Email, Phone: u.Phone}
}

// UserEditFormFrom pre-fills the admin edit form.
func UserEditFormFrom(u models.User) UserEditForm {
	status := models.StatusActive
	if !u.Active() {
		status = models.StatusInactive
	}
	return UserEditForm{
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
		Status:   string(status),
	}
}

// fieldErrors returns the validation failures of form, or nil.
func fieldErrors(form any) (validation.FieldErrors, error) {
	err := validation.Validate(form)
	if err == nil {
		return nil, nil
	}
	if fe, ok := err.(validation.FieldErrors); ok {
		return fe, nil
	}
	return nil, err
}

func (f ProfileForm) request() client.ProfileUpdate {
	return client.ProfileUpdate{FullName: f.FullName, Email: f.Email, Phone: f.Phone}
}

func (f UserEditForm) request() client.UserUpdate {
	return client.UserUpdate{
		Username: f.Username,
		Email:    f.Email,
		FullName: f.FullName,
		Role:     models.Role(f.Role),
		Status:   models.Status(f.Status),
	}
}

// apply returns u with the form's fields written over it.
func (f ProfileForm) apply(u models.User) models.User {
	u.FullName = f.FullName
	u.Email = f.Email
	u.Phone = f.Phone
	return u
}

func (f UserEditForm) apply(u models.User) models.User {
	u.Username = f.Username
	u.Email = f.Email
	u.FullName = f.FullName
	u.Role = models.Role(f.Role)
	u.Status = models.Status(f.Status)
	return u
}
