package validation

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// Avatar is either the URL of an existing image or a new upload. A file
// takes precedence over a URL.
type Avatar struct {
	URL  string                `form:"avatar_url" validate:"omitempty,http_url"`
	File *multipart.FileHeader `form:"-" validate:"-"`
}

// IsZero reports whether neither a URL nor a file was given.
func (a Avatar) IsZero() bool {
	return a.URL == "" && a.File == nil
}

// CreateUserForm is the form that creates a dashboard user.
type CreateUserForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Name     string `form:"name" validate:"required"`
	Role     string `form:"role" validate:"required"`
	Avatar   Avatar
}

// UpdateUserForm edits a user's profile. Leaving the avatar empty keeps the
// stored one.
type UpdateUserForm struct {
	Name   string `form:"name" validate:"required"`
	Role   string `form:"role" validate:"required"`
	Avatar Avatar
}

// ParseLogin decodes and validates the sign-in form.
func ParseLogin(fd FormData) (LoginForm, FieldErrors) {
	form := LoginForm{
		Email:    fd.Get("email"),
		Password: fd.Values.Get("password"),
	}
	return form, Struct(&form)
}

// ParseCreateUser decodes and validates the create user form.
func ParseCreateUser(fd FormData) (CreateUserForm, FieldErrors) {
	form := CreateUserForm{
		Email:    fd.Get("email"),
		Password: fd.Values.Get("password"),
		Name:     fd.Get("name"),
		Role:     fd.Get("role"),
		Avatar:   avatarFrom(fd),
	}
	fe := Struct(&form)
	checkAvatarFile(form.Avatar, fe)
	return form, fe
}

// ParseUpdateUser decodes and validates the update user form.
func ParseUpdateUser(fd FormData) (UpdateUserForm, FieldErrors) {
	form := UpdateUserForm{
		Name:   fd.Get("name"),
		Role:   fd.Get("role"),
		Avatar: avatarFrom(fd),
	}
	fe := Struct(&form)
	checkAvatarFile(form.Avatar, fe)
	return form, fe
}

func avatarFrom(fd FormData) Avatar {
	a := Avatar{URL: fd.Get("avatar_url"), File: fd.File("avatar")}
	if a.File != nil {
		a.URL = ""
	}
	return a
}

// checkAvatarFile requires an uploaded avatar to be a small image. The type
// is sniffed from the content, not taken from the client.
func checkAvatarFile(a Avatar, fe FieldErrors) {
	if a.File == nil {
		return
	}
	if a.File.Size > MaxAvatarBytes {
		fe.Add("avatar", fmt.Sprintf("Avatar must be at most %d MB", MaxAvatarBytes>>20))
		return
	}

	contentType, err := SniffContentType(a.File)
	if err != nil {
		fe.Add("avatar", "Avatar could not be read")
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		fe.Add("avatar", "Avatar must be an image")
	}
}

// SniffContentType detects the content type of an upload from its first bytes.
func SniffContentType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
