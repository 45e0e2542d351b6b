package model

import (
	"errors"
	"fmt"

	"github.com/opinionlab/studyctl/pkg/studyapi"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
)

// storage representation of a platform user
type Account struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"passwordHash"`
}

func NewAccount(username, email, password string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return Account{}, fmt.Errorf("unable to hash password: %w", err)
	}

	return Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}, nil
}

func (a Account) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

func (a Account) User() studyapi.User {
	return studyapi.User{
		PK:       a.ID,
		Email:    a.Email,
		Username: a.Username,
	}
}
