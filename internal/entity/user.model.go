package entity

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// HashCost is the bcrypt cost used for passwords and security answers.
var HashCost = bcrypt.DefaultCost

var ErrMissingCredentials = errors.New("email and password are required")

// SecurityAnswers are the three answers used to recover an account.
type SecurityAnswers [3]string

type User struct {
	gorm.Model
	Email           string    `json:"email" gorm:"type:varchar(256);uniqueIndex;not null"`
	PasswordHash    string    `json:"-" gorm:"type:varchar(256);not null"`
	SecurityAnswer1 string    `json:"-" gorm:"type:varchar(256)"`
	SecurityAnswer2 string    `json:"-" gorm:"type:varchar(256)"`
	SecurityAnswer3 string    `json:"-" gorm:"type:varchar(256)"`
	Name            string    `json:"name" gorm:"type:varchar(100)"`
	Surname         string    `json:"surname" gorm:"type:varchar(100)"`
	Affiliation     string    `json:"affiliation" gorm:"type:varchar(100)"`
	ORCID           string    `json:"orcid" gorm:"type:varchar(19)"`
	Datasets        []Dataset `json:"-" gorm:"foreignKey:UserID"`
}

// NewUser builds a user from plain credentials. The password and every
// non-empty security answer are stored only as bcrypt hashes.
func NewUser(email, password string, answers SecurityAnswers) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user := &User{Email: email}
	if err := user.ResetPassword(password); err != nil {
		return nil, err
	}
	if err := user.ReplaceSecurityAnswers(answers); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword replaces the stored password hash.
func (u *User) ResetPassword(password string) error {
	hash, err := hashSecret(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = hash
	return nil
}

// ReplaceSecurityAnswers hashes and stores answers. Empty answers clear the
// stored value.
func (u *User) ReplaceSecurityAnswers(answers SecurityAnswers) error {
	hashed := make([]string, len(answers))
	for i, answer := range answers {
		if answer == "" {
			continue
		}
		hash, err := hashSecret(answer)
		if err != nil {
			return fmt.Errorf("failed to hash security answer %d: %w", i+1, err)
		}
		hashed[i] = hash
	}
	u.SecurityAnswer1, u.SecurityAnswer2, u.SecurityAnswer3 = hashed[0], hashed[1], hashed[2]
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return checkSecret(u.PasswordHash, password)
}

// CheckSecurityAnswers reports whether all three answers match.
func (u *User) CheckSecurityAnswers(answers SecurityAnswers) bool {
	return checkSecret(u.SecurityAnswer1, answers[0]) &&
		checkSecret(u.SecurityAnswer2, answers[1]) &&
		checkSecret(u.SecurityAnswer3, answers[2])
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkSecret(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

// AuthorName is the "Surname, Name" form used for dataset authorship, empty
// when the profile has no name.
func (u *User) AuthorName() string {
	switch {
	case u.Name == "" && u.Surname == "":
		return ""
	case u.Surname == "":
		return u.Name
	case u.Name == "":
		return u.Surname
	default:
		return u.Surname + ", " + u.Name
	}
}
