package participant

import (
	"net/mail"
	"strings"

	"github.com/tauraamui/xerror"
	"gopkg.in/dealancer/validate.v2"
)

var ErrInvalid = xerror.NewWithKind("validation", "invalid participant")

type Participant struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" validate:"empty=false"`
	Email string `json:"email" validate:"empty=false"`
	Phone string `json:"phone" validate:"empty=false"`
}

// Normalize trims the whitespace an on screen keyboard tends to leave behind.
func (p Participant) Normalize() Participant {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	return p
}

func (p Participant) Validate() error {
	if err := validate.Validate(&p); err != nil {
		return xerror.Errorf("%w: name, email and phone are required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return xerror.Errorf("%w: email %q is not valid", ErrInvalid, p.Email)
	}
	if digits(p.Phone) < 7 {
		return xerror.Errorf("%w: phone %q is too short", ErrInvalid, p.Phone)
	}
	return nil
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			n++
		case strings.ContainsRune("+-() .", r):
		default:
			return 0
		}
	}
	return n
}
