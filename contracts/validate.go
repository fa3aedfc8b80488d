package contracts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen        = 32
	maxDescriptionLen = 512
	maxContactLen     = 64
	maxEmailLen       = 64
	maxNotesLen       = 512

	// MaxPlatformFee is the hard cap on the platform fee percentage.
	MaxPlatformFee uint64 = 5

	// MinWithdrawAmount is the smallest amount a withdrawal may move.
	MinWithdrawAmount uint64 = 1
)

func validateName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, maxNameLen)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidDescription, maxDescriptionLen)
	}
	return nil
}

func validateContactInfo(contact string) error {
	if contact == "" || utf8.RuneCountInString(contact) > maxContactLen {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidContactInfo, maxContactLen)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || utf8.RuneCountInString(email) > maxEmailLen || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidNotes, maxNotesLen)
	}
	return nil
}

func validateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinates, latitude, longitude)
	}
	return nil
}

func validatePlatformFee(fee uint64) error {
	if fee > MaxPlatformFee {
		return fmt.Errorf("%w: %d exceeds %d%%", ErrInvalidPlatformFee, fee, MaxPlatformFee)
	}
	return nil
}
