package core

import (
	"strings"
	"time"
)

// MaxLabelLength bounds field and entry labels.
const MaxLabelLength = 200

const (
	KindCounter FieldKind = "counter"
	KindIncome  FieldKind = "income"
	KindExpense FieldKind = "expense"
)

type (
	FieldKind string

	// Field is a named ledger line owned by one user.
	Field struct {
		ID          string
		Owner       string
		Label       string
		Kind        FieldKind
		CreatedAt   time.Time
		IsRecurring bool
		TargetDate  *time.Time // month anchor for one-off fields
		DeletedAt   *time.Time // tombstone, never cleared
	}

	// Entry is one dated signed movement against a field.
	Entry struct {
		ID        string
		FieldID   string
		Label     string
		Amount    Money
		CreatedAt time.Time
	}
)

// ParseFieldKind accepts the canonical kind names and the money_in/money_out
// aliases used by older clients.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "counter":
		return KindCounter, nil
	case "income", "money_in":
		return KindIncome, nil
	case "expense", "money_out":
		return KindExpense, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k FieldKind) IsValid() bool {
	switch k {
	case KindCounter, KindIncome, KindExpense:
		return true
	}
	return false
}

func (k FieldKind) String() string {
	return string(k)
}

// IsDeleted reports whether the field carries a tombstone.
func (f Field) IsDeleted() bool {
	return f.DeletedAt != nil
}

// IsLegacy reports a field that is neither recurring nor target dated.
func (f Field) IsLegacy() bool {
	return !f.IsRecurring && f.TargetDate == nil
}

func (f Field) Validate() error {
	if strings.TrimSpace(f.Owner) == "" {
		return ErrMissingOwner
	}
	if err := validateLabel(f.Label); err != nil {
		return err
	}
	if !f.Kind.IsValid() {
		return ErrInvalidKind
	}
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.FieldID) == "" {
		return ErrMissingField
	}
	return validateLabel(e.Label)
}

func validateLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	if len(label) > MaxLabelLength {
		return ErrLabelTooLong
	}
	return nil
}
