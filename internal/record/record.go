// Package record defines the user profile stored per key.
package record

import "time"

// Record holds one user's profile. The zero value has age 0 and zero
// timestamps, which encode as epoch 0.
type Record struct {
	Age            int       `json:"age"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// New returns a record created at now. CreatedAt is kept at the whole-second
// resolution it is persisted with; LastModifiedAt keeps full precision so
// successive edits always order correctly.
func New(age int, email, phone string, now time.Time) Record {
	return Record{
		Age:            age,
		Email:          email,
		Phone:          phone,
		CreatedAt:      now.Truncate(time.Second),
		LastModifiedAt: now,
	}
}

// DisplayPhone returns the phone with separators when it is exactly ten
// characters long, e.g. 5551234567 -> +1-555-123-4567. Any other length is
// returned verbatim.
func (r Record) DisplayPhone() string {
	return FormatPhone(r.Phone)
}

// FormatPhone is DisplayPhone for a bare string.
func FormatPhone(phone string) string {
	if len(phone) != 10 {
		return phone
	}
	return "+1-" + phone[0:3] + "-" + phone[3:6] + "-" + phone[6:10]
}

// Epoch returns t as unix seconds, mapping the zero time to 0.
func Epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// FromEpoch is the inverse of Epoch.
func FromEpoch(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
