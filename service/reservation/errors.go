package reservation

import "errors"

// errors used by controllers

type ErrCode string

const (
	ErrRestricted        ErrCode = "RESTRICTED"
	ErrUnpaidPenalties   ErrCode = "UNPAID_PENALTIES"
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrBookInactive      ErrCode = "BOOK_INACTIVE"
	ErrReferenceOnly     ErrCode = "REFERENCE_ONLY"
	ErrDuplicateActive   ErrCode = "DUPLICATE_ACTIVE"
	ErrNoCopies          ErrCode = "NO_COPIES"
	ErrSuspicious        ErrCode = "SUSPICIOUS_ACTIVITY"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrInvalidState      ErrCode = "INVALID_STATE"
	ErrRenewalNotAllowed ErrCode = "RENEWAL_NOT_ALLOWED"
	ErrNotOwner          ErrCode = "NOT_OWNER"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
