// Package apperr provides the domain error taxonomy shared by the core components.
//
// Every rejected operation returns an *Error carrying a Kind (how the caller should
// treat it) and a machine-readable Code (why it was rejected). Messages are meant to
// be shown to diners and staff as-is, since several people act on the same bill at
// once and need to know exactly what went wrong.
package apperr

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
)

// Kind classifies an error for the transport layer.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "unknown"

	// Validation
	CodeMissingField        Code = "missing_field"
	CodeInvalidMode         Code = "invalid_mode"
	CodeInvalidCount        Code = "invalid_participant_count"
	CodeInvalidPercentage   Code = "invalid_percentage"
	CodeNoItems             Code = "no_items"
	CodeUnknownItem         Code = "unknown_item"
	CodeCanceledItem        Code = "canceled_item"
	CodeInvalidMergeRequest Code = "invalid_merge_request"
	CodeInvalidStatus       Code = "invalid_status"
	CodeInvalidQuantity     Code = "invalid_quantity"
	CodeInvalidPrice        Code = "invalid_price"
	CodeInvalidParticipant  Code = "invalid_participant"
	CodeItemsTotalMismatch  Code = "items_total_mismatch"

	// Conflict
	CodeModeConflict         Code = "mode_conflict"
	CodeCountConflict        Code = "participant_count_conflict"
	CodeItemAlreadyClaimed   Code = "item_already_claimed"
	CodePercentageExceeded   Code = "percentage_exceeded"
	CodeTableAlreadyMerged   Code = "table_already_merged"
	CodeSessionFinalized     Code = "session_finalized"
	CodeVersionConflict      Code = "version_conflict"
	CodeOrderAlreadyPaid     Code = "order_already_paid"
	CodeSettlementInProgress Code = "settlement_in_progress"
	CodeInvalidTransition    Code = "invalid_status_transition"

	// Not found
	CodeNotFound Code = "not_found"

	// Invariant
	CodeNothingOutstanding Code = "nothing_outstanding"
	CodeNonPositiveAmount  Code = "non_positive_amount"
)

// Error is a domain error.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind and Code so sentinels can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newf(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(code Code, format string, args ...any) *Error {
	return newf(KindValidation, code, format, args...)
}

// Conflict reports a request that clashes with current state.
func Conflict(code Code, format string, args ...any) *Error {
	return newf(KindConflict, code, format, args...)
}

// NotFound reports an unknown order, session, group or table.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, CodeNotFound, format, args...)
}

// Invariant reports a request whose result would break a bill invariant.
func Invariant(code Code, format string, args ...any) *Error {
	return newf(KindInvariant, code, format, args...)
}

// CodeOf extracts the domain code from any error.
// Returns CodeUnknown if the error is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ConnectCode maps an error kind to the Connect status code.
func (k Kind) ConnectCode() connect.Code {
	switch k {
	case KindValidation:
		return connect.CodeInvalidArgument
	case KindConflict:
		return connect.CodeAborted
	case KindNotFound:
		return connect.CodeNotFound
	case KindInvariant:
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

// ToConnect converts err into a *connect.Error. Domain errors keep their message and
// carry the code in the "Tableside-Error-Code" metadata; anything else becomes an
// internal error with a generic message.
func ToConnect(err error) *connect.Error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	var e *Error
	if errors.As(err, &e) {
		out := connect.NewError(e.Kind.ConnectCode(), e)
		out.Meta().Set(CodeHeader, string(e.Code))
		return out
	}
	return connect.NewError(connect.CodeInternal, errors.New("an unexpected error occurred"))
}

// CodeHeader is the response metadata key carrying the domain code.
const CodeHeader = "Tableside-Error-Code"
