/*
Package toolbox – error types.

Every failure raised by the schema, parsers and command builders is an *Error
carrying a dot-namespaced Code.
*/
package toolbox

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable, dot-namespaced error category.
type ErrorCode string

// Schema definition errors, raised when a schema is frozen.
const (
	ErrSchemaDuplicateAttributeNames ErrorCode = "schema.duplicateAttributeNames"
	ErrSchemaDuplicateSavedAs        ErrorCode = "schema.duplicateSavedAsAttributes"
	ErrMapDuplicateSavedAs           ErrorCode = "schema.mapAttribute.duplicateSavedAs"
	ErrInvalidAttributeOption        ErrorCode = "schema.attribute.invalidOption"
	ErrInvalidEnumValueType          ErrorCode = "schema.primitiveAttribute.invalidEnumValueType"
	ErrInvalidDefaultValueType       ErrorCode = "schema.primitiveAttribute.invalidDefaultValueType"
	ErrSetInvalidElements            ErrorCode = "schema.setAttribute.invalidElements"
	ErrRecordInvalidKeys             ErrorCode = "schema.recordAttribute.invalidKeys"
	ErrAnyOfMissingElements          ErrorCode = "schema.anyOfAttribute.missingElements"
)

// Element constraint errors of list, set, record and anyOf attributes.
const (
	ErrListOptionalElements    ErrorCode = "schema.listAttribute.optionalElements"
	ErrListHiddenElements      ErrorCode = "schema.listAttribute.hiddenElements"
	ErrListSavedAsElements     ErrorCode = "schema.listAttribute.savedAsElements"
	ErrListDefaultedElements   ErrorCode = "schema.listAttribute.defaultedElements"
	ErrSetOptionalElements     ErrorCode = "schema.setAttribute.optionalElements"
	ErrSetHiddenElements       ErrorCode = "schema.setAttribute.hiddenElements"
	ErrSetSavedAsElements      ErrorCode = "schema.setAttribute.savedAsElements"
	ErrSetDefaultedElements    ErrorCode = "schema.setAttribute.defaultedElements"
	ErrRecordOptionalElements  ErrorCode = "schema.recordAttribute.optionalElements"
	ErrRecordHiddenElements    ErrorCode = "schema.recordAttribute.hiddenElements"
	ErrRecordSavedAsElements   ErrorCode = "schema.recordAttribute.savedAsElements"
	ErrRecordDefaultedElements ErrorCode = "schema.recordAttribute.defaultedElements"
	ErrAnyOfOptionalElements   ErrorCode = "schema.anyOfAttribute.optionalElements"
	ErrAnyOfHiddenElements     ErrorCode = "schema.anyOfAttribute.hiddenElements"
	ErrAnyOfSavedAsElements    ErrorCode = "schema.anyOfAttribute.savedAsElements"
	ErrAnyOfDefaultedElements  ErrorCode = "schema.anyOfAttribute.defaultedElements"
)

// Entity errors.
const (
	ErrEntityReservedAttributeName ErrorCode = "entity.reservedAttributeName"
	ErrEntityInvalidParams         ErrorCode = "entity.invalidParams"
	ErrEntityInvalidComputedKey    ErrorCode = "entity.invalidComputedKey"
)

// Table errors.
const (
	ErrTableInvalidParams ErrorCode = "table.invalidParams"
	ErrTableMissingClient ErrorCode = "table.missingClient"
)

// Input parsing errors.
const (
	ErrInvalidItem           ErrorCode = "parsing.invalidItem"
	ErrInvalidAttributeInput ErrorCode = "parsing.invalidAttributeInput"
	ErrAttributeRequired     ErrorCode = "parsing.attributeRequired"
	ErrInvalidEnumValue      ErrorCode = "parsing.invalidEnumValue"
	ErrInvalidAnyOfInput     ErrorCode = "parsing.invalidAnyOfInput"
	ErrUnknownMapAttribute   ErrorCode = "parsing.unknownMapAttribute"
	ErrInvalidReference      ErrorCode = "parsing.invalidReference"
)

// Operation errors.
const (
	ErrInvalidCondition               ErrorCode = "operations.invalidCondition"
	ErrInvalidExpressionAttributePath ErrorCode = "operations.invalidExpressionAttributePath"
	ErrInvalidProjection              ErrorCode = "operations.invalidProjection"
	ErrUnknownOption                  ErrorCode = "operations.unknownOption"
	ErrIncompleteCommand              ErrorCode = "operations.incompleteCommand"
	ErrInvalidCapacityOption          ErrorCode = "operations.invalidCapacityOption"
	ErrInvalidMetricsOption           ErrorCode = "operations.invalidMetricsOption"
	ErrInvalidReturnValuesOption      ErrorCode = "operations.invalidReturnValuesOption"
	ErrInvalidConsistentOption        ErrorCode = "operations.invalidConsistentOption"
	ErrInvalidIndexOption             ErrorCode = "operations.invalidIndexOption"
	ErrInvalidLimitOption             ErrorCode = "operations.invalidLimitOption"
	ErrInvalidMaxPagesOption          ErrorCode = "operations.invalidMaxPagesOption"
	ErrInvalidSelectOption            ErrorCode = "operations.invalidSelectOption"
	ErrInvalidSegmentOption           ErrorCode = "operations.invalidSegmentOption"
	ErrInvalidClientRequestToken      ErrorCode = "operations.invalidClientRequestToken"
	ErrInvalidTransaction             ErrorCode = "operations.invalidTransaction"
	ErrInvalidKeyPart                 ErrorCode = "operations.parsePrimaryKey.invalidKeyPart"
	ErrSavedAttributeRequired         ErrorCode = "operations.formatSavedItem.savedAttributeRequired"
	ErrInvalidSavedAttribute          ErrorCode = "operations.formatSavedItem.invalidSavedAttribute"
)

// Configuration errors.
const (
	ErrInvalidDefinitions ErrorCode = "config.invalidDefinitions"
)

// Transport errors.
const (
	ErrRequestFailed ErrorCode = "transport.requestFailed"
)

// Error is the single structured error kind of the package. Path is the
// attribute path involved (if any); Payload holds diagnostic data such as
// the received and expected values.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Payload map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an *Error.
func NewError(code ErrorCode, msg string, opts ...func(*Error)) *Error {
	err := &Error{Code: code, Message: msg}
	for _, o := range opts {
		o(err)
	}
	return err
}

// WithPath sets the attribute path.
func WithPath(path string) func(*Error) {
	return func(e *Error) { e.Path = path }
}

// WithPayload attaches diagnostic data.
func WithPayload(payload map[string]any) func(*Error) {
	return func(e *Error) { e.Payload = payload }
}

// WithCause wraps an underlying error.
func WithCause(cause error) func(*Error) {
	return func(e *Error) { e.Cause = cause }
}

// IsErrorCode reports whether err (or any error it wraps) is an *Error with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ErrorCodeOf returns the code of the first *Error in err's chain, or "".
func ErrorCodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
