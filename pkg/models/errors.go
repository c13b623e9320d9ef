package models

import "fmt"

// PublicCredentialsMessage is the only text a client ever sees for a failed
// login, whether the account was missing or the password was wrong.
const PublicCredentialsMessage = "invalid email or password"

// PublicPersistenceMessage is shown whenever the store failed underneath a request.
const PublicPersistenceMessage = "something went wrong, please try again"

// ValidationError – for invalid parameters or business rule violations.
// Supports errors.As.
//
// ValidationError represents an error due to invalid or malformed input.
type ValidationError struct {
	msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

// DuplicateAccountError is returned by registration when the normalized email
// is already bound to an account.
type DuplicateAccountError struct {
	Email string
}

func (e *DuplicateAccountError) Error() string {
	return "an account with that email already exists"
}

// NewDuplicateAccountError creates a new DuplicateAccountError.
func NewDuplicateAccountError(email string) error {
	return &DuplicateAccountError{Email: email}
}

// NotFoundError means the store holds no record for the lookup key.
// Outward it reads exactly like InvalidCredentialsError.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return PublicCredentialsMessage
}

// NewNotFoundError creates a new NotFoundError for key.
func NewNotFoundError(key string) error {
	return &NotFoundError{Key: key}
}

// InvalidCredentialsError means the password did not verify against the stored secret.
type InvalidCredentialsError struct{}

func (e *InvalidCredentialsError) Error() string {
	return PublicCredentialsMessage
}

// NewInvalidCredentialsError creates a new InvalidCredentialsError.
func NewInvalidCredentialsError() error {
	return &InvalidCredentialsError{}
}

// PersistenceError – for failures reported by the store that are not a
// uniqueness or not-found condition. The wrapped error is for logs only.
// Supports errors.As and errors.Unwrap.
type PersistenceError struct {
	err error
}

// Error implements the error interface. It never includes the driver text.
func (e *PersistenceError) Error() string {
	return PublicPersistenceMessage
}

func (e *PersistenceError) Unwrap() error {
	return e.err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(err error) error {
	return &PersistenceError{err: err}
}

// TransformationError – for issues converting generic input into backend-specific formats.
// Supports errors.As.
//
// TransformationError wraps errors that occur during the transformation of inputs.
type TransformationError struct {
	msg string
}

// Error implements the error interface.
func (e *TransformationError) Error() string {
	return e.msg
}

// NewTransformationError creates a new TransformationError.
func NewTransformationError(msg string) error {
	return &TransformationError{
		msg: msg,
	}
}

// DatabaseError – for failures interacting with the persistence layer.
// Supports errors.As and errors.Unwrap.
//
// DatabaseError wraps errors related to database or SQL interactions.
// Will only be provided as a response from internal stores.
type DatabaseError struct {
	err error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %v", e.err)
}

func (e *DatabaseError) Unwrap() error {
	return e.err
}

// NewDatabaseError creates a new DatabaseError.
func NewDatabaseError(err error) error {
	return &DatabaseError{
		err: err,
	}
}
