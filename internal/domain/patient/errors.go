package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("patient with this national ID already exists")
	ErrNameRequired         = errors.New("patient name is required")
	ErrInvalidAge           = errors.New("patient age must be between 0 and 150")
	ErrInvalidNationalID    = errors.New("national ID must be a 12 digit number")
	ErrReferenceRequired    = errors.New("patient must reference a user and a slot")
	ErrReferenceMissing     = errors.New("referenced user or slot does not exist")
)
