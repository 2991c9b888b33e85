// util/validation_util.go

package util

import (
	"bytes"
	"fmt"

	"github.com/go-playground/validator/v10"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
)

var zipMagic = []byte("PK\x03\x04")

type checkUpload struct {
	PolicyXML   []byte `validate:"required,min=1"`
	Project     []byte `validate:"required,min=1"`
	RequestedBy string `validate:"max=256"`
}

type pageRequest struct {
	Limit  int `validate:"min=1,max=100"`
	Offset int `validate:"min=0"`
}

type ValidationUtil struct {
	validate *validator.Validate
	maxBytes int64
}

func NewValidationUtil(maxBytes int64) *ValidationUtil {
	return &ValidationUtil{validate: validator.New(), maxBytes: maxBytes}
}

// ValidateUpload checks the raw inputs of a check before any parsing.
func (v *ValidationUtil) ValidateUpload(policyXML, project []byte, requestedBy string) error {
	upload := checkUpload{
		PolicyXML:   bytes.TrimSpace(policyXML),
		Project:     project,
		RequestedBy: requestedBy,
	}
	if err := v.validate.Struct(upload); err != nil {
		return fmt.Errorf("%w: %v", permcheck_errors.ErrMissingUpload, err)
	}
	if v.maxBytes > 0 && (int64(len(policyXML)) > v.maxBytes || int64(len(project)) > v.maxBytes) {
		return fmt.Errorf("%w: limit is %d bytes", permcheck_errors.ErrUploadTooLarge, v.maxBytes)
	}
	if !bytes.HasPrefix(project, zipMagic) {
		return fmt.Errorf("%w: not a zip archive", permcheck_errors.ErrArchiveCorrupt)
	}
	return nil
}

func (v *ValidationUtil) ValidatePagination(limit, offset int) error {
	if err := v.validate.Struct(pageRequest{Limit: limit, Offset: offset}); err != nil {
		return fmt.Errorf("%w: %v", permcheck_errors.ErrInvalidPagination, err)
	}
	return nil
}
