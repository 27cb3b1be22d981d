package pim

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ErrAuth marks credential or authorization failures. These are fatal to the
// whole run and surfaced immediately with no partial results.
var ErrAuth = errors.New("authorization failed")

// ErrValidation marks malformed caller input, checked before any network call.
var ErrValidation = errors.New("invalid input")

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classifyAuthError wraps err with ErrAuth when the control plane rejected the
// call for credential or permission reasons, and returns err unchanged
// otherwise.
func classifyAuthError(err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
	}
	return err
}
