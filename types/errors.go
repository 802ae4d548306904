package types

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidKeyMaterial    = errors.New("invalid key material")
	ErrMissingRequiredOption = errors.New("missing required option")
	ErrUnsupportedAlgorithm  = errors.New("unsupported algorithm")
	ErrSigningFailure        = errors.New("unable to generate signature")
	ErrInvalidSignature      = errors.New("invalid signature")
)

// OptionError reports a configuration option that could not be resolved.
type OptionError struct {
	Option string
	Value  string
	Err    error
}

func (e *OptionError) Error() string {
	switch e.Err {
	case ErrMissingRequiredOption:
		return fmt.Sprintf("The required option %q is missing.", e.Option)
	case ErrUnsupportedAlgorithm:
		return fmt.Sprintf("The option %q with value %q is invalid. Accepted values are: \"RSA\", \"RSA2\".", e.Option, e.Value)
	default:
		return fmt.Sprintf("The option %q is invalid.", e.Option)
	}
}

func (e *OptionError) Unwrap() error { return e.Err }

func InvalidKeyMaterial(option string) error {
	return &OptionError{Option: option, Err: ErrInvalidKeyMaterial}
}

func MissingOption(option string) error {
	return &OptionError{Option: option, Err: ErrMissingRequiredOption}
}

func UnsupportedAlgorithm(value string) error {
	return &OptionError{Option: OptionSignType, Value: value, Err: ErrUnsupportedAlgorithm}
}
