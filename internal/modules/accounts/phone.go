package accounts

import (
	"fmt"

	"github.com/ttacon/libphonenumber"

	"github.com/flexinvest/platform/internal/domain"
)

// DefaultRegion is used for numbers written without a country code
const DefaultRegion = "NG"

// NormalizePhone validates a phone number and formats it as E.164.
// An empty input is allowed and returned unchanged.
func NormalizePhone(raw, region string) (string, error) {
	if raw == "" {
		return "", nil
	}

	p, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: phone: %v", domain.ErrInvalidInput, err)
	}

	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("%w: phone number is not valid", domain.ErrInvalidInput)
	}

	return libphonenumber.Format(p, libphonenumber.E164), nil
}
