package helpers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"sjsage522/opinionworker/pkg/errors"
)

var productIDPattern = regexp.MustCompile(`^[0-9]{6,10}$`)

// ValidateProductID checks that id is a catalog key of 6 to 10 digits
func ValidateProductID(id string) error {
	if !productIDPattern.MatchString(id) {
		return errors.NewValidation(id, "product id must have between 6 and 10 digits")
	}
	return nil
}

// ResolveURL resolves href against the page it was found on
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
