package validator

import (
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/darkodi/link-shortener/internal/errors"
	"github.com/darkodi/link-shortener/internal/token"
)

// URLValidator validates request bodies and destination URLs before they
// reach the service
type URLValidator struct {
	structs         *validator.Validate
	maxLength       int
	allowedSchemes  []string
	blockedDomains  []string
	blockPrivateIPs bool
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		structs:         validator.New(validator.WithRequiredStructEnabled()),
		maxLength:       2048,
		allowedSchemes:  []string{"http", "https"},
		blockedDomains:  []string{},
		blockPrivateIPs: true,
	}
}

// ValidateStruct checks the validate tags of a request body
func (v *URLValidator) ValidateStruct(req any) *errors.AppError {
	err := v.structs.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.InvalidField(jsonName(fe.Field()), describe(fe))
	}
	return errors.BadRequest(err.Error())
}

// ValidateURL validates a destination URL string
func (v *URLValidator) ValidateURL(rawURL string) *errors.AppError {
	if strings.TrimSpace(rawURL) == "" {
		return errors.InvalidField("url", "required")
	}

	if len(rawURL) > v.maxLength {
		return errors.InvalidField("url", fmt.Sprintf("exceeds maximum length of %d characters", v.maxLength))
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.InvalidField("url", "could not be parsed")
	}

	if !v.isAllowedScheme(parsedURL.Scheme) {
		return errors.InvalidField("url", "must use http or https scheme")
	}

	if parsedURL.Hostname() == "" {
		return errors.InvalidField("url", "must have a valid host")
	}

	if v.isBlockedDomain(parsedURL.Hostname()) {
		return errors.InvalidField("url", "this domain is not allowed")
	}

	if v.blockPrivateIPs && isPrivateHost(parsedURL.Hostname()) {
		return errors.InvalidField("url", "private and loopback addresses are not allowed")
	}

	return nil
}

// ValidateToken checks a path token before any lookup
func (v *URLValidator) ValidateToken(tok string) *errors.AppError {
	if !token.IsValid(tok) {
		return errors.LinkNotFound(tok)
	}
	return nil
}

// ============================================================
// HELPER METHODS
// ============================================================

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func (v *URLValidator) isBlockedDomain(host string) bool {
	host = strings.ToLower(host)
	for _, blocked := range v.blockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

func jsonName(field string) string {
	switch field {
	case "URL", "Destination":
		return "url"
	case "VisitLimit":
		return "visit_limit"
	default:
		return strings.ToLower(field)
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "url":
		return "must be an absolute URL"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// ============================================================
// CONFIGURATION METHODS
// ============================================================

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// WithBlockedDomains adds domains to block list
func (v *URLValidator) WithBlockedDomains(domains ...string) *URLValidator {
	for _, d := range domains {
		v.blockedDomains = append(v.blockedDomains, strings.ToLower(d))
	}
	return v
}

// WithAllowPrivateIPs allows private IP addresses
func (v *URLValidator) WithAllowPrivateIPs() *URLValidator {
	v.blockPrivateIPs = false
	return v
}
