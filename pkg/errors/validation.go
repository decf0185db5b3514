package errors

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidateEndpoint validates a Neptune cluster endpoint host name.
// It rejects values that carry a scheme, a path or a port, since those are
// configured separately.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No scheme prefix (wss://, https://)
//   - No path or port component
//   - Maximum length of 253 characters
//
// Internationalized names are converted to their ASCII form by pkg/endpoints.
func ValidateEndpoint(host string) error {
	if host == "" {
		return New(ErrCodeInvalidEndpoint, "endpoint cannot be empty")
	}

	if len(host) > 253 {
		return New(ErrCodeInvalidEndpoint, "endpoint too long (max 253 characters)")
	}

	for _, r := range host {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidEndpoint, "endpoint contains invalid characters")
		}
	}

	if strings.Contains(host, "://") {
		return New(ErrCodeInvalidEndpoint, "endpoint must be a host name without a scheme: %q", host)
	}

	if strings.ContainsAny(host, "/:\\") {
		return New(ErrCodeInvalidEndpoint, "endpoint must not contain a path or port: %q", host)
	}

	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, "..") || strings.Contains(host, "..") {
		return New(ErrCodeInvalidEndpoint, "endpoint has an empty label: %q", host)
	}

	return nil
}

// ValidatePort validates a TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return New(ErrCodeInvalidConfig, "port out of range: %d", port)
	}
	return nil
}

// regionRegex matches AWS region names such as us-east-1 or us-gov-west-1.
var regionRegex = regexp.MustCompile(`^[a-z]{2}(-gov|-iso[a-z]?)?-[a-z]+-[0-9]+$`)

// ValidateRegion validates an AWS region name.
func ValidateRegion(region string) error {
	if region == "" {
		return New(ErrCodeInvalidConfig, "region cannot be empty")
	}
	if !regionRegex.MatchString(region) {
		return New(ErrCodeInvalidConfig, "invalid region: %q", region)
	}
	return nil
}

// ValidateLabel validates a vertex or edge label used in a traversal.
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidInput, "label cannot be empty")
	}

	if len(label) > 256 {
		return New(ErrCodeInvalidInput, "label too long (max 256 characters)")
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label contains invalid control characters")
		}
	}

	return nil
}

// ValidateLoadID validates a bulk loader job id. Neptune issues UUIDs.
func ValidateLoadID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidLoadRequest, "load id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return New(ErrCodeInvalidLoadRequest, "invalid load id: %q", id)
	}
	return nil
}

// ValidateS3URI validates the source location of a bulk load.
func ValidateS3URI(uri string) error {
	if uri == "" {
		return New(ErrCodeInvalidLoadRequest, "source cannot be empty")
	}

	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return New(ErrCodeInvalidLoadRequest, "source must use the s3 scheme: %q", uri)
	}

	bucket, _, _ := strings.Cut(rest, "/")
	if len(bucket) < 3 || len(bucket) > 63 {
		return New(ErrCodeInvalidLoadRequest, "invalid bucket name in source: %q", uri)
	}

	for _, r := range bucket {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.') {
			return New(ErrCodeInvalidLoadRequest, "invalid bucket name in source: %q", uri)
		}
	}

	return nil
}

// roleARNRegex matches IAM role ARNs across the standard partitions.
var roleARNRegex = regexp.MustCompile(`^arn:aws(-cn|-us-gov|-iso|-iso-b)?:iam::[0-9]{12}:role/[\w+=,.@/-]+$`)

// ValidateRoleARN validates an IAM role ARN.
func ValidateRoleARN(arn string) error {
	if arn == "" {
		return New(ErrCodeInvalidConfig, "role ARN cannot be empty")
	}
	if !roleARNRegex.MatchString(arn) {
		return New(ErrCodeInvalidConfig, "invalid role ARN: %q", arn)
	}
	return nil
}
