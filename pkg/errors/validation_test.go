package errors

import (
	"testing"
)

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"cluster endpoint", "my-cluster.cluster-abc123.us-east-1.neptune.amazonaws.com", false},
		{"localhost", "localhost", false},
		{"unicode", "graph.bücher.example", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"with scheme", "wss://my-cluster.example.com", true},
		{"with port", "my-cluster.example.com:8182", true},
		{"with path", "my-cluster.example.com/gremlin", true},
		{"space", "my cluster", true},
		{"control char", "foo\x01bar", true},
		{"empty label", "foo..bar", true},
		{"leading dot", ".foo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpoint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEndpoint(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidEndpoint) {
				t.Errorf("ValidateEndpoint(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port    int
		wantErr bool
	}{
		{8182, false},
		{1, false},
		{65535, false},
		{0, true},
		{-1, true},
		{65536, true},
	}

	for _, tt := range tests {
		err := ValidatePort(tt.port)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePort(%d) error = %v, wantErr %v", tt.port, err, tt.wantErr)
		}
	}
}

func TestValidateRegion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"us-east-1", "us-east-1", false},
		{"eu-central-1", "eu-central-1", false},
		{"ap-southeast-2", "ap-southeast-2", false},
		{"govcloud", "us-gov-west-1", false},

		{"empty", "", true},
		{"uppercase", "US-EAST-1", true},
		{"no number", "us-east", true},
		{"garbage", "neptune", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRegion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Person", false},
		{"with colon", "ns:Person", false},
		{"with space", "knows well", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"newline", "foo\nbar", true},
		{"null byte", "foo\x00bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLoadID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "a4ed7a6e-7f0c-4b2a-9d6e-5f6c2d1e0b3a", false},

		{"empty", "", true},
		{"not a uuid", "load-1", true},
		{"path traversal", "../status", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLoadID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLoadID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidLoadRequest) {
				t.Errorf("ValidateLoadID(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateS3URI(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bucket only", "s3://my-bucket", false},
		{"with prefix", "s3://my-bucket/graph/vertices.csv", false},
		{"dotted bucket", "s3://data.example.org/load/", false},

		{"empty", "", true},
		{"https", "https://my-bucket.s3.amazonaws.com/x", true},
		{"short bucket", "s3://ab/x", true},
		{"uppercase bucket", "s3://MyBucket/x", true},
		{"no bucket", "s3:///x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateS3URI(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateS3URI(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRoleARN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"standard", "arn:aws:iam::123456789012:role/NeptuneLoadFromS3", false},
		{"with path", "arn:aws:iam::123456789012:role/service/neptune-access", false},
		{"china", "arn:aws-cn:iam::123456789012:role/loader", false},

		{"empty", "", true},
		{"user arn", "arn:aws:iam::123456789012:user/alice", true},
		{"short account", "arn:aws:iam::1234:role/x", true},
		{"not an arn", "NeptuneLoadFromS3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoleARN(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoleARN(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidEndpoint,
		ErrCodeInvalidConfig,
		ErrCodeInvalidQuery,
		ErrCodeInvalidCSV,
		ErrCodeInvalidLoadRequest,
		ErrCodeInvalidFormat,
		ErrCodeNotFound,
		ErrCodeLoadNotFound,
		ErrCodeFileNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeRateLimited,
		ErrCodeConnectionClosed,
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeQueryFailed,
		ErrCodeConcurrentModification,
		ErrCodeReadOnly,
		ErrCodeLoadFailed,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
