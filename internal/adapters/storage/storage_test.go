package storage

import (
	"strings"
	"testing"

	"agency_os_backend/platform/apperr"
)

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		name        string
		purpose     Purpose
		contentType string
		wantErr     bool
	}{
		{"csv upload", PurposeKeywordUpload, "text/csv", false},
		{"csv with charset", PurposeKeywordUpload, "text/csv; charset=utf-8", false},
		{"excel csv", PurposeKeywordUpload, "application/vnd.ms-excel", false},
		{"image as keywords", PurposeKeywordUpload, "image/png", true},
		{"png logo", PurposeBrandLogo, "IMAGE/PNG", false},
		{"pdf logo", PurposeBrandLogo, "application/pdf", true},
		{"unknown purpose", Purpose("avatar"), "image/png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContentType(tt.purpose, tt.contentType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateContentType() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileSize(t *testing.T) {
	if err := ValidateFileSize(PurposeKeywordUpload, 0, 100); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty file, got %v", err)
	}
	if err := ValidateFileSize(PurposeKeywordUpload, 101, 100); err == nil {
		t.Fatal("expected error above configured limit")
	}
	if err := ValidateFileSize(PurposeKeywordUpload, 100, 100); err != nil {
		t.Fatalf("unexpected error at limit: %v", err)
	}
	if err := ValidateFileSize(PurposeBrandLogo, maxLogoSize+1, 20<<20); err == nil {
		t.Fatal("expected logo cap to apply below the global limit")
	}
}

func TestObjectKey(t *testing.T) {
	key := objectKey("clients/abc", `C:\exports\keywords.csv`)
	if !strings.HasPrefix(key, "clients/abc/keywords_") || !strings.HasSuffix(key, ".csv") {
		t.Fatalf("unexpected key %q", key)
	}
	if other := objectKey("clients/abc", "keywords.csv"); other == key {
		t.Fatal("expected unique keys per call")
	}
}
