package data

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidatePath(t *testing.T) {
	valid := []string{"", "api/", "api/tabs.json", "docs/templates/public/"}
	for _, path := range valid {
		if err := ValidatePath(path); err != nil {
			t.Errorf("Expected %q to be valid, got %v", path, err)
		}
	}

	invalid := []string{"/api/", "api//tabs.json", "./api", "api/../secret", "api/./tabs.json"}
	for _, path := range invalid {
		if err := ValidatePath(path); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Expected ErrInvalidPath for %q, got %v", path, err)
		}
	}
}

func TestDirectoryHelpers(t *testing.T) {
	if !IsDirectory("") || !IsDirectory("api/") || IsDirectory("api") {
		t.Error("IsDirectory returned unexpected results")
	}

	if ToDirectory("api") != "api/" || ToDirectory("api/") != "api/" || ToDirectory("") != "" {
		t.Error("ToDirectory returned unexpected results")
	}

	tests := []struct {
		dir, child, expected string
	}{
		{"", "tabs.json", "tabs.json"},
		{"api", "tabs.json", "api/tabs.json"},
		{"api/", "experimental/", "api/experimental/"},
	}
	for _, tt := range tests {
		if joined := JoinPath(tt.dir, tt.child); joined != tt.expected {
			t.Errorf("JoinPath(%q, %q) = %q, expected %q", tt.dir, tt.child, joined, tt.expected)
		}
	}
}

func TestSplitParent(t *testing.T) {
	tests := []struct {
		path, parent, base string
	}{
		{"tabs.json", "", "tabs.json"},
		{"api/tabs.json", "api/", "tabs.json"},
		{"api/experimental/", "api/", "experimental/"},
		{"api/", "", "api/"},
	}

	for _, tt := range tests {
		parent, base := SplitParent(tt.path)
		if parent != tt.parent || base != tt.base {
			t.Errorf("SplitParent(%q) = (%q, %q), expected (%q, %q)", tt.path, parent, base, tt.parent, tt.base)
		}
	}
}

func TestToRelativePath(t *testing.T) {
	if rel := ToRelativePath("api/tabs.json", "api"); rel != "tabs.json" {
		t.Errorf("Expected 'tabs.json', got %q", rel)
	}
	if rel := ToRelativePath("api", "api"); rel != "" {
		t.Errorf("Expected empty path, got %q", rel)
	}
	if rel := ToRelativePath("api/tabs.json", ""); rel != "api/tabs.json" {
		t.Errorf("Expected unchanged path, got %q", rel)
	}
}

func TestErrors(t *testing.T) {
	cause := fmt.Errorf("connection reset")

	err := Transient(cause, "api/tabs.json")
	if !errors.Is(err, ErrTransient) || !errors.Is(err, cause) {
		t.Errorf("Expected transient error wrapping cause, got %v", err)
	}
	if IsNotFound(err) {
		t.Error("Transient error must not be NotFound")
	}

	err = fmt.Errorf("lookup: %w", NotFound(nil, "api/tabs.json"))
	if !IsNotFound(err) {
		t.Errorf("Expected wrapped NotFound, got %v", err)
	}

	var errs Errors
	errs.Add(nil)
	if errs.Len() != 0 || errs.Errors() != nil {
		t.Error("Expected nil errors to be ignored")
	}

	errs.Add(ErrClosed)
	errs.Add(cause)
	if errs.Len() != 2 {
		t.Fatalf("Expected 2 errors, got %d", errs.Len())
	}
	if joined := errs.Errors(); !errors.Is(joined, ErrClosed) || !errors.Is(joined, cause) {
		t.Errorf("Expected joined errors, got %v", joined)
	}
}

func TestStatInfo(t *testing.T) {
	dir := NewDirectoryStatInfo("3", map[string]string{"b.json": "1", "a/": "2"})

	children := dir.Children()
	if len(children) != 2 || children[0] != "a/" || children[1] != "b.json" {
		t.Errorf("Expected sorted children, got %v", children)
	}

	if !dir.Equal(NewDirectoryStatInfo("3", map[string]string{"a/": "2", "b.json": "1"})) {
		t.Error("Expected equal directory stats")
	}
	if dir.Equal(NewStatInfo("3")) {
		t.Error("Expected file and directory stats to differ")
	}

	var missing *StatInfo
	if !missing.Equal(nil) || missing.Equal(dir) {
		t.Error("Unexpected nil comparison result")
	}
}

func TestGetMIMEType(t *testing.T) {
	tests := map[string]ContentType{
		"docs/templates/public/extensions/tabs.html": ContentTypeTextHTML,
		"README.MD":                                  ContentTypeTextMarkdown,
		"api/storage.idl":                            ContentTypeIDL,
		"api/_api_features.json":                     ContentTypeJSON,
		"LICENSE":                                    ContentTypeStream,
	}

	for path, expected := range tests {
		if ct := GetMIMEType(path); ct != expected {
			t.Errorf("GetMIMEType(%q) = %s, expected %s", path, ct, expected)
		}
	}

	if !ContentTypeTextMarkdown.IsTemplate() || ContentTypeJSON.IsTemplate() {
		t.Error("IsTemplate returned unexpected results")
	}
}
