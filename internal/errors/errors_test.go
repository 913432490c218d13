package errors

import (
	"fmt"
	"testing"
)

func TestSiftError_Error(t *testing.T) {
	err := &SiftError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "not found: latest scan",
	}

	expected := "NOT_FOUND: not found: latest scan"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("text or paths is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "text or paths is required" {
		t.Errorf("Message = %q, want %q", err.Message, "text or paths is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("latest scan")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["identifier"] != "latest scan" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "latest scan")
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/missing.html")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "/tmp/missing.html" {
		t.Errorf("Details[path] = %v, want %q", err.Details["path"], "/tmp/missing.html")
	}
}

func TestNewSourceTooLarge(t *testing.T) {
	err := NewSourceTooLarge("big.html", 1024)

	if err.Code != ErrSourceTooLarge {
		t.Errorf("Code = %q, want %q", err.Code, ErrSourceTooLarge)
	}
	if err.Status != 413 {
		t.Errorf("Status = %d, want 413", err.Status)
	}
	if err.Details["max_bytes"] != int64(1024) {
		t.Errorf("Details[max_bytes] = %v, want 1024", err.Details["max_bytes"])
	}
}

func TestNewUnsupportedSource(t *testing.T) {
	err := NewUnsupportedSource("https://example.org", "remote sources are not read")

	if err.Code != ErrUnsupportedSource {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnsupportedSource)
	}
	if err.Status != 415 {
		t.Errorf("Status = %d, want 415", err.Status)
	}
	if err.Details["source"] != "https://example.org" {
		t.Errorf("Details[source] = %v", err.Details["source"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("scan")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "scan cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "scan cancelled")
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		err := NewInternal(fmt.Errorf("database connection failed"))

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("x"), ErrInternal) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain error"), ErrNotFound) {
			t.Error("Is() = true, want false for non-SiftError")
		}
	})

	t.Run("wrapped SiftError", func(t *testing.T) {
		wrapped := fmt.Errorf("sources[0]: %w", NewFileNotFound("a.txt"))
		if !Is(wrapped, ErrFileNotFound) {
			t.Error("Is() = false, want true for wrapped SiftError")
		}
	})
}
