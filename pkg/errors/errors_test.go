package errors

import (
	stderr "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates error with derived category", func(t *testing.T) {
		err := New(ErrCodeNotFound, "no such file or directory")
		if err == nil {
			t.Fatal("New returned nil")
		}
		if err.Code != ErrCodeNotFound {
			t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotFound)
		}
		if err.Category != CategoryFilesystem {
			t.Errorf("Category = %v, want %v", err.Category, CategoryFilesystem)
		}
		if err.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})

	t.Run("categories", func(t *testing.T) {
		tests := []struct {
			code ErrorCode
			want ErrorCategory
		}{
			{ErrCodeNoSuchDevice, CategoryResolver},
			{ErrCodeOpNotSupported, CategoryResolver},
			{ErrCodeNotFound, CategoryFilesystem},
			{ErrCodeAccessDenied, CategoryFilesystem},
			{ErrCodeReadOnly, CategoryFilesystem},
			{ErrCodeNotDirectory, CategoryFilesystem},
			{ErrCodeNotSupported, CategoryFilesystem},
			{ErrorCode("BOGUS"), CategoryInternal},
		}
		for _, tt := range tests {
			if got := GetCategory(tt.code); got != tt.want {
				t.Errorf("GetCategory(%v) = %v, want %v", tt.code, got, tt.want)
			}
		}
	})
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	err := NotFound("/etc/passwd").WithOp("stat")
	msg := err.Error()
	if !strings.Contains(msg, "stat") {
		t.Errorf("Error() = %q, missing op", msg)
	}
	if !strings.Contains(msg, "/etc/passwd") {
		t.Errorf("Error() = %q, missing path", msg)
	}
	if !strings.Contains(msg, string(ErrCodeNotFound)) {
		t.Errorf("Error() = %q, missing code", msg)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()

	a := NotFound("/a")
	b := NotFound("/b")
	if !stderr.Is(a, b) {
		t.Error("two NOT_FOUND errors should match via errors.Is")
	}
	if stderr.Is(a, AccessDenied("/a")) {
		t.Error("NOT_FOUND should not match ACCESS_DENIED")
	}
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	cause := stderr.New("backing store exploded")
	err := ReadOnly("/a/.b.attr").WithCause(cause)
	if !stderr.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"not found", NotFound("/x"), IsNotFound, true},
		{"access denied", AccessDenied("/x"), IsAccessDenied, true},
		{"read only", ReadOnly("/x"), IsReadOnly, true},
		{"not a directory", NotDirectory("/x"), IsNotDirectory, true},
		{"no such device", NoSuchDevice("bogus"), IsNoSuchDevice, true},
		{"op not supported", OpNotSupported("flush"), IsOpNotSupported, true},
		{"link not supported counts as unsupported", NotSupported("link"), IsOpNotSupported, true},
		{"foreign error", stderr.New("nope"), IsNotFound, false},
		{"nil-safe code", stderr.New("nope"), IsAccessDenied, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	if CodeOf(NoSuchDevice("tty")) != ErrCodeNoSuchDevice {
		t.Error("CodeOf did not return NO_SUCH_DEVICE")
	}
	if CodeOf(stderr.New("plain")) != "" {
		t.Error("CodeOf on foreign error should be empty")
	}
}
