package validate

import (
	"errors"
	"strings"
	"testing"
)

func wantCode(t *testing.T, err error, code Code, msg string) {
	t.Helper()
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *validate.Error", err)
	}
	if verr.Code != code {
		t.Errorf("Code = %q, want %q", verr.Code, code)
	}
	if verr.Error() != msg {
		t.Errorf("Error() = %q, want %q", verr.Error(), msg)
	}
}

func TestArgs_Empty(t *testing.T) {
	if err := Args(nil); err != nil {
		t.Fatalf("Args(nil) = %v, want nil", err)
	}
}

func TestArgs_AtLimits(t *testing.T) {
	args := make([]string, MaxArgs)
	for i := range args {
		args[i] = "x"
	}
	args[0] = strings.Repeat("a", MaxArgLength)
	if err := Args(args); err != nil {
		t.Fatalf("Args at limits = %v, want nil", err)
	}
}

func TestArgs_TooMany(t *testing.T) {
	args := make([]string, MaxArgs+1)
	wantCode(t, Args(args), TooManyArguments, "Too many arguments (max 32)")
}

func TestArgs_NulByte(t *testing.T) {
	wantCode(t, Args([]string{"ok", "bad\x00arg"}), NulByteInArgument, "Arguments cannot contain NUL bytes")
}

func TestArgs_TooLong(t *testing.T) {
	wantCode(t, Args([]string{strings.Repeat("a", MaxArgLength+1)}), ArgumentTooLong, "Argument exceeds 2048 characters")
}

func TestArgs_LengthCountsCharacters(t *testing.T) {
	// 2048 two-byte characters: within the character limit, 4096 bytes.
	arg := strings.Repeat("é", MaxArgLength)
	if err := Args([]string{arg}); err != nil {
		t.Fatalf("Args(2048 multi-byte chars) = %v, want nil", err)
	}
}

func TestArgs_CumulativeTooLarge(t *testing.T) {
	args := make([]string, 10)
	for i := range args {
		args[i] = strings.Repeat("a", 2000)
	}
	wantCode(t, Args(args), ArgumentsTooLarge, "Arguments exceed 16384 bytes")
}

func TestArgs_CumulativeShortCircuits(t *testing.T) {
	// The ninth argument pushes the total past the cap before the tenth
	// (too long) argument is examined.
	args := make([]string, 10)
	for i := 0; i < 9; i++ {
		args[i] = strings.Repeat("a", 2000)
	}
	args[9] = strings.Repeat("b", MaxArgLength+1)
	wantCode(t, Args(args), ArgumentsTooLarge, "Arguments exceed 16384 bytes")
}

func TestArgs_TooLongBeforeCumulative(t *testing.T) {
	args := []string{strings.Repeat("b", MaxArgLength+1), strings.Repeat("a", MaxArgsBytes)}
	wantCode(t, Args(args), ArgumentTooLong, "Argument exceeds 2048 characters")
}

func TestStdin_Absent(t *testing.T) {
	if err := Stdin(nil); err != nil {
		t.Fatalf("Stdin(nil) = %v, want nil", err)
	}
}

func TestStdin_Small(t *testing.T) {
	s := "hello"
	if err := Stdin(&s); err != nil {
		t.Fatalf("Stdin(hello) = %v, want nil", err)
	}
}

func TestStdin_AtLimit(t *testing.T) {
	s := strings.Repeat("a", MaxStdinBytes)
	if err := Stdin(&s); err != nil {
		t.Fatalf("Stdin(65536 bytes) = %v, want nil", err)
	}
}

func TestStdin_TooLarge(t *testing.T) {
	s := strings.Repeat("a", MaxStdinBytes+1)
	wantCode(t, Stdin(&s), StdinTooLarge, "stdin exceeds 65536 bytes")
}

func TestExecutionID(t *testing.T) {
	if err := ExecutionID("run-1"); err != nil {
		t.Errorf("ExecutionID(run-1) = %v, want nil", err)
	}
	wantCode(t, ExecutionID(""), MissingID, "Execution ID is required")
}
