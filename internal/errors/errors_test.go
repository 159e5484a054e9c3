package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := New(CodeNotConnected, "wallet session not connected")
	wrapped := fmt.Errorf("submit transaction: %w", base)

	if !stderrors.Is(wrapped, New(CodeNotConnected, "different message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(wrapped, New(CodeSubmissionFailed, "wallet session not connected")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestGetCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{
			name: "domain error",
			err:  New(CodeRunInProgress, "mission already running"),
			want: CodeRunInProgress,
		},
		{
			name: "wrapped domain error",
			err:  fmt.Errorf("load mission: %w", New(CodeObjectiveIDEmpty, "objective id is required")),
			want: CodeObjectiveIDEmpty,
		},
		{
			name: "plain error",
			err:  stderrors.New("boom"),
			want: CodeUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetCode(tc.err); got != tc.want {
				t.Fatalf("GetCode = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeStorageFailure, "persist pending rewards", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if err.Error() != "persist pending rewards" {
		t.Fatalf("message = %q, want %q", err.Error(), "persist pending rewards")
	}
}

func TestRecoverable(t *testing.T) {
	if !CodeNotConnected.Recoverable() {
		t.Fatal("NOT_CONNECTED should be recoverable")
	}
	if !CodeSubmissionFailed.Recoverable() {
		t.Fatal("SUBMISSION_FAILED should be recoverable")
	}
	if CodeStorageFailure.Recoverable() {
		t.Fatal("STORAGE_FAILURE should not be recoverable")
	}
}
