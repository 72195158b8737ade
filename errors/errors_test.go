package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	if !New(ErrCodeTimeout, "slow").Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if New(ErrCodeConfiguration, "bad").Retryable {
		t.Error("CONFIGURATION_ERROR should not be retryable")
	}
}

func TestAppError_Error_IncludesCause(t *testing.T) {
	err := Internal(fmt.Errorf("boom"))
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
	if !strings.HasPrefix(err.Error(), string(ErrCodeInternal)) {
		t.Errorf("expected code prefix, got %q", err.Error())
	}
}

func TestConfiguration_Details(t *testing.T) {
	err := Configuration("pkg.UserAPI", "GetUser", "unsupported return shape")
	if err.Details[DetailContract] != "pkg.UserAPI" {
		t.Errorf("expected contract detail, got %v", err.Details)
	}
	if err.Details[DetailOperation] != "GetUser" {
		t.Errorf("expected operation detail, got %v", err.Details)
	}

	bare := Configuration("", "", "x")
	if len(bare.Details) != 0 {
		t.Errorf("expected no details, got %v", bare.Details)
	}
}

func TestTransport_KeepsStatusAndCause(t *testing.T) {
	cause := fmt.Errorf("upstream")
	err := Transport("GetUser", http.StatusNotFound, false, cause)
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
	if err.Details[DetailStatus] != http.StatusNotFound {
		t.Errorf("expected status detail, got %v", err.Details)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}

	noResp := Transport("GetUser", 0, true, cause)
	if _, ok := noResp.Details[DetailStatus]; ok {
		t.Error("expected no status detail without a response")
	}
	if !noResp.Retryable {
		t.Error("expected retryable flag to be kept")
	}
}

func TestSentinels_MatchByCode(t *testing.T) {
	wrapped := fmt.Errorf("call: %w", Pipeline("GetUser", "filter", fmt.Errorf("x")))
	if !stderrors.Is(wrapped, ErrPipeline) {
		t.Error("expected ErrPipeline to match")
	}
	if stderrors.Is(wrapped, ErrTransport) {
		t.Error("expected ErrTransport not to match")
	}
	if stderrors.Is(Pipeline("a", "b", nil), Pipeline("a", "b", nil)) {
		t.Error("non-sentinel targets should not match by code")
	}
}

func TestHelpers(t *testing.T) {
	err := fmt.Errorf("outer: %w", Timeout("GetUser", nil))
	if CodeOf(err) != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %q", CodeOf(err))
	}
	if !IsRetryable(err) {
		t.Error("expected timeout to be retryable")
	}
	if CodeOf(fmt.Errorf("plain")) != "" {
		t.Error("expected empty code for plain error")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestRetryExhausted(t *testing.T) {
	err := RetryExhausted(4, nil)
	if err.Details[DetailAttempts] != 4 {
		t.Errorf("expected attempts=4, got %v", err.Details[DetailAttempts])
	}
	if !stderrors.Is(err, ErrRetryExhausted) {
		t.Error("expected ErrRetryExhausted to match")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCodePipeline, "x").WithDetails(map[string]any{"a": 1}).WithDetail("b", 2)
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("unexpected details %v", err.Details)
	}
}
