package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row missing")
	err := Wrap(CodeNotFound, cause, "order not found")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsThroughWrappedChain(t *testing.T) {
	typed := New(CodeConflict, "coupon already redeemed")
	wrapped := fmt.Errorf("redeem: %w", typed)

	got := As(wrapped)
	if got == nil || got.Code() != CodeConflict {
		t.Fatalf("expected conflict, got %v", got)
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodePaymentVerification, "signature mismatch")
	if !IsCode(err, CodePaymentVerification) {
		t.Fatal("expected match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("unexpected match")
	}
	if IsCode(nil, CodeNotFound) {
		t.Fatal("nil should not match")
	}
}
