package httpmiddleware

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := NewSimpleTokenBucket(3, 3)

	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if l.allow("1.2.3.4") {
		t.Error("expected limit after capacity exhausted")
	}
	// other clients are tracked independently
	if !l.allow("5.6.7.8") {
		t.Error("separate ip should not be limited")
	}
}
