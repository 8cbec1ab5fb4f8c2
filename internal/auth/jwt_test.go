package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("lab-client-1", "client", "proctorlog", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "test-key", "proctorlog")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "lab-client-1" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Role != "client" {
		t.Errorf("role = %q", claims.Role)
	}
}

func TestParseRejects(t *testing.T) {
	pair, err := Issue("lab-client-1", "client", "proctorlog", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := Issue("lab-client-1", "client", "proctorlog", "test-key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		key    string
		issuer string
	}{
		{name: "wrong key", token: pair.AccessToken, key: "other-key", issuer: "proctorlog"},
		{name: "wrong issuer", token: pair.AccessToken, key: "test-key", issuer: "someone-else"},
		{name: "expired", token: expired.AccessToken, key: "test-key", issuer: "proctorlog"},
		{name: "garbage", token: "not.a.token", key: "test-key", issuer: "proctorlog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.key, tt.issuer); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
