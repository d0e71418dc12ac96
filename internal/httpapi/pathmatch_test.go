package httpapi

import "testing"

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/auth/**", "/auth/login", true},
		{"/auth/**", "/auth/oauth/callback", true},
		{"/auth/**", "/auth", true},
		{"/auth/**", "/api/user/get-all", false},
		{"/login**", "/login", true},
		{"/login**", "/login-callback", true},
		{"/login**", "/login/session", false},
		{"/2fa/**", "/2fa/verify", true},
		{"/api/user/delete/**", "/api/user/delete/alice", true},
		{"/api/user/delete/**", "/api/user/delete", true},
		{"/api/user/delete/**", "/api/user/get/alice", false},
		{"/api/*/get-all", "/api/user/get-all", true},
		{"/api/*/get-all", "/api/user/extra/get-all", false},
		{"/api/role-permission/**", "/api/role-permission/grant", true},
		{"/api/role-permission/**", "/api/role-permissions", false},
		{"/log/**", "/log/events/42", true},
		{"", "/anything", false},
		{"/exact", "/exact", true},
		{"/exact", "/exact/child", false},
	}
	for _, tc := range cases {
		if got := MatchPattern(tc.pattern, tc.path); got != tc.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"/auth/**", "/login**", "/error**", "/2fa/**"}
	if !MatchAny(patterns, "/2fa/reset") {
		t.Fatal("expected /2fa/reset exempt")
	}
	if MatchAny(patterns, "/api/user/get/alice") {
		t.Fatal("/api/user/get/alice must not be exempt")
	}
}
