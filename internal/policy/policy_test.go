package policy

import "testing"

func TestResolver_NoPolicyDeniesEverything(t *testing.T) {
	r := NewResolver(nil)
	if r.IsAllowed("echo") {
		t.Fatal("expected nil policy to deny everything")
	}
}

func TestResolver_AllowList(t *testing.T) {
	r := NewResolver(NewPolicy(ProfileMinimal).WithAllow("echo"))
	if !r.IsAllowed("echo") {
		t.Fatal("expected echo to be allowed")
	}
	if r.IsAllowed("download") {
		t.Fatal("expected download to be denied")
	}
}

func TestResolver_DenyWinsOverAllow(t *testing.T) {
	r := NewResolver(NewPolicy(ProfileMinimal).WithAllow("echo").WithDeny("echo"))
	if r.IsAllowed("echo") {
		t.Fatal("expected deny to take precedence over allow")
	}
}

func TestResolver_ProfileFullAllowsUnlessDenied(t *testing.T) {
	r := NewResolver(NewPolicy(ProfileFull).WithDeny("download"))
	if !r.IsAllowed("echo") {
		t.Fatal("expected profile full to allow echo")
	}
	if r.IsAllowed("download") {
		t.Fatal("expected profile full to still honor deny")
	}
}

func TestResolver_GroupExpansion(t *testing.T) {
	r := NewResolver(NewPolicy(ProfileMinimal).WithAllow("group:demo"))
	r.AddGroup("group:demo", []string{"echo", "image"})

	if !r.IsAllowed("echo") || !r.IsAllowed("image") {
		t.Fatal("expected group members to be allowed")
	}
	if r.IsAllowed("download") {
		t.Fatal("expected non-member to be denied")
	}
}

func TestResolver_DecideReportsReason(t *testing.T) {
	r := NewResolver(NewPolicy(ProfileMinimal).WithDeny("echo"))
	decision := r.Decide("echo")
	if decision.Allowed {
		t.Fatal("expected echo to be denied")
	}
	if decision.Reason == "" {
		t.Fatal("expected a non-empty reason")
	}
}
