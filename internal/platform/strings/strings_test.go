package strings

import (
	"testing"

	kit "msgstats/internal/platform/testkit"
)

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{
		"collect":    "/collect",
		" /stats/ ":  "/stats",
		"//meta//":   "/meta",
		"/api/v1/x/": "/api/v1/x",
	}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	kit.MustPanic(t, func() { MustPrefix(" / ") })
	kit.MustPanic(t, func() { MustString("  ", "name") })
}

func TestFoldName(t *testing.T) {
	if FoldName("#General") != FoldName("general") {
		t.Fatalf("hash and case should fold away")
	}
	if FoldName(" ÉCOLE ") != FoldName("école") {
		t.Fatalf("non ascii should fold, got %q vs %q", FoldName(" ÉCOLE "), FoldName("école"))
	}
	if FoldName("dev-chat") == FoldName("dev-chat-2") {
		t.Fatalf("distinct names must stay distinct")
	}
}

func TestSmallHelpers(t *testing.T) {
	if SQLNull("  ") != nil || SQLNull("x") != "x" {
		t.Fatalf("SQLNull")
	}
	if Deref(nil) != "" {
		t.Fatalf("Deref nil")
	}
	if got := IfEmpty(nil, []string{"GET"}); len(got) != 1 {
		t.Fatalf("IfEmpty default")
	}
}
