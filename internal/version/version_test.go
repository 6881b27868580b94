package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "v1.2.0"}, "v1.2.0"},
		{Info{Version: "v1.2.0", Commit: "abc"}, "v1.2.0 (abc)"},
		{Info{Version: "v1.2.0", Commit: "0123456789abcdef"}, "v1.2.0 (0123456789ab)"},
	}
	for _, tc := range tests {
		if got := tc.info.String(); got != tc.want {
			t.Errorf("String(%+v): got %q want %q", tc.info, got, tc.want)
		}
	}
}

func TestResolveFillsRuntime(t *testing.T) {
	t.Parallel()
	info := Resolve()
	if info.Version == "" {
		t.Fatal("Resolve must always produce a version")
	}
	if info.GoVersion != runtime.Version() {
		t.Fatalf("GoVersion: %q", info.GoVersion)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Fatalf("Platform: %q", info.Platform)
	}
}
