package opener

import "testing"

func TestCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"windows", "explorer"},
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
	}
	for _, tt := range tests {
		name, args := command(tt.goos, "/tmp/x")
		if name != tt.want {
			t.Errorf("%s: got %q, want %q", tt.goos, name, tt.want)
		}
		if len(args) != 1 || args[0] != "/tmp/x" {
			t.Errorf("%s: args = %v", tt.goos, args)
		}
	}
}
