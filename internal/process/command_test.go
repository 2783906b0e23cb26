package process

import (
	"slices"
	"strings"
	"testing"
)

func TestCommandArgv(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		want    []string
		wantErr bool
	}{
		{"shell", Command{Shell: "echo hi"}, []string{DefaultShell, "-c", "echo hi"}, false},
		{"args", Command{Args: []string{"ls", "-l"}}, []string{"ls", "-l"}, false},
		{"empty", Command{}, nil, true},
		{"empty program", Command{Args: []string{""}}, nil, true},
		{"both", Command{Shell: "true", Args: []string{"true"}}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.argv()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("argv() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("argv() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("argv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandEnviron(t *testing.T) {
	t.Setenv("CMDUTILS_INHERITED", "parent")
	t.Setenv("CMDUTILS_OVERRIDDEN", "parent")

	cmd := Command{Env: map[string]string{
		"CMDUTILS_OVERRIDDEN": "child",
		"CMDUTILS_ADDED":      "new",
	}}
	env := cmd.environ()

	count := func(key string) (n int, value string) {
		for _, kv := range env {
			if k, v, _ := strings.Cut(kv, "="); k == key {
				n++
				value = v
			}
		}
		return n, value
	}

	for key, want := range map[string]string{
		"CMDUTILS_INHERITED":  "parent",
		"CMDUTILS_OVERRIDDEN": "child",
		"CMDUTILS_ADDED":      "new",
	} {
		n, got := count(key)
		if n != 1 {
			t.Errorf("%s defined %d times, want 1", key, n)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestCommandEnvironNilInherits(t *testing.T) {
	t.Setenv("CMDUTILS_INHERITED", "parent")

	env := Command{}.environ()
	if !slices.Contains(env, "CMDUTILS_INHERITED=parent") {
		t.Error("inherited variable missing from environment")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Shell: "echo $HOME | wc -c"}, "echo $HOME | wc -c"},
		{Command{Args: []string{"ls", "-l"}}, "ls -l"},
		{Command{Args: []string{"echo", "two words", ""}}, `echo "two words" ""`},
	}

	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCommandClone(t *testing.T) {
	orig := Command{Args: []string{"a"}, Env: map[string]string{"K": "v"}}
	c := orig.clone()
	c.Args[0] = "b"
	c.Env["K"] = "changed"

	if orig.Args[0] != "a" || orig.Env["K"] != "v" {
		t.Errorf("clone shares state with original: %+v", orig)
	}
}

func TestStreamString(t *testing.T) {
	if Stdout.String() != "stdout" || Stderr.String() != "stderr" {
		t.Errorf("unexpected stream names %q, %q", Stdout, Stderr)
	}
	if got := Stream(7).String(); got != "stream(7)" {
		t.Errorf("Stream(7).String() = %q", got)
	}
}
