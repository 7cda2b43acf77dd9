package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, path := range [][]string{
		{"serve"},
		{"worker"},
		{"migrate"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"healthcheck"},
		{"audit"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Errorf("Find(%v) error = %v", path, err)
			continue
		}
		if want := path[len(path)-1]; cmd.Name() != want {
			t.Errorf("Find(%v) = %q, want %q", path, cmd.Name(), want)
		}
	}
}

func TestNewRootCommand_DefaultsToServe(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	if root.RunE == nil {
		t.Fatal("サブコマンド省略時もルートコマンドで起動できるべき")
	}
}

func TestAuditCommand_LimitFlag(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	cmd, _, err := root.Find([]string{"audit"})
	if err != nil {
		t.Fatalf("Find(audit) error = %v", err)
	}

	flag := cmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("audit should have --limit flag")
	}
	if flag.DefValue != "20" {
		t.Errorf("--limit default = %q, want 20", flag.DefValue)
	}
	if flag.Shorthand != "n" {
		t.Errorf("--limit shorthand = %q, want n", flag.Shorthand)
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	err := Run(&bytes.Buffer{}, []string{"unknown"})
	if err == nil {
		t.Fatal("未知のサブコマンドはエラーになるべき")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("error = %v, want unknown command", err)
	}
}

func TestRun_ExtraArgs_ReturnsError(t *testing.T) {
	if err := Run(&bytes.Buffer{}, []string{"worker", "extra"}); err == nil {
		t.Fatal("余分な引数はエラーになるべき")
	}
}
