package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"

	"quizgen-backend/internal/middleware"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "token"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %q, got %v (%v)", name, cmd, err)
		}
	}
}

func TestTokenCommand(t *testing.T) {
	owner := uuid.New()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--secret", "cli-secret", "--user", owner.String()})
	if err := root.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}

	var token string
	for _, line := range strings.Split(out.String(), "\n") {
		if rest, ok := strings.CutPrefix(line, "token:"); ok {
			token = strings.TrimSpace(rest)
		}
	}
	got, err := middleware.NewJWTAuth("cli-secret").ParseUserID(token)
	if err != nil {
		t.Fatalf("printed token does not verify: %v", err)
	}
	if got != owner {
		t.Errorf("Expected token for %s, got %s", owner, got)
	}
}

func TestTokenCommand_RejectsBadUser(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--secret", "s", "--user", "not-a-uuid"})
	if err := root.Execute(); err == nil {
		t.Fatal("Expected an error for an invalid user id")
	}
}
