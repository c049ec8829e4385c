package cli

import (
	"fmt"
	"testing"

	"finbrief/internal/service"
)

func TestCommandSurfaceIsFlat(t *testing.T) {
	want := map[string]bool{
		"generate":   false,
		"schedule":   false,
		"add":        false,
		"remove":     false,
		"activate":   false,
		"deactivate": false,
		"list":       false,
		"version":    false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered on the root command", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("plain"), 1},
		{&service.Failure{Kind: service.FailGenerate, Err: fmt.Errorf("x")}, 2},
		{&service.Failure{Kind: service.FailPersist, Err: fmt.Errorf("x")}, 3},
		{&service.Failure{Kind: service.FailDeliver, Err: fmt.Errorf("x")}, 4},
		{&service.Failure{Kind: service.FailSubscribers, Err: fmt.Errorf("x")}, 5},
		{fmt.Errorf("wrapped: %w", &service.Failure{Kind: service.FailDeliver, Err: fmt.Errorf("x")}), 4},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
