package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AUTH_BCRYPT_COST", "4")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		wantOut string
	}{
		{name: "no command", args: nil, wantErr: true, wantOut: "usage"},
		{name: "unknown command", args: []string{"explode"}, wantErr: true},
		{name: "help", args: []string{"help"}, wantOut: "create-user"},
		{name: "migrate memory", args: []string{"migrate"}},
		{
			name:    "create admin",
			args:    []string{"create-user", "--name", "Root", "--email", "Root@Example.com", "--password", "password1"},
			wantOut: "created ADMIN root@example.com",
		},
		{
			name:    "create technician",
			args:    []string{"create-user", "--name", "Tom", "--email", "tom@example.com", "--password", "password1", "--role", "technician"},
			wantOut: "created TECHNICIAN tom@example.com",
		},
		{
			name:    "bad role",
			args:    []string{"create-user", "--name", "X", "--email", "x@example.com", "--password", "password1", "--role", "root"},
			wantErr: true,
		},
		{
			name:    "short password",
			args:    []string{"create-user", "--name", "X", "--email", "x@example.com", "--password", "short"},
			wantErr: true,
		},
		{name: "unknown flag", args: []string{"create-user", "--nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), tt.args, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("Expected output to contain %q, got %q", tt.wantOut, out.String())
			}
		})
	}
}
