package main

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"libdesk/internal/platform/db"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "overdue", "recent", "login", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil || f.DefValue != db.DefaultConfigPath {
		t.Fatalf("config flag = %+v", f)
	}
}

func TestCertPaths(t *testing.T) {
	cfg := &db.Config{Mode: "release", Certificate: db.Certs{Cert: "server.crt", Key: "server.key"}}
	cert, key := certPaths(cfg)
	if cert != "config/tls/release/server.crt" || key != "config/tls/release/server.key" {
		t.Fatalf("got %s %s", cert, key)
	}
	cfg.Certificate.Key = ""
	if cert, _ := certPaths(cfg); cert != "" {
		t.Fatal("half-configured certificate should mean plain HTTP")
	}
}

func TestPrompt(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("desk@example.com\nsecret"))
	email, err := prompt(in, io.Discard, "Email: ")
	if err != nil || email != "desk@example.com" {
		t.Fatalf("email = %q, %v", email, err)
	}
	pw, err := prompt(in, io.Discard, "Password: ")
	if err != nil || pw != "secret" {
		t.Fatalf("password = %q, %v", pw, err)
	}
	if _, err := prompt(in, io.Discard, "again: "); err == nil {
		t.Fatal("expected error on empty input")
	}
}
