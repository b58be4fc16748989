package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestValidateCmd_ValidWithPrint(t *testing.T) {
	tdir := t.TempDir()
	cfgPath := writeFile(t, tdir, "apismoke.yaml", `---
credentials:
  username: puja
  password: mypassword
`)
	useConfig(t, cfgPath, "http://localhost:3000")

	var out bytes.Buffer
	validateCmd.SetOut(&out)
	t.Cleanup(func() { validateCmd.SetOut(nil); _ = validateCmd.Flags().Set("print", "false") })
	if err := validateCmd.Flags().Set("print", "true"); err != nil {
		t.Fatal(err)
	}

	if err := validateCmd.RunE(validateCmd, nil); err != nil {
		t.Fatalf("validate: %v", err)
	}
	s := out.String()
	if !strings.HasSuffix(s, "configuration is valid\n") {
		t.Fatalf("unexpected output:\n%s", s)
	}
	if strings.Contains(s, "mypassword") {
		t.Fatalf("password leaked:\n%s", s)
	}
	if !strings.Contains(s, "username: puja") {
		t.Fatalf("expected printed configuration:\n%s", s)
	}
}

func TestValidateCmd_Invalid(t *testing.T) {
	tdir := t.TempDir()
	cfgPath := writeFile(t, tdir, "apismoke.yaml", `---
product:
  sku: ""
wait:
  method: POST
`)
	useConfig(t, cfgPath, "http://localhost:3000")

	var out bytes.Buffer
	validateCmd.SetOut(&out)
	t.Cleanup(func() { validateCmd.SetOut(nil) })

	if err := validateCmd.RunE(validateCmd, nil); err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"configuration is invalid", "product.sku", "wait.method"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestHistoryCmd_DisabledStore(t *testing.T) {
	tdir := t.TempDir()
	cfgPath := writeFile(t, tdir, "apismoke.yaml", "store:\n  disabled: true\n")
	useConfig(t, cfgPath, "http://localhost:3000")

	err := historyCmd.RunE(historyCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled store error, got %v", err)
	}
}
