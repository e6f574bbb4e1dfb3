// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// upperValue is a pflag.Value that upper-cases its input.
type upperValue struct{ value string }

func (u *upperValue) String() string     { return u.value }
func (u *upperValue) Set(s string) error { u.value = strings.ToUpper(s); return nil }
func (u *upperValue) Type() string       { return "upper" }

type SharedParams struct {
	Config  string `flag:"config" desc:"config file"`
	Verbose bool   `flag:"verbose,v" desc:"debug logging"`
}

type binderParams struct {
	Target string
}

func (b *binderParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&b.Target, "target", "", "bound by AddFlags")
}

func TestBindFlags(t *testing.T) {
	type params struct {
		SharedParams
		JSONOutput
		Binder   binderParams
		Role     string        `flag:"role" desc:"role name"`
		Hours    int           `flag:"hours" default:"1"`
		Wait     time.Duration `flag:"wait" default:"30s"`
		Tags     []string      `flag:"tag"`
		Mode     upperValue    `flag:"mode" default:"self"`
		Untagged string
	}

	var p params
	flagSet := FlagsFromParams("test", &p)
	if p.Hours != 1 || p.Wait != 30*time.Second || p.Mode.value != "SELF" {
		t.Errorf("defaults = %d %v %q, want 1 30s SELF", p.Hours, p.Wait, p.Mode.value)
	}

	err := flagSet.Parse([]string{
		"--config", "/etc/pim.yaml",
		"-v",
		"--json",
		"--target", "t1",
		"--role", "Reader",
		"--hours", "4",
		"--wait", "2m",
		"--tag", "a", "--tag", "b",
		"--mode", "admin",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Config != "/etc/pim.yaml" || !p.Verbose || !p.OutputJSON {
		t.Errorf("embedded = %q %v %v, want /etc/pim.yaml true true", p.Config, p.Verbose, p.OutputJSON)
	}
	if p.Binder.Target != "t1" {
		t.Errorf("Binder.Target = %q, want t1", p.Binder.Target)
	}
	if p.Role != "Reader" || p.Hours != 4 || p.Wait != 2*time.Minute {
		t.Errorf("fields = %q %d %v, want Reader 4 2m", p.Role, p.Hours, p.Wait)
	}
	if strings.Join(p.Tags, ",") != "a,b" {
		t.Errorf("Tags = %v, want [a b]", p.Tags)
	}
	if p.Mode.value != "ADMIN" {
		t.Errorf("Mode = %q, want ADMIN", p.Mode.value)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlagsErrors(t *testing.T) {
	var notPointer struct{}
	if err := BindFlags(notPointer, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a non-pointer")
	}

	type badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted an unparseable default")
	}

	type unsupported struct {
		Ratio complex64 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted an unsupported type")
	}
}
