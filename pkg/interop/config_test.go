package interop

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jsbind/pkg/vm"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
field_naming = "as-is"
sweep_interval = "1m"
`)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FieldNaming != "as-is" || cfg.SweepInterval != "1m" {
		t.Errorf("decoded = %+v", cfg)
	}
	if cfg.TagName != "js" || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name, doc, want string
	}{
		{"unknown key", `bogus = 1`, "unknown keys: bogus"},
		{"bad naming", `field_naming = "snake"`, "field_naming"},
		{"empty tag", `tag_name = ""`, "tag_name"},
		{"bad duration", `sweep_interval = "soon"`, "sweep_interval"},
		{"negative duration", `sweep_interval = "-1s"`, "negative"},
		{"bad level", `log_level = "loud"`, "log_level"},
		{"bad toml", `field_naming = `, "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.doc)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	if err := os.WriteFile(path, []byte("tag_name = \"host\"\nlog_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TagName != "host" {
		t.Errorf("tag_name = %q", cfg.TagName)
	}
	l, err := cfg.NewLogger()
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("logger should be enabled at debug")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

type renamed struct {
	Label string `host:"label"`
	Count int
}

func TestBridgeHonoursConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldNaming = "as-is"
	b, err := NewBridge(cfg)
	if err != nil {
		t.Fatal(err)
	}
	v := b.ToValue(&point{X: 4})
	if x := mustGet(t, v, "X"); x.AsFloat() != 4 {
		t.Errorf("X = %v", x)
	}
	if ok, _ := v.Has(vm.NewStringKey("x")); ok {
		t.Error("as-is naming should not lowercase")
	}

	cfg = DefaultConfig()
	cfg.TagName = "host"
	b, _ = NewBridge(cfg)
	keys, _ := b.ToValue(&renamed{}).OwnKeys()
	if got := keyNames(keys); len(got) != 1 || got[0] != "label" {
		t.Errorf("OwnKeys with tag_name host = %v", got)
	}

	if _, err := NewBridge(Config{}); err == nil {
		t.Error("a config without tag_name should be rejected")
	}
}

func TestStartSweeperLogs(t *testing.T) {
	logs := observeLogs(t, zap.InfoLevel)
	cfg := DefaultConfig()
	cfg.SweepInterval = "5ms"
	b, err := NewBridge(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.StartSweeper(ctx)
	if logs.FilterMessage("identity cache sweeper started").Len() != 1 {
		t.Error("sweeper start should be logged")
	}

	idle, _ := NewBridge(DefaultConfig())
	idle.StartSweeper(ctx)
	if logs.Len() != 1 {
		t.Error("a zero interval should not start a sweeper")
	}
}

func TestCacheLogsAtDebug(t *testing.T) {
	logs := observeLogs(t, zap.DebugLevel)
	b := newTestBridge(t)
	v := b.ToValue(&node{})
	entries := logs.FilterMessage("wrapper created").All()
	if len(entries) != 1 {
		t.Fatalf("wrapper created logged %d times", len(entries))
	}
	if entries[0].ContextMap()["type"] != "*interop.node" {
		t.Errorf("type field = %v", entries[0].ContextMap()["type"])
	}
	if err := v.SetStr("extra", vm.True); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("wrapper promoted").Len() != 1 {
		t.Error("promotion should be logged")
	}
}
