package config

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appconfig "github.com/Iron-Ham/waitroom/internal/config"
)

func setup(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	viper.Reset()
	appconfig.SetDefaults()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(viper.Reset)

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	return cmd, buf
}

func TestRunConfigShow(t *testing.T) {
	cmd, buf := setup(t)
	viper.Set("store.backend", "sqlite")

	if err := runConfigShow(cmd, nil); err != nil {
		t.Fatalf("runConfigShow() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"(none - using defaults)",
		"wait:",
		"heartbeat_interval_seconds: 30",
		"backend: sqlite",
		"addr: localhost:8765",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunConfigShow_Invalid(t *testing.T) {
	cmd, _ := setup(t)
	viper.Set("store.backend", "redis")

	if err := runConfigShow(cmd, nil); err == nil {
		t.Error("expected validation error")
	}
}

func TestRunConfigSet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "int", key: "wait.heartbeat_interval_seconds", value: "15"},
		{name: "select", key: "store.backend", value: "sqlite"},
		{name: "bool", key: "logging.compress", value: "true"},
		{name: "unknown key", key: "tui.theme", value: "nord", wantErr: "unknown configuration key"},
		{name: "bad int", key: "wait.poll_interval_ms", value: "fast", wantErr: "expected integer"},
		{name: "bad option", key: "logging.level", value: "trace", wantErr: "invalid option"},
		{name: "cross-field", key: "wait.default_timeout_seconds", value: "99999", wantErr: "max_timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, buf := setup(t)

			err := runConfigSet(cmd, []string{tt.key, tt.value})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("runConfigSet() error = %v, want %q", err, tt.wantErr)
				}
				if _, statErr := os.Stat(appconfig.ConfigFile()); statErr == nil {
					t.Error("config file written despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("runConfigSet() error = %v", err)
			}

			data, err := os.ReadFile(appconfig.ConfigFile())
			if err != nil {
				t.Fatalf("config file not written: %v", err)
			}
			leaf := tt.key[strings.LastIndex(tt.key, ".")+1:]
			if !strings.Contains(string(data), leaf+": "+tt.value) {
				t.Errorf("config file missing %s: %s\n%s", leaf, tt.value, data)
			}
			if !strings.Contains(buf.String(), "Set "+tt.key) {
				t.Errorf("output = %q", buf.String())
			}
		})
	}
}

func TestRunConfigInit(t *testing.T) {
	cmd, buf := setup(t)

	if err := runConfigInit(cmd, nil); err != nil {
		t.Fatalf("runConfigInit() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Created config file") {
		t.Errorf("output = %q", buf.String())
	}

	data, err := os.ReadFile(appconfig.ConfigFile())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# waitroom configuration") {
		t.Error("config file missing header")
	}

	var got appconfig.Config
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("generated file is not valid YAML: %v", err)
	}
	if !reflect.DeepEqual(&got, appconfig.Default()) {
		t.Errorf("generated config = %+v, want defaults", got)
	}

	if err := runConfigInit(cmd, nil); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init error = %v, want already exists", err)
	}
}

func TestRunConfigReset(t *testing.T) {
	t.Run("single key", func(t *testing.T) {
		cmd, buf := setup(t)
		viper.Set("server.name", "custom")
		viper.Set("store.backend", "sqlite")

		if err := runConfigReset(cmd, []string{"server.name"}); err != nil {
			t.Fatalf("runConfigReset() error = %v", err)
		}
		if got := viper.GetString("server.name"); got != "waitroom" {
			t.Errorf("server.name = %q, want waitroom", got)
		}
		if got := viper.GetString("store.backend"); got != "sqlite" {
			t.Errorf("store.backend = %q, should be untouched", got)
		}
		if !strings.Contains(buf.String(), "Reset server.name to default: waitroom") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("all keys", func(t *testing.T) {
		cmd, _ := setup(t)
		viper.Set("server.name", "custom")
		viper.Set("wait.poll_interval_ms", 50)

		if err := runConfigReset(cmd, nil); err != nil {
			t.Fatalf("runConfigReset() error = %v", err)
		}
		if got := viper.GetString("server.name"); got != "waitroom" {
			t.Errorf("server.name = %q", got)
		}
		if got := viper.GetInt("wait.poll_interval_ms"); got != 1000 {
			t.Errorf("wait.poll_interval_ms = %d", got)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		cmd, _ := setup(t)
		if err := runConfigReset(cmd, []string{"nope"}); err == nil {
			t.Error("expected error for unknown key")
		}
	})
}

func TestRunConfigPath(t *testing.T) {
	cmd, buf := setup(t)

	if err := runConfigPath(cmd, nil); err != nil {
		t.Fatalf("runConfigPath() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, appconfig.ConfigFile()) || !strings.Contains(out, "WAITROOM_") {
		t.Errorf("output = %q", out)
	}
}

func stubExec(t *testing.T, lookPath func(string) (string, error)) *[]string {
	t.Helper()
	var ran []string
	origLook, origCmd := execLookPath, execCommand
	execLookPath = lookPath
	execCommand = func(name string, args ...string) *exec.Cmd {
		ran = append(append(ran, name), args...)
		// Re-run the test binary with no tests selected; it exits 0.
		return exec.Command(os.Args[0], "-test.run=^$")
	}
	t.Cleanup(func() { execLookPath, execCommand = origLook, origCmd })
	return &ran
}

func TestRunConfigEdit(t *testing.T) {
	t.Run("uses EDITOR and creates the file", func(t *testing.T) {
		cmd, _ := setup(t)
		t.Setenv("EDITOR", "myeditor")
		ran := stubExec(t, func(string) (string, error) { return "", errors.New("not found") })

		if err := runConfigEdit(cmd, nil); err != nil {
			t.Fatalf("runConfigEdit() error = %v", err)
		}
		want := []string{"myeditor", appconfig.ConfigFile()}
		if !reflect.DeepEqual(*ran, want) {
			t.Errorf("ran %v, want %v", *ran, want)
		}
		if _, err := os.Stat(appconfig.ConfigFile()); err != nil {
			t.Errorf("config file not created: %v", err)
		}
	})

	t.Run("falls back to a known editor", func(t *testing.T) {
		cmd, _ := setup(t)
		t.Setenv("EDITOR", "")
		t.Setenv("VISUAL", "")
		ran := stubExec(t, func(name string) (string, error) {
			if name == "nano" {
				return "/usr/bin/nano", nil
			}
			return "", errors.New("not found")
		})

		if err := runConfigEdit(cmd, nil); err != nil {
			t.Fatalf("runConfigEdit() error = %v", err)
		}
		if len(*ran) == 0 || (*ran)[0] != "nano" {
			t.Errorf("ran %v, want nano", *ran)
		}
	})

	t.Run("no editor", func(t *testing.T) {
		cmd, _ := setup(t)
		t.Setenv("EDITOR", "")
		t.Setenv("VISUAL", "")
		stubExec(t, func(string) (string, error) { return "", errors.New("not found") })

		if err := runConfigEdit(cmd, nil); err == nil || !strings.Contains(err.Error(), "no editor") {
			t.Errorf("runConfigEdit() error = %v, want no editor", err)
		}
	})
}
