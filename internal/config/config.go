// Package config holds the REPL's configuration handle: a viper-backed
// settings file plus the in-flight compression flag that guards the
// ask() barrier. Reads take a cheap snapshot; writes are brief transactions
// that never enclose a suspension point.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Settings is the flat, user-editable configuration surface. Unlike the
// multi-provider form this is distilled from, there is exactly one active
// model and role at a time; per-provider credential plumbing lives outside
// this package's scope.
type Settings struct {
	Model               string            `mapstructure:"model"`
	Role                string            `mapstructure:"role"`
	RolePrompt          string            `mapstructure:"role_prompt"`
	Keymap              string            `mapstructure:"keymap"` // "emacs" or "vi"
	CompressionTokens   int               `mapstructure:"compression_tokens"`
	SummarisationPrompt string            `mapstructure:"summarisation_prompt"`
	Extra               map[string]string `mapstructure:"extra"`
}

func defaults() map[string]any {
	return map[string]any{
		"model":                "claude-sonnet-4-5",
		"keymap":               "emacs",
		"compression_tokens":   100000,
		"summarisation_prompt": "Summarise this conversation so it can continue with less context.",
	}
}

// Handle is the shared configuration handle described in the concurrency
// model: many concurrent readers via Snapshot, one writer at a time via
// Update, and a separate flag (guarded by the same lock) for whether a
// compression task is in flight.
type Handle struct {
	mu          sync.RWMutex
	settings    Settings
	v           *viper.Viper
	path        string
	compressing bool
}

// Load reads (or defaults) the settings file at the XDG config location.
func Load() (*Handle, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load, but reads the named file directly instead of
// searching the XDG config directory when override is non-empty. Used by
// the chat command's --config flag.
func LoadFrom(override string) (*Handle, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}

	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	path := filepath.Join(dir, "config.yaml")
	if override != "" {
		v.SetConfigFile(override)
		path = override
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}

	return &Handle{settings: s, v: v, path: path}, nil
}

// Dir returns the XDG config directory for this tool.
func Dir() (string, error) {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "chatrepl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chatrepl"), nil
}

// Snapshot returns a cheap copy of the current settings. The caller must
// not hold it across a suspension point expecting it to stay current.
func (h *Handle) Snapshot() Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings.clone()
}

func (s Settings) clone() Settings {
	out := s
	out.Extra = make(map[string]string, len(s.Extra))
	for k, v := range s.Extra {
		out.Extra[k] = v
	}
	return out
}

// Update runs fn against a mutable copy of the settings under the write
// lock and commits the result. fn must be brief and must not block.
func (h *Handle) Update(fn func(*Settings)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.settings)
}

// Save persists the current settings to disk as YAML.
func (h *Handle) Save() error {
	h.mu.RLock()
	s := h.settings.clone()
	h.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	h.v.Set("model", s.Model)
	h.v.Set("role", s.Role)
	h.v.Set("role_prompt", s.RolePrompt)
	h.v.Set("keymap", s.Keymap)
	h.v.Set("compression_tokens", s.CompressionTokens)
	h.v.Set("summarisation_prompt", s.SummarisationPrompt)
	h.v.Set("extra", s.Extra)
	return h.v.WriteConfigAs(h.path)
}

// SetKey applies a ".set <k> <v>" style update to one of the well-known
// fields, or into Extra for any key the switch below doesn't name.
func (h *Handle) SetKey(key, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch key {
	case "model":
		h.settings.Model = value
	case "role":
		h.settings.Role = value
	case "role_prompt":
		h.settings.RolePrompt = value
	case "keymap":
		if value != "emacs" && value != "vi" {
			return fmt.Errorf("config: unknown keymap %q", value)
		}
		h.settings.Keymap = value
	case "compression_tokens":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
			return fmt.Errorf("config: %s must be an integer: %w", key, err)
		}
		h.settings.CompressionTokens = n
	case "summarisation_prompt":
		h.settings.SummarisationPrompt = value
	default:
		if h.settings.Extra == nil {
			h.settings.Extra = make(map[string]string)
		}
		h.settings.Extra[key] = value
	}
	return nil
}

// Compressing reports whether a CompressionTask currently holds the
// in-flight flag. ask()'s compression barrier polls this.
func (h *Handle) Compressing() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.compressing
}

// SetCompressing sets or clears the in-flight flag. CompressionTask always
// clears it on return, success or failure, so ask() never deadlocks.
func (h *Handle) SetCompressing(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compressing = v
}
