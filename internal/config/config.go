// Package config loads tilewm's configuration file: sections layout,
// border, rules, app_rules, menubar, workspaces and bindings (spec §6).
//
// Grounded on the teacher's internal/config package: gopkg.in/yaml.v3 for
// parsing, a DefaultConfig() providing every optional key's fallback, and a
// ValidationError{Path, Err} type carrying a "section.key"-shaped breadcrumb
// so malformed config is diagnosable instead of a bare "invalid config".
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidationError reports a problem with one config key, named by its
// dotted path (e.g. "layout.dim_unfocused").
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TilingMode selects the master-stack or scrolling-columns engine.
type TilingMode string

const (
	TilingModeHyprland TilingMode = "hyprland"
	TilingModeNiri     TilingMode = "niri"
)

// LayoutConfig is the [layout] section.
type LayoutConfig struct {
	InnerGap            int        `yaml:"inner_gap"`
	OuterGap            int        `yaml:"outer_gap"`
	SingleWindowPadding  int        `yaml:"single_window_padding"`
	Animations           bool       `yaml:"animations"`
	NativeAnimation      bool       `yaml:"native_animation"`
	FocusFollowsMouse    bool       `yaml:"focus_follows_mouse"`
	FocusFollowsApp      bool       `yaml:"focus_follows_app"`
	AutoFloatDialogs     bool       `yaml:"auto_float_dialogs"`
	ForcePromotion       bool       `yaml:"force_promotion"`
	DimUnfocused         float64    `yaml:"dim_unfocused"`
	TilingMode           TilingMode `yaml:"tiling_mode"`
	NiriColumnWidth      float64    `yaml:"niri_column_width"`
	Hyperkey             string     `yaml:"hyperkey"`
}

// BorderConfig is the [border] section.
type BorderConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Width         int    `yaml:"width"`
	Radius        int    `yaml:"radius"`
	ActiveColor   string `yaml:"active_color"`
	InactiveColor string `yaml:"inactive_color"`
}

// RulesConfig is the [rules] section: comma lists of app name/bundle id
// matchers, matched case-sensitively against TrackedWindow.AppName/BundleID.
type RulesConfig struct {
	Float      []string `yaml:"float"`
	Exclude    []string `yaml:"exclude"`
	Sticky     []string `yaml:"sticky"`
	Swallow    []string `yaml:"swallow"`
	SwallowAll bool     `yaml:"swallow_all"`
}

// MenubarConfig is the [menubar] section. The menu bar UI itself is out of
// scope (spec §1); this only carries the one setting the Core's dimmer/
// border update logic needs to know whether a status indicator exists to
// refresh.
type MenubarConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the fully parsed configuration file.
type Config struct {
	Layout     LayoutConfig      `yaml:"layout"`
	Border     BorderConfig      `yaml:"border"`
	Rules      RulesConfig       `yaml:"rules"`
	AppRules   map[string]string `yaml:"app_rules"`
	Menubar    MenubarConfig     `yaml:"menubar"`
	Workspaces map[string]string `yaml:"workspaces"`
	Bindings   map[string]string `yaml:"bindings"`
}

// DefaultConfig returns the configuration used when no file is present and
// as the base every loaded file's zero-valued fields fall back to.
func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutConfig{
			InnerGap:          8,
			OuterGap:          8,
			Animations:        true,
			FocusFollowsMouse: false,
			FocusFollowsApp:   true,
			AutoFloatDialogs:  true,
			TilingMode:        TilingModeHyprland,
			NiriColumnWidth:   0.5,
			Hyperkey:          "",
		},
		Border: BorderConfig{
			Enabled:       false,
			Width:         2,
			Radius:        6,
			ActiveColor:   "#89b4fa",
			InactiveColor: "#313244",
		},
		Rules:      RulesConfig{},
		AppRules:   map[string]string{},
		Menubar:    MenubarConfig{Enabled: true},
		Workspaces: map[string]string{},
		Bindings:   map[string]string{},
	}
}

// DefaultPath returns the config file tilewmd reads at startup:
// $XDG_CONFIG_HOME/tilewm/config.yaml, falling back to ~/.config/tilewm.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}
	return dir + "/tilewm/config.yaml", nil
}

// Load reads and parses path, filling any key the file omits from
// DefaultConfig, then validates the result. A missing file is not an error:
// Load returns DefaultConfig() (spec §7 config-parse: "defaults fill missing
// values" extends to a missing file entirely).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}

	mergeLayout(&cfg.Layout, parsed.Layout)
	mergeBorder(&cfg.Border, parsed.Border)
	if len(parsed.Rules.Float) > 0 || len(parsed.Rules.Exclude) > 0 || len(parsed.Rules.Sticky) > 0 || len(parsed.Rules.Swallow) > 0 {
		cfg.Rules = parsed.Rules
	}
	for app, rule := range parsed.AppRules {
		cfg.AppRules[app] = rule
	}
	if parsed.Menubar != (MenubarConfig{}) {
		cfg.Menubar = parsed.Menubar
	}
	for n, name := range parsed.Workspaces {
		cfg.Workspaces[n] = name
	}
	for binding, act := range parsed.Bindings {
		cfg.Bindings[binding] = act
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, errs[0]
	}
	return cfg, nil
}

func mergeLayout(base *LayoutConfig, override LayoutConfig) {
	if override.InnerGap != 0 {
		base.InnerGap = override.InnerGap
	}
	if override.OuterGap != 0 {
		base.OuterGap = override.OuterGap
	}
	if override.SingleWindowPadding != 0 {
		base.SingleWindowPadding = override.SingleWindowPadding
	}
	base.Animations = override.Animations || base.Animations
	base.NativeAnimation = override.NativeAnimation
	base.FocusFollowsMouse = override.FocusFollowsMouse
	base.FocusFollowsApp = override.FocusFollowsApp || base.FocusFollowsApp
	base.AutoFloatDialogs = override.AutoFloatDialogs || base.AutoFloatDialogs
	base.ForcePromotion = override.ForcePromotion
	if override.DimUnfocused != 0 {
		base.DimUnfocused = override.DimUnfocused
	}
	if override.TilingMode != "" {
		base.TilingMode = override.TilingMode
	}
	if override.NiriColumnWidth != 0 {
		base.NiriColumnWidth = override.NiriColumnWidth
	}
	if override.Hyperkey != "" {
		base.Hyperkey = override.Hyperkey
	}
}

func mergeBorder(base *BorderConfig, override BorderConfig) {
	base.Enabled = override.Enabled || base.Enabled
	if override.Width != 0 {
		base.Width = override.Width
	}
	if override.Radius != 0 {
		base.Radius = override.Radius
	}
	if override.ActiveColor != "" {
		base.ActiveColor = override.ActiveColor
	}
	if override.InactiveColor != "" {
		base.InactiveColor = override.InactiveColor
	}
}

// Validate checks every section for out-of-range or malformed values,
// returning one ValidationError per problem found. Defaults already fill
// missing values, so Validate only rejects values a user actually supplied.
func (c *Config) Validate() []error {
	var errs []error

	if c.Layout.InnerGap < 0 {
		errs = append(errs, &ValidationError{Path: "layout.inner_gap", Err: fmt.Errorf("must be >= 0, got %d", c.Layout.InnerGap)})
	}
	if c.Layout.OuterGap < 0 {
		errs = append(errs, &ValidationError{Path: "layout.outer_gap", Err: fmt.Errorf("must be >= 0, got %d", c.Layout.OuterGap)})
	}
	if c.Layout.DimUnfocused < 0 || c.Layout.DimUnfocused > 1 {
		errs = append(errs, &ValidationError{Path: "layout.dim_unfocused", Err: fmt.Errorf("must be in [0,1], got %v", c.Layout.DimUnfocused)})
	}
	if c.Layout.TilingMode != TilingModeHyprland && c.Layout.TilingMode != TilingModeNiri {
		errs = append(errs, &ValidationError{Path: "layout.tiling_mode", Err: fmt.Errorf("must be hyprland or niri, got %q", c.Layout.TilingMode)})
	}
	if c.Layout.NiriColumnWidth < 0.1 || c.Layout.NiriColumnWidth > 3.0 {
		errs = append(errs, &ValidationError{Path: "layout.niri_column_width", Err: fmt.Errorf("must be in [0.1,3.0], got %v", c.Layout.NiriColumnWidth)})
	}
	if c.Border.Width < 0 {
		errs = append(errs, &ValidationError{Path: "border.width", Err: fmt.Errorf("must be >= 0, got %d", c.Border.Width)})
	}
	if c.Border.Radius < 0 {
		errs = append(errs, &ValidationError{Path: "border.radius", Err: fmt.Errorf("must be >= 0, got %d", c.Border.Radius)})
	}
	for app, rule := range c.AppRules {
		if _, err := ParseAppRule(rule); err != nil {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("app_rules.%s", app), Err: err})
		}
	}
	for binding, act := range c.Bindings {
		if _, _, err := ParseBindingKey(binding); err != nil {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("bindings.%s", binding), Err: err})
			continue
		}
		if _, err := ParseBindingAction(act); err != nil {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("bindings.%s", binding), Err: err})
		}
	}
	return errs
}
