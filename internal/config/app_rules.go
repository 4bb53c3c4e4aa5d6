package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hatchwm/tilewm/internal/wmstate"
)

// AppRulePosition is the positional half of an app_rules entry.
type AppRulePosition int

const (
	AppRulePositionNone AppRulePosition = iota
	AppRulePositionLeft
	AppRulePositionRight
)

// AppRule is one parsed [app_rules] entry: "App = left", "App = right" or
// "App = workspace N".
type AppRule struct {
	App       string
	Position  AppRulePosition
	Workspace wmstate.WorkspaceNumber // zero if not a workspace rule
}

// ParseAppRule parses the value half of an app_rules line (the key is the
// app name and is supplied separately by the caller).
func ParseAppRule(raw string) (AppRule, error) {
	value := strings.TrimSpace(raw)
	switch {
	case value == "left":
		return AppRule{Position: AppRulePositionLeft}, nil
	case value == "right":
		return AppRule{Position: AppRulePositionRight}, nil
	case strings.HasPrefix(value, "workspace"):
		fields := strings.Fields(value)
		if len(fields) != 2 {
			return AppRule{}, fmt.Errorf("expected \"workspace N\", got %q", raw)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return AppRule{}, fmt.Errorf("expected an integer workspace number, got %q", fields[1])
		}
		ws := wmstate.WorkspaceNumber(n)
		if !wmstate.ValidWorkspaceNumber(ws) {
			return AppRule{}, fmt.Errorf("workspace %d out of range [1,9]", n)
		}
		return AppRule{Workspace: ws}, nil
	default:
		return AppRule{}, fmt.Errorf("expected \"left\", \"right\" or \"workspace N\", got %q", raw)
	}
}

// ResolvedAppRules parses every app_rules entry, skipping (and returning)
// any malformed lines rather than failing the whole load (spec §7
// config-parse: "malformed line is logged and skipped").
func (c *Config) ResolvedAppRules() (map[string]AppRule, []error) {
	out := make(map[string]AppRule, len(c.AppRules))
	var errs []error
	for app, raw := range c.AppRules {
		rule, err := ParseAppRule(raw)
		if err != nil {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("app_rules.%s", app), Err: err})
			continue
		}
		rule.App = app
		out[app] = rule
	}
	return out, errs
}
