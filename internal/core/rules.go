package core

import (
	"strings"

	"github.com/hatchwm/tilewm/internal/config"
)

// rules is the compiled form of config.RulesConfig plus the parsed
// app_rules map, held by the Core for the lifetime of one loaded config
// (spec §4.3 classification reads from these on every window creation).
type rules struct {
	float      []string
	exclude    []string
	sticky     []string
	swallow    []string
	swallowAll bool
	appRules   map[string]config.AppRule
}

func newRules(cfg *config.Config) (*rules, []error) {
	appRules, errs := cfg.ResolvedAppRules()
	return &rules{
		float:      cfg.Rules.Float,
		exclude:    cfg.Rules.Exclude,
		sticky:     cfg.Rules.Sticky,
		swallow:    cfg.Rules.Swallow,
		swallowAll: cfg.Rules.SwallowAll,
		appRules:   appRules,
	}, errs
}

// matchesApp reports whether appName or bundleID case-insensitively equals
// any entry in patterns.
func matchesApp(patterns []string, appName, bundleID string) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, appName) || (bundleID != "" && strings.EqualFold(p, bundleID)) {
			return true
		}
	}
	return false
}

func (r *rules) isExcluded(appName, bundleID string) bool {
	return matchesApp(r.exclude, appName, bundleID)
}

func (r *rules) isFloatRule(appName, bundleID string) bool {
	return matchesApp(r.float, appName, bundleID)
}

func (r *rules) isSticky(appName, bundleID string) bool {
	return matchesApp(r.sticky, appName, bundleID)
}

func (r *rules) isSwallower(appName, bundleID string) bool {
	return r.swallowAll || matchesApp(r.swallow, appName, bundleID)
}

func (r *rules) appRule(appName string) (config.AppRule, bool) {
	rule, ok := r.appRules[appName]
	return rule, ok
}
