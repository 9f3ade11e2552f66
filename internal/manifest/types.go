package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoRule reports that no dynamic module rule routes a key.
var ErrNoRule = errors.New("no dynamic module rule matches key")

// Module describes one module declared by the deployment manifest. A module
// either carries a verbatim URL or a package/version/file triple that must
// be combined with a resolved provider base.
type Module struct {
	Name               string   `json:"name" yaml:"name"`
	Package            string   `json:"package,omitempty" yaml:"package,omitempty"`
	Version            string   `json:"version,omitempty" yaml:"version,omitempty"`
	File               string   `json:"file,omitempty" yaml:"file,omitempty"`
	Provider           string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	ProductionProvider string   `json:"production_provider,omitempty" yaml:"production_provider,omitempty"`
	CIProvider         string   `json:"ci_provider,omitempty" yaml:"ci_provider,omitempty"`
	ImportSpecifiers   []string `json:"import_specifiers,omitempty" yaml:"import_specifiers,omitempty"`
	URL                string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// Specifiers returns the import specifiers this module is published under.
// Defaults to the module's own name.
func (m Module) Specifiers() []string {
	if len(m.ImportSpecifiers) > 0 {
		return m.ImportSpecifiers
	}
	return []string{m.Name}
}

// Format tags how a dynamically loaded bundle exposes its value.
type Format string

const (
	// FormatGlobal bundles mutate a global namespace; the value is read
	// from the global named by the rule's GlobalPattern after the script
	// executes.
	FormatGlobal Format = "global"
	// FormatModule bundles are evaluated as CommonJS-style modules and
	// expose their value through exports.
	FormatModule Format = "module"
)

// DynamicRule is a prefix-routed recipe deriving a module's URL and global
// variable name from a short key such as "icon:star".
type DynamicRule struct {
	Prefix             string `json:"prefix" yaml:"prefix"`
	Provider           string `json:"provider,omitempty" yaml:"provider,omitempty"`
	ProductionProvider string `json:"production_provider,omitempty" yaml:"production_provider,omitempty"`
	CIProvider         string `json:"ci_provider,omitempty" yaml:"ci_provider,omitempty"`
	Package            string `json:"package" yaml:"package"`
	Version            string `json:"version" yaml:"version"`
	FilePattern        string `json:"file_pattern" yaml:"file_pattern"`
	GlobalPattern      string `json:"global_pattern,omitempty" yaml:"global_pattern,omitempty"`
	Format             Format `json:"format" yaml:"format"`
}

// Matches reports whether the rule routes the given dynamic key.
func (r DynamicRule) Matches(key string) bool {
	return r.Prefix != "" && strings.HasPrefix(key, r.Prefix)
}

// Suffix returns the part of the key after the rule prefix.
func (r DynamicRule) Suffix(key string) string {
	return strings.TrimPrefix(key, r.Prefix)
}

var patternToken = regexp.MustCompile(`\{[^{}]*\}`)

// ExpandPattern substitutes every {token} placeholder in a rule pattern
// with the given value. "ICON_{icon}" with value "star" yields "ICON_star".
func ExpandPattern(pattern, value string) string {
	return patternToken.ReplaceAllString(pattern, value)
}

// Providers carries the manifest's provider configuration.
type Providers struct {
	Default string            `json:"default,omitempty" yaml:"default,omitempty"`
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Manifest is the single deployment-time document driving providers,
// modules, and entry points. It is populated once per session from the
// fetched document and treated as immutable thereafter.
type Manifest struct {
	Entry             string        `json:"entry" yaml:"entry"`
	Styles            string        `json:"styles,omitempty" yaml:"styles,omitempty"`
	Tools             []Module      `json:"tools,omitempty" yaml:"tools,omitempty"`
	Modules           []Module      `json:"modules,omitempty" yaml:"modules,omitempty"`
	DynamicModules    []DynamicRule `json:"dynamic_modules,omitempty" yaml:"dynamic_modules,omitempty"`
	FallbackProviders []string      `json:"fallback_providers,omitempty" yaml:"fallback_providers,omitempty"`
	Providers         Providers     `json:"providers,omitempty" yaml:"providers,omitempty"`
	CI                *bool         `json:"ci,omitempty" yaml:"ci,omitempty"`
}

// Rule finds the dynamic rule routing the given key. Exactly one rule must
// match; no match or an ambiguous match is an error.
func (m *Manifest) Rule(key string) (DynamicRule, error) {
	var found []DynamicRule
	for _, r := range m.DynamicModules {
		if r.Matches(key) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return DynamicRule{}, fmt.Errorf("%w: %q", ErrNoRule, key)
	case 1:
		return found[0], nil
	default:
		return DynamicRule{}, fmt.Errorf("%d dynamic module rules match %q", len(found), key)
	}
}
