// Package site loads and validates the blog's config.toml, the file the
// external site generator consumes for base URL, theme, menus, colors, and
// taxonomy wiring.
package site

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
)

// DefaultFilename is where the generator expects the site configuration.
const DefaultFilename = "config.toml"

// Config mirrors the config.toml schema the external generator reads.
type Config struct {
	BaseURL             string            `toml:"baseURL"`
	LanguageCode        string            `toml:"languageCode"`
	Title               string            `toml:"title"`
	Theme               string            `toml:"theme"`
	Paginate            int               `toml:"paginate"`
	PluralizeListTitles bool              `toml:"pluralizelisttitles"`
	Params              Params            `toml:"params"`
	Taxonomies          map[string]string `toml:"taxonomies"`
}

// Load reads and decodes a config.toml.
//
// A .env / .env.local alongside the process is loaded first (never
// overriding the real environment) and ${VAR} references in the TOML are
// expanded, so secrets like an analytics token stay out of the committed
// file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, kerrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, kerrors.WrapError(err, kerrors.CategoryConfig, "failed to read config file")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	md, err := toml.Decode(expanded, &cfg)
	if err != nil {
		return nil, kerrors.WrapError(err, kerrors.CategoryConfig, describeTOMLError(err))
	}

	cfg.applyDefaults(md)
	return &cfg, nil
}

// describeTOMLError keeps the decoder's line/column context when it has one.
func describeTOMLError(err error) string {
	var perr toml.ParseError
	if errors.As(err, &perr) {
		return fmt.Sprintf("invalid TOML at line %d: %s", perr.Position.Line, perr.Message)
	}
	return "invalid TOML"
}

// applyDefaults fills generator-compatible defaults for absent keys.
// MetaData distinguishes "absent" from a zero value, which matters for
// pluralizelisttitles: the generator's default is true, so only an explicit
// false should stick.
func (c *Config) applyDefaults(md toml.MetaData) {
	if c.LanguageCode == "" {
		c.LanguageCode = "en-us"
	}
	if !md.IsDefined("paginate") {
		c.Paginate = 10
	}
	if !md.IsDefined("pluralizelisttitles") {
		c.PluralizeListTitles = true
	}
	if len(c.Taxonomies) == 0 {
		c.Taxonomies = DefaultTaxonomies()
	}
}

// DefaultTaxonomies returns the taxonomy set the generator assumes when the
// config does not declare one.
func DefaultTaxonomies() map[string]string {
	return map[string]string{
		"tag":    "tags",
		"series": "series",
	}
}

// loadEnvFiles loads .env then .env.local when present. Existing
// environment variables always win.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// starterConfig is the config.toml Init writes for a fresh blog.
const starterConfig = `baseURL = "https://example.com/"
languageCode = "en-us"
title = "My Blog"
theme = "hugo-theme-codex"
paginate = 10
pluralizelisttitles = false

[params]
  description = "Notes on building things."
  mainSections = ["posts"]
  accent = "#3D5A80"
  backgroundColor = "#FFFFFF"

  [[params.menu]]
    Name = "Home"
    URL = "/"
    HasChildren = false

  [[params.menu]]
    Name = "Posts"
    URL = "/posts/"
    HasChildren = false

  [[params.social]]
    name = "github"
    url = "https://github.com/example"

[taxonomies]
  tag = "tags"
  series = "series"
`

// Init writes a starter config.toml.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return kerrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath))
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return kerrors.WrapError(err, kerrors.CategoryConfig, "failed to write config file")
	}
	return nil
}
