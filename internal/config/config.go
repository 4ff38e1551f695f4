package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Cookie is a single authentication cookie forwarded to the community site
// for roster and calendar downloads.
type Cookie struct {
	Name   string `yaml:"name" json:"name"`
	Value  string `yaml:"value" json:"value"`
	Path   string `yaml:"path" json:"path"`
	Domain string `yaml:"domain" json:"domain"`
}

// AuthConfig holds the credentials used against the community site.
type AuthConfig struct {
	// Cookies are attached to every scrape and feed request.
	Cookies []Cookie `yaml:"cookies" json:"cookies"`

	// MemberID and MemberKey authenticate the calendar ICS download URL.
	MemberID  int    `yaml:"member_id" json:"member_id"`
	MemberKey string `yaml:"member_key" json:"member_key"`
}

// RoleMap binds community ranks, positions and rosters to Discord roles for
// one guild. Roster keys are "Team,Roster" pairs.
type RoleMap struct {
	GuildID string `yaml:"guild_id" json:"guild_id"`

	DefaultRole string `yaml:"default_role" json:"default_role"`

	RosterRoles map[string]string `yaml:"roster_roles" json:"roster_roles"`
	Ranks       map[string]string `yaml:"ranks" json:"ranks"`
	Positions   map[string]string `yaml:"positions" json:"positions"`
}

// Config is the top-level application configuration.
type Config struct {
	// DiscordToken is the bot token used by the discordgo session.
	DiscordToken string `yaml:"discord_token" json:"discord_token"`

	// Prefix is the command prefix; kept in config so the (external)
	// command layer and the bot share one source of truth.
	Prefix string `yaml:"prefix" json:"prefix"`

	// BaseURL is the community site root, e.g. "https://di.community/".
	BaseURL string `yaml:"base_url" json:"base_url"`

	// DataDir is where roster and calendar snapshots live.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Calendars is the list of calendar feed names to poll.
	Calendars []string `yaml:"calendars" json:"calendars"`

	// RosterCron schedules the periodic roster refresh.
	RosterCron string `yaml:"roster_refresh" json:"roster_refresh"`

	// CalendarCron schedules the steady-state calendar poll. The very
	// first poll after startup happens after CalendarFastStartSeconds.
	CalendarCron             string `yaml:"calendar_poll" json:"calendar_poll"`
	CalendarFastStartSeconds int    `yaml:"calendar_fast_start_seconds" json:"calendar_fast_start_seconds"`

	// DrainSeconds is the dispatcher drain cadence.
	DrainSeconds int `yaml:"drain_seconds" json:"drain_seconds"`

	Auth AuthConfig `yaml:"auth" json:"auth"`

	RoleMaps []RoleMap `yaml:"role_maps" json:"role_maps"`

	Env      string `yaml:"env" json:"env"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Prefix:                   "!",
		BaseURL:                  "https://di.community/",
		DataDir:                  "./var/dibot",
		Calendars:                []string{},
		RosterCron:               "30 4 * * *",
		CalendarCron:             "@every 5m",
		CalendarFastStartSeconds: 10,
		DrainSeconds:             10,
		RoleMaps:                 []RoleMap{},
		Env:                      "development",
		LogLevel:                 "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Prefix == "" {
		c.Prefix = "!"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://di.community/"
	}
	if c.DataDir == "" {
		c.DataDir = "./var/dibot"
	}
	if c.RosterCron == "" {
		c.RosterCron = "30 4 * * *"
	}
	if c.CalendarCron == "" {
		c.CalendarCron = "@every 5m"
	}
	if c.CalendarFastStartSeconds <= 0 {
		c.CalendarFastStartSeconds = 10
	}
	if c.DrainSeconds <= 0 {
		c.DrainSeconds = 10
	}
	if c.Calendars == nil {
		c.Calendars = []string{}
	}
	if c.RoleMaps == nil {
		c.RoleMaps = []RoleMap{}
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// RoleMapForGuild returns the role map configured for the given guild, or
// nil if the guild has none.
func (c *Config) RoleMapForGuild(guildID string) *RoleMap {
	for i := range c.RoleMaps {
		if c.RoleMaps[i].GuildID == guildID {
			return &c.RoleMaps[i]
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dibot-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
