package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// BackendTodoist selects the Todoist REST backend.
	BackendTodoist = "todoist"

	// BackendGoogleTasks selects the Google Tasks backend.
	BackendGoogleTasks = "googletasks"

	// UnsetProject is the placeholder value for "no default project selected".
	UnsetProject = "--- ---"

	// EnvPrefix is the prefix for environment overrides (TODOSEQ_API_TOKEN, ...).
	EnvPrefix = "TODOSEQ"
)

// Settings are the user-facing options read from config.yaml.
type Settings struct {
	Backend  string
	APIToken string

	DefaultProject     string
	SendDefaultProject string

	AppendURL               bool
	AppendTaskMarker        bool
	TaskMarker              string
	AppendCreationTimestamp bool

	ClearTasksAfterRetrieve  bool
	ProjectNameAsParentBlock bool

	Timezone           string
	CommentConcurrency int
	RateLimitPerMin    int

	Log LogSettings
}

// LogSettings configures the zap logger.
type LogSettings struct {
	Level    string
	Encoding string
}

// ProjectRef is a parsed default_project value.
type ProjectRef struct {
	ID   string
	Name string // may be empty when only an ID was configured
}

// LoadSettings reads <dir>/config.yaml (optional) and TODOSEQ_* environment
// variables on top of the defaults.
func LoadSettings(dir string) (Settings, error) {
	v := viper.New()
	v.SetConfigName(SettingsFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	s := Settings{
		Backend:                  strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		APIToken:                 v.GetString("api_token"),
		DefaultProject:           v.GetString("default_project"),
		SendDefaultProject:       v.GetString("send_default_project"),
		AppendURL:                v.GetBool("append_url"),
		AppendTaskMarker:         v.GetBool("append_task_marker"),
		TaskMarker:               strings.TrimSpace(v.GetString("task_marker")),
		AppendCreationTimestamp:  v.GetBool("append_creation_timestamp"),
		ClearTasksAfterRetrieve:  v.GetBool("clear_tasks_after_retrieve"),
		ProjectNameAsParentBlock: v.GetBool("project_name_as_parent_block"),
		Timezone:                 v.GetString("timezone"),
		CommentConcurrency:       v.GetInt("comment_concurrency"),
		RateLimitPerMin:          v.GetInt("rate_limit_per_min"),
		Log: LogSettings{
			Level:    v.GetString("log.level"),
			Encoding: v.GetString("log.encoding"),
		},
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendTodoist)
	v.SetDefault("default_project", UnsetProject)
	v.SetDefault("send_default_project", UnsetProject)
	v.SetDefault("task_marker", "LATER")
	v.SetDefault("timezone", "Local")
	v.SetDefault("comment_concurrency", 1)
	v.SetDefault("rate_limit_per_min", 450)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")
}

// Validate checks values that cannot be fixed up silently.
// A missing default project is not an error here; it only matters for
// commands that query the default project.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendTodoist, BackendGoogleTasks:
	default:
		return fmt.Errorf("invalid backend: %q (want %s or %s)", s.Backend, BackendTodoist, BackendGoogleTasks)
	}
	if s.CommentConcurrency < 1 {
		return fmt.Errorf("invalid comment_concurrency: %d", s.CommentConcurrency)
	}
	if s.RateLimitPerMin < 1 {
		return fmt.Errorf("invalid rate_limit_per_min: %d", s.RateLimitPerMin)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the time zone used to render creation timestamps.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// DefaultProjectRef parses DefaultProject. ok is false when no project is selected.
func (s Settings) DefaultProjectRef() (ref ProjectRef, ok bool) {
	return ParseProjectRef(s.DefaultProject)
}

// ParseProjectRef parses "Name (id)" or a bare id.
// The empty string and UnsetProject yield ok == false.
func ParseProjectRef(s string) (ProjectRef, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == UnsetProject {
		return ProjectRef{}, false
	}

	if strings.HasSuffix(s, ")") {
		if open := strings.LastIndex(s, "("); open >= 0 {
			id := strings.TrimSpace(s[open+1 : len(s)-1])
			name := strings.TrimSpace(s[:open])
			if id != "" {
				return ProjectRef{ID: id, Name: name}, true
			}
		}
	}
	return ProjectRef{ID: s}, true
}

// String formats the ref the way it is written in config.yaml.
func (r ProjectRef) String() string {
	if r.Name == "" {
		return r.ID
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.ID)
}
