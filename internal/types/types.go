// Package types defines the core data structures used throughout iconfont-updater.
// This includes the user configuration, the session and project data model,
// and the error taxonomy shared by every stage of a run.
package types

import "time"

// Defaults applied when the config file omits a key.
const (
	DefaultOutput = "."
	DefaultGlob   = "**/*"
)

// UserConfig represents the effective configuration for one run.
type UserConfig struct {
	Output   string       `json:"output" yaml:"output"`
	Includes []string     `json:"includes" yaml:"includes"`
	Flatten  bool         `json:"flatten" yaml:"flatten"`
	Mirror   MirrorConfig `json:"mirror" yaml:"mirror"`
}

// DefaultUserConfig returns the configuration used when no config file is present.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Output:   DefaultOutput,
		Includes: []string{DefaultGlob},
	}
}

// MirrorConfig holds optional S3-compatible storage settings for archiving
// every fetched bundle. An empty Bucket disables the mirror.
type MirrorConfig struct {
	Bucket         string     `json:"bucket" yaml:"bucket"`
	Prefix         string     `json:"prefix" yaml:"prefix"`
	Region         string     `json:"region" yaml:"region"`
	Endpoint       string     `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle bool       `json:"forcePathStyle" yaml:"force_path_style"`
	Auth           AuthConfig `json:"auth" yaml:"auth"`
}

// Enabled reports whether bundles should be mirrored.
func (m MirrorConfig) Enabled() bool {
	return m.Bucket != ""
}

// AuthConfig holds mirror credentials.
type AuthConfig struct {
	Profile         string `json:"profile" yaml:"profile"`
	AccessKeyID     string `json:"accessKeyId" yaml:"access_key_id"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secret_access_key"`
	SessionToken    string `json:"sessionToken" yaml:"session_token"`
}

// Session is the authenticated state proving the caller is logged in.
// A nil *Session means no session; a non-nil one always carries a cookie.
type Session struct {
	Cookie    string
	CSRFToken string
}

// Credentials are the identity and secret typed into the login form.
type Credentials struct {
	Identity string
	Secret   string
}

// Empty reports whether either field is missing.
func (c Credentials) Empty() bool {
	return c.Identity == "" || c.Secret == ""
}

// ProjectReference is one entry of the remote project catalog.
type ProjectReference struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

// ProjectDetail is the display metadata of a single project.
type ProjectDetail struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

// Choice is one option of a single-choice prompt.
type Choice struct {
	Label string
	Value string
}
