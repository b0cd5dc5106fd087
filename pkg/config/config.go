// Package config loads the packtgrab credentials file.
//
// The file is read once at startup; an unreadable or malformed file is the
// only configuration failure that stops the process. Individual keys are
// checked lazily by the accessor of the feature that needs them, so a
// missing key only disables that feature.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/pkg/credman/keyring"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the credentials file used when --config is not given.
const DefaultPath = "credential.json"

// Configuration keys, as spelled in the credentials file.
const (
	KeyName        = "name"
	KeyPass        = "pass"
	KeyAntiCaptcha = "anti-captcha"
	KeyIFTTT       = "ifttt"
	KeyMailgun     = "mailgun"
	KeyDropbox     = "dropbox"
	KeyFTP         = "ftp"
	KeySFTP        = "sftp"
)

// ErrMissingKey matches every *MissingKeyError.
var ErrMissingKey = errors.New("key not found in configuration file")

// MissingKeyError reports the configuration key a feature needed but did not find.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s not found in configuration file", e.Key)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

func missing(key string) error {
	return &MissingKeyError{Key: key}
}

type Mailgun struct {
	Domain string `json:"domain" yaml:"domain"`
	API    string `json:"api" yaml:"api"`
	To     string `json:"to" yaml:"to"`
}

type FTP struct {
	Server string `json:"server" yaml:"server"`
	User   string `json:"user" yaml:"user"`
	Pass   string `json:"pass" yaml:"pass"`
}

// SFTP holds the SFTP upload target. Either Pass or Key (a private key
// path) authenticates the user.
type SFTP struct {
	Server string `json:"server" yaml:"server"`
	User   string `json:"user" yaml:"user"`
	Pass   string `json:"pass" yaml:"pass"`
	Key    string `json:"key" yaml:"key"`
}

// SecretSource resolves secrets that are absent from the file and the
// environment. *keyring.Keyring satisfies it.
type SecretSource interface {
	Get(key string) (string, error)
}

// Config is the parsed credentials file. It is read-only after Load.
type Config struct {
	Name        string   `json:"name" yaml:"name"`
	Pass        string   `json:"pass" yaml:"pass"`
	AntiCaptcha string   `json:"anti-captcha" yaml:"anti-captcha"`
	IFTTT       string   `json:"ifttt" yaml:"ifttt"`
	Mailgun     *Mailgun `json:"mailgun" yaml:"mailgun"`
	Dropbox     string   `json:"dropbox" yaml:"dropbox"`
	FTP         *FTP     `json:"ftp" yaml:"ftp"`
	SFTP        *SFTP    `json:"sftp" yaml:"sftp"`

	path    string
	secrets SecretSource
}

type options struct {
	secrets SecretSource
	lookup  func(string) (string, bool)
	dotenv  string
}

type Option func(*options)

// WithSecrets sets the fallback secret store. Pass nil to disable it.
func WithSecrets(s SecretSource) Option {
	return func(o *options) { o.secrets = s }
}

// WithEnv replaces os.LookupEnv for environment overrides.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(o *options) { o.lookup = lookup }
}

// WithDotEnv names the dotenv file loaded before overrides are applied.
// An empty name disables dotenv loading.
func WithDotEnv(path string) Option {
	return func(o *options) { o.dotenv = path }
}

// Load reads, validates and decodes the credentials file at path, then
// applies environment overrides. Files ending in .yaml or .yml are decoded
// as YAML, everything else as JSON.
func Load(path string, opts ...Option) (*Config, error) {
	o := &options{
		secrets: keyring.NewKeyring(),
		lookup:  os.LookupEnv,
		dotenv:  ".env",
	}
	for _, opt := range opts {
		opt(o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	cfg.secrets = o.secrets

	if o.dotenv != "" {
		if err := loadDotEnv(o.dotenv); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(o.lookup)
	return cfg, nil
}

// Parse validates and decodes a credentials document held in memory.
func Parse(data []byte, asYAML bool) (*Config, error) {
	var doc interface{}
	if asYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	cfg := &Config{}
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) secret(key, current string) string {
	if current != "" || c.secrets == nil {
		return current
	}
	v, err := c.secrets.Get(key)
	if err != nil {
		return ""
	}
	return v
}

// Login returns the site user name and password.
func (c *Config) Login() (name, pass string, err error) {
	if c.Name == "" {
		return "", "", missing(KeyName)
	}
	pass = c.secret(KeyPass, c.Pass)
	if pass == "" {
		return "", "", missing(KeyPass)
	}
	return c.Name, pass, nil
}

// AntiCaptchaKey returns the captcha-solving service client key.
func (c *Config) AntiCaptchaKey() (string, error) {
	key := c.secret(KeyAntiCaptcha, c.AntiCaptcha)
	if key == "" {
		return "", missing(KeyAntiCaptcha)
	}
	return key, nil
}

// IFTTTWebhook returns the IFTTT maker webhook URL.
func (c *Config) IFTTTWebhook() (string, error) {
	if c.IFTTT == "" {
		return "", missing(KeyIFTTT)
	}
	return c.IFTTT, nil
}

// MailgunRelay returns the Mailgun settings. All three fields are required.
func (c *Config) MailgunRelay() (Mailgun, error) {
	if c.Mailgun == nil {
		return Mailgun{}, missing(KeyMailgun)
	}
	switch {
	case c.Mailgun.Domain == "":
		return Mailgun{}, missing(KeyMailgun + ".domain")
	case c.Mailgun.API == "":
		return Mailgun{}, missing(KeyMailgun + ".api")
	case c.Mailgun.To == "":
		return Mailgun{}, missing(KeyMailgun + ".to")
	}
	return *c.Mailgun, nil
}

// DropboxToken returns the Dropbox access token.
func (c *Config) DropboxToken() (string, error) {
	tok := c.secret(KeyDropbox, c.Dropbox)
	if tok == "" {
		return "", missing(KeyDropbox)
	}
	return tok, nil
}

// FTPTarget returns the FTP upload settings.
func (c *Config) FTPTarget() (FTP, error) {
	if c.FTP == nil {
		return FTP{}, missing(KeyFTP)
	}
	switch {
	case c.FTP.Server == "":
		return FTP{}, missing(KeyFTP + ".server")
	case c.FTP.User == "":
		return FTP{}, missing(KeyFTP + ".user")
	}
	return *c.FTP, nil
}

// SFTPTarget returns the SFTP upload settings.
func (c *Config) SFTPTarget() (SFTP, error) {
	if c.SFTP == nil {
		return SFTP{}, missing(KeySFTP)
	}
	switch {
	case c.SFTP.Server == "":
		return SFTP{}, missing(KeySFTP + ".server")
	case c.SFTP.User == "":
		return SFTP{}, missing(KeySFTP + ".user")
	case c.SFTP.Pass == "" && c.SFTP.Key == "":
		return SFTP{}, missing(KeySFTP + ".pass")
	}
	return *c.SFTP, nil
}

// ConfigPath resolves the credentials file: the flag value if set, then
// PACKTGRAB_CONFIG, then DefaultPath.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(common.ConfigPathEnv); v != "" {
		return v
	}
	return DefaultPath
}
