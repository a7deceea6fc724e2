package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML form of the configuration. Every field mirrors an
// environment variable; environment values always win over the file.
type File struct {
	ListenAddr      string   `yaml:"listen-addr,omitempty"`
	Region          string   `yaml:"region,omitempty"`
	LogLevel        string   `yaml:"log-level,omitempty"`
	Env             string   `yaml:"env,omitempty"`
	SelectFraming   string   `yaml:"select-framing,omitempty"`
	ShutdownTimeout string   `yaml:"shutdown-timeout,omitempty"`
	RateLimitRPS    float64  `yaml:"rate-limit-rps,omitempty"`
	RateLimitBurst  int      `yaml:"rate-limit-burst,omitempty"`
	CORSOrigins     []string `yaml:"cors-allowed-origins,omitempty"`

	Storage struct {
		Backend   string `yaml:"backend,omitempty"`
		CacheSize int    `yaml:"cache-size,omitempty"`
		LocalPath string `yaml:"local-path,omitempty"`
		GCS       struct {
			Project         string `yaml:"project,omitempty"`
			CredentialsFile string `yaml:"credentials-file,omitempty"`
			EmulatorHost    string `yaml:"emulator-host,omitempty"`
		} `yaml:"gcs,omitempty"`
		S3 struct {
			Endpoint string `yaml:"endpoint,omitempty"`
			Region   string `yaml:"region,omitempty"`
			KeyID    string `yaml:"key-id,omitempty"`
			Secret   string `yaml:"secret,omitempty"`
			URLStyle string `yaml:"url-style,omitempty"`
		} `yaml:"s3,omitempty"`
		Azure struct {
			AccountName string `yaml:"account-name,omitempty"`
			AccountKey  string `yaml:"account-key,omitempty"`
			ServiceURL  string `yaml:"service-url,omitempty"`
		} `yaml:"azure,omitempty"`
	} `yaml:"storage,omitempty"`
}

// LoadFile reads a YAML config file and exports its values as environment
// variables that are not already set, so LoadFromEnv picks them up.
func LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	for key, value := range f.env() {
		if value == "" {
			continue
		}
		if err := setDefaultEnv(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) env() map[string]string {
	m := map[string]string{
		"LISTEN_ADDR":           f.ListenAddr,
		"REGION":                f.Region,
		"LOG_LEVEL":             f.LogLevel,
		"ENV":                   f.Env,
		"SELECT_FRAMING":        f.SelectFraming,
		"SHUTDOWN_TIMEOUT":      f.ShutdownTimeout,
		"STORAGE_BACKEND":       f.Storage.Backend,
		"LOCAL_STORAGE_PATH":    f.Storage.LocalPath,
		"GCS_PROJECT":           f.Storage.GCS.Project,
		"GCS_CREDENTIALS_FILE":  f.Storage.GCS.CredentialsFile,
		"STORAGE_EMULATOR_HOST": f.Storage.GCS.EmulatorHost,
		"S3_ENDPOINT":           f.Storage.S3.Endpoint,
		"S3_REGION":             f.Storage.S3.Region,
		"S3_KEY_ID":             f.Storage.S3.KeyID,
		"S3_SECRET":             f.Storage.S3.Secret,
		"S3_URL_STYLE":          f.Storage.S3.URLStyle,
		"AZURE_ACCOUNT_NAME":    f.Storage.Azure.AccountName,
		"AZURE_ACCOUNT_KEY":     f.Storage.Azure.AccountKey,
		"AZURE_SERVICE_URL":     f.Storage.Azure.ServiceURL,
	}
	if f.Storage.CacheSize != 0 {
		m["STORAGE_CACHE_SIZE"] = strconv.Itoa(f.Storage.CacheSize)
	}
	if f.RateLimitRPS != 0 {
		m["RATE_LIMIT_RPS"] = strconv.FormatFloat(f.RateLimitRPS, 'f', -1, 64)
	}
	if f.RateLimitBurst != 0 {
		m["RATE_LIMIT_BURST"] = strconv.Itoa(f.RateLimitBurst)
	}
	if len(f.CORSOrigins) > 0 {
		origins := ""
		for i, o := range f.CORSOrigins {
			if i > 0 {
				origins += ","
			}
			origins += o
		}
		m["CORS_ALLOWED_ORIGINS"] = origins
	}
	return m
}
