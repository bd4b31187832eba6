package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported driver types. "mssql" is the native TDS driver, "odbc"
// goes through an installed ODBC driver manager.
const (
	DriverMSSQL = "mssql"
	DriverODBC  = "odbc"
)

// Config is the tap configuration. Files are YAML; plain JSON configs
// (the common convention for tap config files) parse as well since
// YAML is a superset.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port,omitempty"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	DriverType string `yaml:"driver_type,omitempty"` // mssql (default) or odbc

	// ODBC driver name, e.g. "ODBC Driver 18 for SQL Server".
	// Only used when driver_type is odbc.
	ODBCDriver string `yaml:"odbc_driver,omitempty"`

	// Extra connection string options, passed through to the driver.
	// Typical keys: TrustServerCertificate, MultiSubnetFailover, encrypt.
	ConnectionOptions map[string]string `yaml:"connection_options,omitempty"`

	// Discovery filter. Empty lists mean "everything".
	Filter FilterConfig `yaml:"filter,omitempty"`

	// Earliest replication-key value to sync when no bookmark exists.
	StartDate string `yaml:"start_date,omitempty"`

	// Emit higher-definition JSON Schema types (numeric bounds,
	// multipleOf for decimals, maxLength for strings).
	HDJSONSchemaTypes bool `yaml:"hd_jsonschema_types,omitempty"`

	// Records between STATE checkpoints during incremental sync.
	StateInterval int `yaml:"state_interval,omitempty"`

	Batch         *BatchConfig     `yaml:"batch_config,omitempty"`
	MessageBroker *BrokerConfig    `yaml:"message_broker,omitempty"`
	ResultLog     *ResultLogConfig `yaml:"result_log,omitempty"`
}

// FilterConfig restricts discovery to the named schemas and tables.
type FilterConfig struct {
	Schemas []string `yaml:"schemas,omitempty"`
	Tables  []string `yaml:"tables,omitempty"`
}

// BatchConfig switches record output from RECORD messages to batch
// files referenced by BATCH messages.
type BatchConfig struct {
	Encoding BatchEncodingConfig `yaml:"encoding,omitempty"`
	Storage  BatchStorageConfig  `yaml:"storage"`

	// Records per batch file. Defaults to 10000.
	BatchSize int `yaml:"batch_size,omitempty"`
}

// BatchEncodingConfig describes the batch file serialization.
// jsonl/gzip is the only supported combination.
type BatchEncodingConfig struct {
	Format      string `yaml:"format,omitempty"`
	Compression string `yaml:"compression,omitempty"`
}

// BatchStorageConfig says where batch files land.
type BatchStorageConfig struct {
	// Root URL: file:///var/batches or s3://bucket/prefix
	Root string `yaml:"root"`
	// Optional filename prefix, e.g. "orders-".
	Prefix string `yaml:"prefix,omitempty"`
}

// BrokerConfig routes the message stream to a broker instead of stdout.
type BrokerConfig struct {
	Type     string   `yaml:"type"` // kafka or rabbitmq
	Brokers  []string `yaml:"brokers,omitempty"`
	Topic    string   `yaml:"topic,omitempty"`
	Host     string   `yaml:"host,omitempty"`
	Port     int      `yaml:"port,omitempty"`
	User     string   `yaml:"user,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Queue    string   `yaml:"queue,omitempty"`
	VHost    string   `yaml:"vhost,omitempty"`
	UseTLS   bool     `yaml:"use_tls,omitempty"`
	Durable  bool     `yaml:"durable,omitempty"`
}

// ResultLogConfig publishes a run summary to Redis after each sync.
type ResultLogConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Name     string `yaml:"name"`
	TTL      int    `yaml:"ttl,omitempty"` // seconds, default 86400
}

// Load reads and validates a config file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DriverType == "" {
		c.DriverType = DriverMSSQL
	}
	if c.StateInterval <= 0 {
		c.StateInterval = 1000
	}
	if c.Batch != nil {
		if c.Batch.BatchSize <= 0 {
			c.Batch.BatchSize = 10000
		}
		if c.Batch.Encoding.Format == "" {
			c.Batch.Encoding.Format = "jsonl"
		}
		if c.Batch.Encoding.Compression == "" {
			c.Batch.Encoding.Compression = "gzip"
		}
	}
	if c.ResultLog != nil && c.ResultLog.TTL <= 0 {
		c.ResultLog.TTL = 86400
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.Host == "" {
		problems = append(problems, "host is required")
	}
	if c.User == "" {
		problems = append(problems, "user is required")
	}
	if c.Password == "" {
		problems = append(problems, "password is required")
	}
	if c.Database == "" {
		problems = append(problems, "database is required")
	}

	switch c.DriverType {
	case DriverMSSQL:
	case DriverODBC:
		if c.ODBCDriver == "" {
			problems = append(problems, "odbc_driver is required when driver_type is odbc")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported driver_type: %s (supported: mssql, odbc)", c.DriverType))
	}

	if c.StartDate != "" {
		if _, err := time.Parse(time.RFC3339, c.StartDate); err != nil {
			problems = append(problems, fmt.Sprintf("start_date must be RFC3339: %v", err))
		}
	}

	if c.Batch != nil {
		if c.Batch.Storage.Root == "" {
			problems = append(problems, "batch_config.storage.root is required")
		} else if !strings.HasPrefix(c.Batch.Storage.Root, "file://") && !strings.HasPrefix(c.Batch.Storage.Root, "s3://") {
			problems = append(problems, "batch_config.storage.root must be a file:// or s3:// URL")
		}
		if c.Batch.Encoding.Format != "jsonl" {
			problems = append(problems, fmt.Sprintf("unsupported batch format: %s (supported: jsonl)", c.Batch.Encoding.Format))
		}
		if c.Batch.Encoding.Compression != "gzip" {
			problems = append(problems, fmt.Sprintf("unsupported batch compression: %s (supported: gzip)", c.Batch.Encoding.Compression))
		}
	}

	if c.MessageBroker != nil {
		switch c.MessageBroker.Type {
		case "kafka":
			if len(c.MessageBroker.Brokers) == 0 {
				problems = append(problems, "message_broker.brokers is required for kafka")
			}
			if c.MessageBroker.Topic == "" {
				problems = append(problems, "message_broker.topic is required for kafka")
			}
		case "rabbitmq":
			if c.MessageBroker.Host == "" {
				problems = append(problems, "message_broker.host is required for rabbitmq")
			}
			if c.MessageBroker.Queue == "" {
				problems = append(problems, "message_broker.queue is required for rabbitmq")
			}
		default:
			problems = append(problems, fmt.Sprintf("unsupported message_broker.type: %s (supported: kafka, rabbitmq)", c.MessageBroker.Type))
		}
	}

	if c.ResultLog != nil {
		if c.ResultLog.Address == "" {
			problems = append(problems, "result_log.address is required")
		}
		if c.ResultLog.Name == "" {
			problems = append(problems, "result_log.name is required")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// StartDateTime returns the parsed start_date, or the zero time when
// the key is absent. Validate has already checked the format.
func (c *Config) StartDateTime() time.Time {
	if c.StartDate == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.StartDate)
	return t
}

// BuildDSN constructs the driver connection string.
func (c *Config) BuildDSN() string {
	switch c.DriverType {
	case DriverODBC:
		return c.buildODBCDSN()
	default:
		return c.buildSQLServerDSN()
	}
}

// buildSQLServerDSN builds a sqlserver:// URL for go-mssqldb.
func (c *Config) buildSQLServerDSN() string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host,
	}
	if c.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}

	q := url.Values{}
	q.Set("database", c.Database)
	for k, v := range c.ConnectionOptions {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// buildODBCDSN builds a key=value connection string for the ODBC
// driver manager. Option order is stable so the DSN is reproducible.
func (c *Config) buildODBCDSN() string {
	server := c.Host
	if c.Port > 0 {
		server = fmt.Sprintf("%s,%d", c.Host, c.Port)
	}

	parts := []string{
		fmt.Sprintf("Driver={%s}", c.ODBCDriver),
		fmt.Sprintf("Server=%s", server),
		fmt.Sprintf("Database=%s", c.Database),
		fmt.Sprintf("UID=%s", c.User),
		fmt.Sprintf("PWD=%s", c.Password),
	}

	keys := make([]string, 0, len(c.ConnectionOptions))
	for k := range c.ConnectionOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, c.ConnectionOptions[k]))
	}

	return strings.Join(parts, ";")
}
