package db

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/payetl/pkg/payetl"
)

// Credentials mirrors the DB_CREDENTIALS secret document.
type Credentials struct {
	Host     string `json:"host"`
	Port     Port   `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode,omitempty"`
}

// Port accepts both 5432 and "5432"; secrets managers emit either.
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid port %s", data)
	}
	*p = Port(n)
	return nil
}

// ParseCredentials parses the DB_CREDENTIALS JSON document into a
// ConnectionConfig. A missing port defaults to 5432 and a missing sslmode to
// prefer.
func ParseCredentials(raw string) (*payetl.ConnectionConfig, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse DB_CREDENTIALS: %v: %w", err, payetl.ErrInvalidConfig)
	}

	config := &payetl.ConnectionConfig{
		Host:             creds.Host,
		Port:             int(creds.Port),
		Database:         creds.Database,
		Username:         creds.User,
		Password:         creds.Password,
		SSLMode:          creds.SSLMode,
		AuthMethod:       payetl.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "prefer"
	}
	return config, nil
}

// ParseConnectionString parses either a PostgreSQL URI
// (postgresql://[user[:password]@][host][:port][/dbname][?param=value&...])
// or a key/value string. Key/value pairs are separated by whitespace, as in
// libpq ("host=db dbname=wh"), or by semicolons ("Host=db;Database=wh").
func ParseConnectionString(connStr string) (*payetl.ConnectionConfig, error) {
	if connStr == "" {
		return nil, fmt.Errorf("connection string is empty")
	}
	if strings.HasPrefix(connStr, "postgresql://") || strings.HasPrefix(connStr, "postgres://") {
		return parseURI(connStr)
	}
	if strings.Contains(connStr, "=") {
		return parseKeyValue(connStr)
	}
	return nil, fmt.Errorf("unrecognized connection string format (expected postgresql:// URI or key=value pairs)")
}

func parseURI(connStr string) (*payetl.ConnectionConfig, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URI: %w", err)
	}

	config := &payetl.ConnectionConfig{
		Host:             "localhost",
		Port:             5432,
		Database:         "postgres",
		SSLMode:          "prefer",
		AuthMethod:       payetl.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	if u.Hostname() != "" {
		config.Host = u.Hostname()
	}
	if u.Port() != "" {
		port, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		config.Port = port
	}

	if u.User != nil {
		config.Username = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			config.Password = pass
		}
	}

	if len(u.Path) > 1 {
		config.Database = strings.TrimPrefix(u.Path, "/")
	}

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		value := values[0]

		switch strings.ToLower(key) {
		case "sslmode":
			config.SSLMode = value
		case "application_name":
			config.AppName = value
		case "connect_timeout":
			if timeout, err := strconv.Atoi(value); err == nil {
				config.ConnectTimeout = time.Duration(timeout) * time.Second
			}
		default:
			config.AdditionalParams[key] = value
		}
	}

	return config, nil
}

func parseKeyValue(connStr string) (*payetl.ConnectionConfig, error) {
	config := &payetl.ConnectionConfig{
		Host:             "localhost",
		Port:             5432,
		Database:         "postgres",
		SSLMode:          "prefer",
		AuthMethod:       payetl.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	pairs, err := splitPairs(connStr)
	if err != nil {
		return nil, err
	}
	for _, kv := range pairs {
		key, value := kv[0], kv[1]
		switch strings.ToLower(key) {
		case "host", "server":
			config.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid port %q: %w", value, err)
			}
			config.Port = port
		case "dbname", "database":
			config.Database = value
		case "user", "username", "user id", "uid":
			config.Username = value
		case "password", "pwd":
			config.Password = value
		case "sslmode", "ssl mode":
			config.SSLMode = value
		case "application_name", "application name":
			config.AppName = value
		case "connect_timeout", "connect timeout", "timeout":
			if timeout, err := strconv.Atoi(value); err == nil {
				config.ConnectTimeout = time.Duration(timeout) * time.Second
			}
		default:
			config.AdditionalParams[key] = value
		}
	}
	return config, nil
}

// splitPairs tokenizes key=value pairs. Semicolon-separated strings may have
// spaces in keys ("User Id=x"); whitespace-separated strings allow
// single-quoted values with backslash escapes, as libpq does.
func splitPairs(connStr string) ([][2]string, error) {
	var pairs [][2]string
	if strings.Contains(connStr, ";") {
		for _, part := range strings.Split(connStr, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok {
				continue
			}
			pairs = append(pairs, [2]string{strings.TrimSpace(key), strings.TrimSpace(value)})
		}
		return pairs, nil
	}

	s := connStr
	for {
		s = strings.TrimLeft(s, " \t\n")
		if s == "" {
			return pairs, nil
		}
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed key/value pair near %q", s)
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " \t")

		var b strings.Builder
		if strings.HasPrefix(s, "'") {
			s = s[1:]
			closed := false
			for len(s) > 0 {
				c := s[0]
				s = s[1:]
				if c == '\\' && len(s) > 0 {
					b.WriteByte(s[0])
					s = s[1:]
					continue
				}
				if c == '\'' {
					closed = true
					break
				}
				b.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted value for %q", key)
			}
		} else {
			end := strings.IndexAny(s, " \t\n")
			if end < 0 {
				end = len(s)
			}
			b.WriteString(s[:end])
			s = s[end:]
		}
		pairs = append(pairs, [2]string{key, b.String()})
	}
}

// BuildConnectionString converts a ConnectionConfig back to a PostgreSQL URI
// that pgxpool.ParseConfig accepts.
func BuildConnectionString(config *payetl.ConnectionConfig) string {
	u := &url.URL{
		Scheme: "postgresql",
		Host:   fmt.Sprintf("%s:%d", config.Host, config.Port),
		Path:   "/" + config.Database,
	}

	if config.Username != "" {
		if config.Password != "" {
			u.User = url.UserPassword(config.Username, config.Password)
		} else {
			u.User = url.User(config.Username)
		}
	}

	query := url.Values{}
	if config.SSLMode != "" {
		query.Set("sslmode", config.SSLMode)
	}
	appName := config.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	query.Set("application_name", appName)
	if config.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(config.ConnectTimeout.Seconds())))
	}

	for key, value := range config.AdditionalParams {
		query.Set(key, value)
	}

	u.RawQuery = query.Encode()
	return u.String()
}
