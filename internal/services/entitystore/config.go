package entitystore

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultScheme is used when the connection URI is built from structured fields.
	DefaultScheme = "mongodb"
	srvScheme     = "mongodb+srv"
)

// DefaultDriverOptions are merged under caller supplied driver options.
// retryReads/retryWrites stand in for auto-reconnect; w=1 asks for
// single-node write acknowledgment.
var DefaultDriverOptions = map[string]string{
	"w":           "1",
	"retryReads":  "true",
	"retryWrites": "true",
}

// urlPattern matches scheme://[user:pass@]host[:port]/dbname.
var urlPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]*)://(?:([^:@/]*):([^@/]*)@)?([^:/?@]+)(?::(\d+))?/([^?]*)$`)

// ConnectionConfig is the normalized connection descriptor the store dials with.
type ConnectionConfig struct {
	Scheme   string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// RawURL, when set, is handed to the driver instead of Host/Port.
	RawURL  string
	Options map[string]string
	// Connect is false when connection establishment is deferred.
	Connect bool
}

// Descriptor is caller supplied configuration that resolves to a ConnectionConfig.
type Descriptor interface {
	Resolve() (*ConnectionConfig, error)
}

// DirectConfig is the structured configuration form. Host falls back to
// Server, Username to User and Password to Pass.
type DirectConfig struct {
	Host     string
	Server   string
	Port     int
	Name     string
	Username string
	User     string
	Password string
	Pass     string
	URL      string
	Options  map[string]string
	// Connect set to false defers connection establishment.
	Connect *bool
}

// Resolve normalizes the structured configuration.
func (c DirectConfig) Resolve() (*ConnectionConfig, error) {
	return &ConnectionConfig{
		Scheme:   DefaultScheme,
		Host:     firstNonEmpty(c.Host, c.Server),
		Port:     c.Port,
		Database: c.Name,
		Username: firstNonEmpty(c.Username, c.User),
		Password: firstNonEmpty(c.Password, c.Pass),
		RawURL:   c.URL,
		Options:  copyOptions(c.Options),
		Connect:  c.Connect == nil || *c.Connect,
	}, nil
}

// URLConfig is the string configuration form scheme://[user:pass@]host[:port]/dbname.
type URLConfig struct {
	URL     string
	Options map[string]string
	Connect *bool
}

// Resolve parses the URL into its connection parts.
func (c URLConfig) Resolve() (*ConnectionConfig, error) {
	conn, err := ParseURL(c.URL)
	if err != nil {
		return nil, err
	}
	conn.Options = copyOptions(c.Options)
	conn.Connect = c.Connect == nil || *c.Connect
	return conn, nil
}

// ParseURL parses scheme://[user:pass@]host[:port]/dbname.
func ParseURL(raw string) (*ConnectionConfig, error) {
	m := urlPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, fmt.Errorf("invalid store url %q: expected scheme://[user:pass@]host[:port]/dbname", raw)
	}

	conn := &ConnectionConfig{
		Scheme:   DefaultScheme,
		Host:     m[4],
		Database: m[6],
		Connect:  true,
	}
	if strings.EqualFold(m[1], srvScheme) {
		conn.Scheme = srvScheme
	}

	var err error
	if conn.Username, err = url.PathUnescape(m[2]); err != nil {
		return nil, fmt.Errorf("invalid username in store url: %w", err)
	}
	if conn.Password, err = url.PathUnescape(m[3]); err != nil {
		return nil, fmt.Errorf("invalid password in store url: %w", err)
	}
	if m[5] != "" {
		port, err := strconv.Atoi(m[5])
		if err != nil {
			return nil, fmt.Errorf("invalid port in store url: %w", err)
		}
		conn.Port = port
	}
	return conn, nil
}

// Validate checks that the config can be dialed: either a raw URL or a host and database.
func (c *ConnectionConfig) Validate() error {
	if c.RawURL != "" {
		if _, err := url.Parse(c.RawURL); err != nil {
			return fmt.Errorf("invalid raw url: %w", err)
		}
		if c.DatabaseName() == "" {
			return fmt.Errorf("database name is required")
		}
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// DatabaseName returns the database to select, falling back to the raw URL's path.
func (c *ConnectionConfig) DatabaseName() string {
	if c.Database != "" {
		return c.Database
	}
	if c.RawURL == "" {
		return ""
	}
	u, err := url.Parse(c.RawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// DriverOptions merges the defaults with the caller's options, caller values winning.
func (c *ConnectionConfig) DriverOptions() map[string]string {
	merged := copyOptions(DefaultDriverOptions)
	for k, v := range c.Options {
		merged[k] = v
	}
	return merged
}

// URI renders the driver connection string.
func (c *ConnectionConfig) URI() (string, error) {
	if c.RawURL != "" {
		return c.rawURI()
	}

	u := &url.URL{
		Scheme: c.Scheme,
		Host:   c.Host,
		Path:   "/" + c.Database,
	}
	if u.Scheme == "" {
		u.Scheme = DefaultScheme
	}
	if c.Port > 0 && u.Scheme != srvScheme {
		u.Host = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	u.RawQuery = encodeOptions(url.Values{}, c.DriverOptions())
	return u.String(), nil
}

// rawURI keeps parameters already present in the raw URL over the defaults;
// explicit caller options override both.
func (c *ConnectionConfig) rawURI() (string, error) {
	u, err := url.Parse(c.RawURL)
	if err != nil {
		return "", fmt.Errorf("invalid raw url: %w", err)
	}
	q := u.Query()
	for k, v := range DefaultDriverOptions {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	u.RawQuery = encodeOptions(q, c.Options)
	return u.String(), nil
}

// Redacted renders the connection target without credentials, for logs and errors.
func (c *ConnectionConfig) Redacted() string {
	if c.RawURL != "" {
		u, err := url.Parse(c.RawURL)
		if err != nil {
			return "<invalid url>"
		}
		return u.Redacted()
	}
	host := c.Host
	if c.Port > 0 {
		host = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	return fmt.Sprintf("%s://%s/%s", c.Scheme, host, c.Database)
}

func encodeOptions(q url.Values, opts map[string]string) string {
	for k, v := range opts {
		q.Set(k, v)
	}
	return q.Encode()
}

func copyOptions(opts map[string]string) map[string]string {
	out := make(map[string]string, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
