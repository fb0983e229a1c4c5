package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ParsedDatabaseURL is MEDFLOW_DATABASE_URL split into libpq settings.
type ParsedDatabaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Options holds query parameters other than sslmode.
	Options map[string]string
}

// ParseDatabaseURL accepts postgres:// and postgresql:// URLs. The port
// defaults to 5432 and sslmode to disable.
func ParseDatabaseURL(raw string) (*ParsedDatabaseURL, error) {
	if raw == "" {
		return nil, errors.New("database URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("database URL scheme %q, want postgres or postgresql", u.Scheme)
	}

	p := &ParsedDatabaseURL{
		Host:     u.Hostname(),
		Port:     5432,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
		Options:  map[string]string{},
	}
	if port := u.Port(); port != "" {
		if p.Port, err = strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("database URL port %q: %w", port, err)
		}
	}
	if u.User != nil {
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	for key, vals := range u.Query() {
		switch {
		case len(vals) == 0:
		case key == "sslmode":
			p.SSLMode = vals[0]
		default:
			p.Options[key] = vals[0]
		}
	}
	return p, nil
}

// ToDSN renders a libpq keyword/value string. Options follow the fixed
// settings in key order.
func (p *ParsedDatabaseURL) ToDSN() string {
	parts := []string{
		"host=" + p.Host,
		"port=" + strconv.Itoa(p.Port),
		"user=" + p.User,
		"password=" + p.Password,
		"dbname=" + p.Database,
		"sslmode=" + p.SSLMode,
	}
	for _, k := range slices.Sorted(maps.Keys(p.Options)) {
		parts = append(parts, k+"="+p.Options[k])
	}
	return strings.Join(parts, " ")
}
