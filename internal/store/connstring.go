package store

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPort = "6379"

// ParseConnectionString builds client options from either a redis://,
// rediss:// or unix:// URL, or a comma separated option list such as
//
//	cache.local:6380,password=secret,ssl=true,defaultDatabase=2
//
// Only the first endpoint of an option list is used.
func ParseConnectionString(s string) (*redis.Options, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidConnectionString)
	}

	if strings.Contains(s, "://") {
		opts, err := redis.ParseURL(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConnectionString, err)
		}
		return opts, nil
	}

	opts := &redis.Options{}
	var endpoints []string

	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, value, isOption := strings.Cut(token, "=")
		if !isOption {
			endpoints = append(endpoints, token)
			continue
		}

		if err := applyOption(opts, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}

	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no endpoint", ErrInvalidConnectionString)
	}

	addr, err := normalizeEndpoint(endpoints[0])
	if err != nil {
		return nil, err
	}
	opts.Addr = addr

	if opts.TLSConfig != nil && opts.TLSConfig.ServerName == "" {
		host, _, _ := net.SplitHostPort(addr)
		opts.TLSConfig.ServerName = host
	}

	return opts, nil
}

func applyOption(opts *redis.Options, key, value string) error {
	switch strings.ToLower(key) {
	case "password":
		opts.Password = value
	case "user":
		opts.Username = value
	case "name":
		opts.ClientName = value
	case "ssl":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return invalidOption(key, value)
		}
		if enabled && opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		} else if !enabled {
			opts.TLSConfig = nil
		}
	case "sslhost":
		if opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		opts.TLSConfig.ServerName = value
	case "defaultdatabase":
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			return invalidOption(key, value)
		}
		opts.DB = db
	case "connecttimeout":
		d, err := parseMillis(value)
		if err != nil {
			return invalidOption(key, value)
		}
		opts.DialTimeout = d
	case "synctimeout":
		d, err := parseMillis(value)
		if err != nil {
			return invalidOption(key, value)
		}
		opts.ReadTimeout = d
		opts.WriteTimeout = d
	case "abortconnect", "connectretry", "allowadmin":
		// Retry and admin behavior is owned by the caller.
	default:
		return fmt.Errorf("%w: unknown option %q", ErrInvalidConnectionString, key)
	}

	return nil
}

func normalizeEndpoint(endpoint string) (string, error) {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		// No port given.
		if strings.Contains(endpoint, ":") && !strings.HasPrefix(endpoint, "[") {
			return "", fmt.Errorf("%w: bad endpoint %q", ErrInvalidConnectionString, endpoint)
		}
		host, port = strings.Trim(endpoint, "[]"), defaultPort
	}

	if host == "" {
		return "", fmt.Errorf("%w: bad endpoint %q", ErrInvalidConnectionString, endpoint)
	}

	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("%w: bad port %q", ErrInvalidConnectionString, port)
	}

	return net.JoinHostPort(host, port), nil
}

func parseMillis(value string) (time.Duration, error) {
	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("bad milliseconds %q", value)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func invalidOption(key, value string) error {
	return fmt.Errorf("%w: bad value %q for %s", ErrInvalidConnectionString, value, key)
}
