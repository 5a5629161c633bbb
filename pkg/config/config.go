// Package config reads the small key=value connection-string files the
// two process entrypoints load alongside their flags. There is no
// precedent for a config-file layer in the teacher repo (it configures
// entirely via flags in cmd/ccr_syncer/ccr_syncer.go's init()), so this
// reader is built directly on the standard library rather than adapted
// from an example — see DESIGN.md.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/rowsync/rowsync/pkg/xerror"
)

// Endpoint is one database connection's worth of configuration: which
// engine, and how to reach it.
type Endpoint struct {
	Type     string // "mysql", "postgres", or "sqlite3"
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Path is the SQLite file path; used instead of Host/Port/User/
	// Password/Database when Type == "sqlite3".
	Path string
}

// ReadKeyValueFile reads a "key = value" file, one assignment per line.
// Blank lines and lines starting with '#' are ignored. It is not a full
// TOML parser: no sections, no quoting, no nested tables, matching the
// narrow needs of §1.1's connection-string files and nothing more.
func ReadKeyValueFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Normal, "open config file %s failed", path)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, xerror.Errorf(xerror.Normal, "config file %s line %d: missing '='", path, lineNum)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerror.Wrapf(err, xerror.Normal, "read config file %s failed", path)
	}
	return values, nil
}

// ReadEndpoint reads an Endpoint from a key=value file. Recognized keys:
// type, host, port, user, password, database, path.
func ReadEndpoint(path string) (Endpoint, error) {
	values, err := ReadKeyValueFile(path)
	if err != nil {
		return Endpoint{}, err
	}

	endpoint := Endpoint{
		Type:     values["type"],
		Host:     values["host"],
		User:     values["user"],
		Password: values["password"],
		Database: values["database"],
		Path:     values["path"],
	}
	if portText, ok := values["port"]; ok && portText != "" {
		port, err := strconv.Atoi(portText)
		if err != nil {
			return Endpoint{}, xerror.Wrapf(err, xerror.Normal, "config file %s: invalid port %q", path, portText)
		}
		endpoint.Port = port
	}
	return endpoint, nil
}
