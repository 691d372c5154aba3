// Package blacklist loads the host blocklist applied before any endpoint is
// probed. Entries are host:port keys; bare hostnames block both default
// ports.
package blacklist

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Set holds blocked host:port keys.
type Set map[string]struct{}

// Load reads a blocklist file with one host[:port] per line. Blank lines and
// lines starting with # are skipped. A missing file yields an empty set so
// the blocklist stays optional.
func Load(path string) (Set, error) {
	set := make(Set)
	if strings.TrimSpace(path) == "" {
		return set, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return set, nil
		}
		return nil, fmt.Errorf("open blacklist: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		host := strings.ToLower(line)
		if strings.Contains(host, ":") {
			set[host] = struct{}{}
			continue
		}
		set[host+":80"] = struct{}{}
		set[host+":443"] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return set, nil
}

// Contains reports whether a host:port key is blocked.
func (s Set) Contains(hostKey string) bool {
	_, ok := s[strings.ToLower(hostKey)]
	return ok
}

// Len returns the number of blocked keys.
func (s Set) Len() int {
	return len(s)
}
