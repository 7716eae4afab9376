package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ProfileInfo describes one named configuration file in the config
// directory. The profile name is the file name without ".toml".
type ProfileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Valid    bool      `json:"valid"`
	Error    string    `json:"error,omitempty"`
}

// DefaultConfigDir is where named profiles live. TLECHECK_CONFIG_DIR
// overrides it.
func DefaultConfigDir() string {
	if dir := os.Getenv("TLECHECK_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/tlecheck"
}

// ProfilePath resolves a profile name to its file under dir.
func ProfilePath(dir, name string) string {
	return filepath.Join(dir, name+".toml")
}

// ValidProfileName rejects names that would escape the config directory.
func ValidProfileName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// ListProfiles returns every *.toml file in dir, sorted by name, each
// loaded to report whether it validates. A missing directory is not an
// error; it has no profiles.
func ListProfiles(dir string) ([]ProfileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var out []ProfileInfo
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		p := ProfileInfo{
			Name:     strings.TrimSuffix(filepath.Base(m), ".toml"),
			Path:     m,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			Valid:    true,
		}
		if _, err := Load(m); err != nil {
			p.Valid = false
			p.Error = err.Error()
		}
		out = append(out, p)
	}
	return out, nil
}
