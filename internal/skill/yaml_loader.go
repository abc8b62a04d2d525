package skill

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"roobot/internal/domain"
)

// LoadFromDirectory loads skill definitions from YAML files in a directory.
// Files must have a .yaml or .yml extension and conform to the Skill schema.
// Missing directory is not an error: built-ins alone are a valid setup.
func LoadFromDirectory(dir string, logger *slog.Logger) ([]domain.Skill, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("skills directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []domain.Skill
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read skill file", "path", path, "err", err)
			continue
		}

		var s domain.Skill
		if err := yaml.Unmarshal(data, &s); err != nil {
			logger.Warn("cannot parse skill file", "path", path, "err", err)
			continue
		}
		if s.Name == "" {
			s.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if s.Handler != "" {
			// Native handlers are compiled in; file skills are
			// instruction-only and take the generic path.
			logger.Warn("ignoring handler on file skill", "name", s.Name, "handler", s.Handler)
			s.Handler = ""
		}

		logger.Info("loaded skill", "name", s.Name, "path", path)
		skills = append(skills, s)
	}

	return skills, nil
}
