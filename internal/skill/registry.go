// Package skill provides the skill registry: immutable capability descriptors
// loaded once at startup and matched to user input.
package skill

import (
	"log/slog"
	"strings"
	"sync"

	"roobot/internal/domain"
)

// Registry holds the loaded skills in registration order.
// Skills are immutable after load; the registry is safe for concurrent reads.
type Registry struct {
	skills        []domain.Skill
	byName        map[string]int      // normalized name -> index
	lowerKeywords map[string][]string // pre-lowered keywords by skill name
	mu            sync.RWMutex
	logger        *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byName:        make(map[string]int),
		lowerKeywords: make(map[string][]string),
		logger:        logger,
	}
}

// NormalizeName lower-cases a skill name and collapses underscores to hyphens
// so "connect_users" and "Connect-Users" resolve to the same skill.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

// Register adds a skill, replacing any existing skill with the same name.
func (r *Registry) Register(s domain.Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kws := make([]string, len(s.TriggerKeywords))
	for i, kw := range s.TriggerKeywords {
		kws[i] = strings.ToLower(kw)
	}
	r.lowerKeywords[s.Name] = kws

	key := NormalizeName(s.Name)
	if idx, ok := r.byName[key]; ok {
		r.skills[idx] = s
		r.logger.Info("skill updated", "name", s.Name)
		return
	}
	r.byName[key] = len(r.skills)
	r.skills = append(r.skills, s)
	r.logger.Info("skill registered", "name", s.Name, "keywords", len(s.TriggerKeywords))
}

// Get looks up a skill by name, tolerating hyphen/underscore and case differences.
func (r *Registry) Get(name string) (*domain.Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[NormalizeName(name)]
	if !ok {
		return nil, false
	}
	s := r.skills[idx]
	return &s, true
}

// MatchKeyword returns the first skill (in registration order) with a trigger
// keyword contained in the input. Returns nil if none match.
func (r *Registry) MatchKeyword(input string) *domain.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(input)
	for i := range r.skills {
		for _, kw := range r.lowerKeywords[r.skills[i].Name] {
			if kw != "" && strings.Contains(lower, kw) {
				s := r.skills[i]
				return &s
			}
		}
	}
	return nil
}

// List returns all registered skills in registration order.
func (r *Registry) List() []domain.Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Skill, len(r.skills))
	copy(out, r.skills)
	return out
}
