package domain

// ParameterSpec describes one parameter a skill can extract from free text.
type ParameterSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default,omitempty"`
}

// Skill is an immutable capability descriptor loaded at startup.
// Skills with a Handler name are dispatched to a native action handler;
// the rest fall back to the generic model-driven path.
type Skill struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description"`
	Instructions    string          `yaml:"instructions"`
	TriggerKeywords []string        `yaml:"trigger_keywords"`
	Parameters      []ParameterSpec `yaml:"parameters"`
	Handler         string          `yaml:"handler,omitempty"`
	BuiltIn         bool            `yaml:"-"`
}
