package environment

// Environment is a named set of variables for value interpolation.
type Environment struct {
	Name      string            `yaml:"name" json:"name"`
	Variables map[string]string `yaml:"variables" json:"variables"`
}

// File is the on-disk environments document.
type File struct {
	ActiveEnvironment string        `yaml:"activeEnvironment,omitempty" json:"activeEnvironment,omitempty"`
	Environments      []Environment `yaml:"environments" json:"environments"`
}
