package catalog

// File is the root structure of a catalog YAML file.
type File struct {
	Categories []CategoryEntry `yaml:"categories"`
	Services   []ServiceEntry  `yaml:"services"`
}

// CategoryEntry is a single category in the YAML.
type CategoryEntry struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Sublabel string `yaml:"sublabel,omitempty"`
	Color    string `yaml:"color,omitempty"`
	Icon     string `yaml:"icon,omitempty"`
}

// ServiceEntry is a single built-in service in the YAML.
type ServiceEntry struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	Port          int    `yaml:"port"`
	Path          string `yaml:"path,omitempty"`
	DefaultStatus string `yaml:"defaultStatus,omitempty"`
	Icon          string `yaml:"icon,omitempty"`
	Category      string `yaml:"category"`
}
