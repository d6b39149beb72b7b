package loader

type document struct {
	Parts []record `json:"parts" toml:"part" yaml:"parts"`
}

type record struct {
	Name      string    `json:"name" toml:"name" yaml:"name"`
	Parent    string    `json:"parent,omitempty" toml:"parent,omitempty" yaml:"parent,omitempty"`
	Direction []float64 `json:"direction,omitempty" toml:"direction,omitempty" yaml:"direction,omitempty,flow"`
	Min       float64   `json:"min,omitempty" toml:"min,omitempty" yaml:"min,omitempty"`
	Max       float64   `json:"max,omitempty" toml:"max,omitempty" yaml:"max,omitempty"`
	Handles   []string  `json:"handles,omitempty" toml:"handles,omitempty" yaml:"handles,omitempty,flow"`
	Blocks    []string  `json:"blocks,omitempty" toml:"blocks,omitempty" yaml:"blocks,omitempty,flow"`
	Attracts  []string  `json:"attracts,omitempty" toml:"attracts,omitempty" yaml:"attracts,omitempty,flow"`
	Followers []string  `json:"followers,omitempty" toml:"followers,omitempty" yaml:"followers,omitempty,flow"`
}
