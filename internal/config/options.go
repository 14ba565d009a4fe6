package config

import "gopkg.in/yaml.v3"

// Options is front-end-supplied engine configuration: which proof profile to
// run under, whether counterexample minimization is enabled, and which
// proof engine to use for differential checks. Loading is a pure function
// over bytes; no file access happens inside this package, matching the
// repository's rule that CORE code never touches the filesystem.
type Options struct {
	Profile  string `yaml:"profile"`
	Engine   string `yaml:"engine"`
	Minimize bool   `yaml:"minimize"`
}

// Default returns the Options used when no configuration was supplied.
func Default() Options {
	return Options{Profile: DefaultProfile, Engine: "prover", Minimize: true}
}

// ParseOptions parses YAML bytes into Options, filling in defaults for any
// field the document omits.
func ParseOptions(data []byte) (Options, error) {
	opts := Default()
	if len(data) == 0 {
		return opts, nil
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	if opts.Profile == "" {
		opts.Profile = DefaultProfile
	}
	if opts.Engine == "" {
		opts.Engine = "prover"
	}
	return opts, nil
}
