package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the YAML configuration structure for the CLI: flags
// override whatever it sets, matching cmd/dnsscience-grpc's pattern.
type ConfigFile struct {
	RootHints     []string `yaml:"root_hints"`
	TrustAnchors  []string `yaml:"trust_anchors"`
	EnableCookies bool     `yaml:"enable_cookies"`
	ClusterSecret string   `yaml:"cluster_secret"`
	Listen        string   `yaml:"listen"`
	EnableRRL     bool     `yaml:"enable_rrl"`
}

func LoadConfig(path string) (*ConfigFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c ConfigFile
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
