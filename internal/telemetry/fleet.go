package telemetry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Node is one simulated grid-edge device from the fleet seed file.
type Node struct {
	Name      string  `yaml:"name"`
	Type      string  `yaml:"type"`
	Telemetry Payload `yaml:"telemetry"`
}

type fleetFile struct {
	Nodes []Node `yaml:"nodes"`
}

func LoadFleet(path string) ([]Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fleetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	for i, node := range f.Nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("fleet node %d has no name", i)
		}
	}
	return f.Nodes, nil
}
