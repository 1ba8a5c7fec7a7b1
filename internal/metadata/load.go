package metadata

import "fmt"

// LoadModule reads a module file in the YAML interchange format.
func LoadModule(path string) (*Module, error) {
	var m *Module
	err := readFile(path, func(data []byte) error {
		var err error
		m, err = UnmarshalModule(data, path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	return m, nil
}
