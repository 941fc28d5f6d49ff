package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/virtup/virtup/internal/vm"
)

// YAMLFormatter formats VM listings as YAML.
type YAMLFormatter struct{}

// FormatVM formats a single VM as YAML.
func (f *YAMLFormatter) FormatVM(info vm.Info) (string, error) {
	data, err := yaml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal VM to YAML: %w", err)
	}

	return string(data), nil
}

// FormatVMList formats a list of VMs as a YAML stream, one document per
// VM separated by ---.
func (f *YAMLFormatter) FormatVMList(vms []vm.Info) (string, error) {
	if len(vms) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, info := range vms {
		data, err := yaml.Marshal(info)
		if err != nil {
			return "", fmt.Errorf("failed to marshal VM %s to YAML: %w", info.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}
