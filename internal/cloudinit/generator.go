// Package cloudinit provides cloud-init configuration generation for VM
// provisioning.
//
// This package generates the user-data and meta-data documents consumed by
// the cloud-init NoCloud datasource and packages them into a seed ISO.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/virtup/virtup/internal/config"
)

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with the "#cloud-config" header.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	Hostname        string  `yaml:"hostname"`
	FQDN            string  `yaml:"fqdn"`
	Timezone        string  `yaml:"timezone,omitempty"`
	Users           []User  `yaml:"users,omitempty"`
	SSHPasswordAuth bool    `yaml:"ssh_pwauth"`
	Output          *Output `yaml:"output,omitempty"`
}

// User configures a login user created on first boot.
type User struct {
	Name              string   `yaml:"name"`
	Sudo              string   `yaml:"sudo,omitempty"`
	Groups            string   `yaml:"groups,omitempty"`
	Shell             string   `yaml:"shell,omitempty"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
}

// Output configures cloud-init output logging.
type Output struct {
	All string `yaml:"all"`
}

// MetaData represents the cloud-init meta-data structure.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData generates the user-data YAML content from VM configuration.
//
// Returns the complete user-data file content including the "#cloud-config"
// header. The login user is granted passwordless sudo and the configured SSH
// public key; password authentication stays disabled.
func GenerateUserData(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("VM configuration cannot be nil")
	}

	userData := UserData{
		Hostname:        cfg.Name,
		FQDN:            cfg.FQDN(),
		Timezone:        cfg.Timezone,
		SSHPasswordAuth: false,
		Users: []User{
			{
				Name:  cfg.User(),
				Sudo:  "ALL=(ALL) NOPASSWD:ALL",
				Shell: "/bin/bash",
			},
		},
		Output: &Output{
			All: "| tee -a /var/log/cloud-init-output.log",
		},
	}

	if cfg.SSHKey != "" {
		userData.Users[0].SSHAuthorizedKeys = []string{cfg.SSHKey}
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	// The #cloud-config header is required by the cloud-init spec.
	return "#cloud-config\n" + string(yamlBytes), nil
}

// GenerateMetaData generates the meta-data YAML content from VM configuration.
//
// The instance-id is a fresh UUID per invocation so cloud-init treats a
// destroyed-and-recreated VM of the same name as a first boot.
func GenerateMetaData(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("VM configuration cannot be nil")
	}

	metaData := MetaData{
		InstanceID:    fmt.Sprintf("%s-%s", cfg.Name, uuid.New().String()),
		LocalHostname: cfg.Name,
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}
