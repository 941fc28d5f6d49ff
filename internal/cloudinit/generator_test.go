package cloudinit

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/virtup/virtup/internal/config"
	"github.com/virtup/virtup/internal/distro"
)

const testSSHKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl test@example.com"

func testConfig(t *testing.T) *config.VMConfig {
	t.Helper()
	d, err := distro.Lookup("ubuntu24.04")
	if err != nil {
		t.Fatal(err)
	}
	return &config.VMConfig{
		Name:     "test-vm",
		Distro:   d,
		VCPUs:    1,
		MemoryMB: 1024,
		DiskGB:   10,
		Bridge:   "virbr0",
		Timezone: "UTC",
		SSHKey:   testSSHKey,
	}
}

func parseUserData(t *testing.T, content string) UserData {
	t.Helper()
	if !strings.HasPrefix(content, "#cloud-config\n") {
		t.Fatal("user-data must start with '#cloud-config'")
	}
	var userData UserData
	if err := yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &userData); err != nil {
		t.Fatalf("failed to parse user-data YAML: %v", err)
	}
	return userData
}

func TestGenerateUserData(t *testing.T) {
	tests := []struct {
		name         string
		cfg          func(t *testing.T) *config.VMConfig
		expectErr    bool
		checkContent func(t *testing.T, userData UserData)
	}{
		{
			name:      "nil config",
			cfg:       func(t *testing.T) *config.VMConfig { return nil },
			expectErr: true,
		},
		{
			name: "default config",
			cfg:  testConfig,
			checkContent: func(t *testing.T, userData UserData) {
				if userData.Hostname != "test-vm" {
					t.Errorf("hostname = %q, want 'test-vm'", userData.Hostname)
				}
				if userData.FQDN != "test-vm" {
					t.Errorf("fqdn = %q, want 'test-vm'", userData.FQDN)
				}
				if userData.Timezone != "UTC" {
					t.Errorf("timezone = %q, want 'UTC'", userData.Timezone)
				}
				if userData.SSHPasswordAuth {
					t.Error("ssh_pwauth should be false")
				}
				if len(userData.Users) != 1 {
					t.Fatalf("got %d users, want 1", len(userData.Users))
				}
				u := userData.Users[0]
				if u.Name != "ubuntu" {
					t.Errorf("user = %q, want distro default 'ubuntu'", u.Name)
				}
				if u.Sudo != "ALL=(ALL) NOPASSWD:ALL" {
					t.Errorf("sudo = %q", u.Sudo)
				}
				if len(u.SSHAuthorizedKeys) != 1 || u.SSHAuthorizedKeys[0] != testSSHKey {
					t.Errorf("ssh_authorized_keys = %v", u.SSHAuthorizedKeys)
				}
				if userData.Output == nil || userData.Output.All != "| tee -a /var/log/cloud-init-output.log" {
					t.Error("output logging not configured")
				}
			},
		},
		{
			name: "dns domain produces fqdn",
			cfg: func(t *testing.T) *config.VMConfig {
				cfg := testConfig(t)
				cfg.DNSDomain = "lab.example.com"
				return cfg
			},
			checkContent: func(t *testing.T, userData UserData) {
				if userData.Hostname != "test-vm" {
					t.Errorf("hostname = %q", userData.Hostname)
				}
				if userData.FQDN != "test-vm.lab.example.com" {
					t.Errorf("fqdn = %q", userData.FQDN)
				}
			},
		},
		{
			name: "login user override",
			cfg: func(t *testing.T) *config.VMConfig {
				cfg := testConfig(t)
				cfg.LoginUser = "admin"
				return cfg
			},
			checkContent: func(t *testing.T, userData UserData) {
				if len(userData.Users) != 1 || userData.Users[0].Name != "admin" {
					t.Errorf("users = %v, want single 'admin'", userData.Users)
				}
			},
		},
		{
			name: "no ssh key omits authorized keys",
			cfg: func(t *testing.T) *config.VMConfig {
				cfg := testConfig(t)
				cfg.SSHKey = ""
				return cfg
			},
			checkContent: func(t *testing.T, userData UserData) {
				if len(userData.Users[0].SSHAuthorizedKeys) != 0 {
					t.Errorf("ssh_authorized_keys = %v, want empty", userData.Users[0].SSHAuthorizedKeys)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := GenerateUserData(tt.cfg(t))
			if (err != nil) != tt.expectErr {
				t.Fatalf("GenerateUserData() error = %v, expectErr %v", err, tt.expectErr)
			}
			if tt.expectErr {
				return
			}
			tt.checkContent(t, parseUserData(t, content))
		})
	}
}

func TestGenerateMetaData(t *testing.T) {
	cfg := testConfig(t)

	content, err := GenerateMetaData(cfg)
	if err != nil {
		t.Fatalf("GenerateMetaData() error = %v", err)
	}

	var metaData MetaData
	if err := yaml.Unmarshal([]byte(content), &metaData); err != nil {
		t.Fatalf("failed to parse meta-data YAML: %v", err)
	}

	if metaData.LocalHostname != "test-vm" {
		t.Errorf("local-hostname = %q", metaData.LocalHostname)
	}
	if !strings.HasPrefix(metaData.InstanceID, "test-vm-") {
		t.Errorf("instance-id = %q, want 'test-vm-<uuid>'", metaData.InstanceID)
	}

	// Recreating the same VM must produce a fresh instance-id so
	// cloud-init reruns on first boot.
	content2, err := GenerateMetaData(cfg)
	if err != nil {
		t.Fatalf("GenerateMetaData() second call error = %v", err)
	}
	var metaData2 MetaData
	if err := yaml.Unmarshal([]byte(content2), &metaData2); err != nil {
		t.Fatal(err)
	}
	if metaData.InstanceID == metaData2.InstanceID {
		t.Errorf("instance-id repeated across invocations: %q", metaData.InstanceID)
	}
}

func TestGenerateMetaDataNilConfig(t *testing.T) {
	if _, err := GenerateMetaData(nil); err == nil {
		t.Fatal("GenerateMetaData(nil) should fail")
	}
}
