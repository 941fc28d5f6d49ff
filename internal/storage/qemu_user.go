package storage

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strings"
	"sync"
)

var (
	qemuUID  string
	qemuGID  string
	qemuOnce sync.Once
	qemuErr  error
)

// GetQEMUUserGroup returns the UID and GID the QEMU process runs as, for
// use in pool and volume permissions. Strategies, in order:
//  1. the user/group configured in /etc/libvirt/qemu.conf
//  2. the common usernames qemu and libvirt-qemu
//  3. hardcoded 107 (the Fedora/RHEL default)
//
// The result is cached after the first call.
func GetQEMUUserGroup() (uid, gid string, err error) {
	qemuOnce.Do(func() {
		username, groupname := getQEMUConfiguredUser()

		if username != "" {
			u, err := user.Lookup(username)
			if err == nil {
				qemuUID = u.Uid
				qemuGID = u.Gid
				if groupname != "" {
					if g, err := user.LookupGroup(groupname); err == nil {
						qemuGID = g.Gid
					}
				}
				return
			}
		}

		for _, name := range []string{"qemu", "libvirt-qemu"} {
			if u, err := user.Lookup(name); err == nil {
				qemuUID = u.Uid
				qemuGID = u.Gid
				return
			}
		}

		qemuUID = "107"
		qemuGID = "107"
		qemuErr = fmt.Errorf("could not determine QEMU user/group, using fallback UID/GID 107")
	})

	return qemuUID, qemuGID, qemuErr
}

// getQEMUConfiguredUser reads /etc/libvirt/qemu.conf and extracts the
// configured user and group names. Returns empty strings if the file is
// missing or the settings are absent.
func getQEMUConfiguredUser() (username, groupname string) {
	file, err := os.Open("/etc/libvirt/qemu.conf")
	if err != nil {
		return "", ""
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "user") {
			if parts := strings.SplitN(line, "=", 2); len(parts) == 2 {
				username = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
			}
		}

		if strings.HasPrefix(line, "group") {
			if parts := strings.SplitN(line, "=", 2); len(parts) == 2 {
				groupname = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
			}
		}
	}

	return username, groupname
}
