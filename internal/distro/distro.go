// Package distro defines the table of supported guest distributions and
// the metadata needed to locate and boot their cloud images.
package distro

import (
	"fmt"
	"sort"
	"strings"
)

// Distro describes a supported guest distribution.
type Distro struct {
	// Key is the identifier used on the command line (e.g. "ubuntu24.04").
	Key string
	// Name is the human-readable distribution name.
	Name string
	// ImageName is the filename the cloud image is stored under in the
	// virtup-images pool.
	ImageName string
	// OSVariant is the libosinfo variant string recorded in domain metadata.
	OSVariant string
	// URL is the upstream cloud image download location.
	URL string
	// ChecksumURL points at the upstream checksum manifest. It is recorded
	// for reference only; virtup does not verify downloads.
	ChecksumURL string
	// LoginUser is the default cloud-init login user for the image.
	LoginUser string
	// MinDiskGB is the virtual size of the upstream image. Boot disks must
	// be at least this large.
	MinDiskGB int
}

// table maps distro keys to their metadata. Keys are kept lowercase.
var table = map[string]Distro{
	"almalinux9": {
		Key:         "almalinux9",
		Name:        "AlmaLinux 9",
		ImageName:   "AlmaLinux-9-GenericCloud-latest.x86_64.qcow2",
		OSVariant:   "almalinux9",
		URL:         "https://repo.almalinux.org/almalinux/9/cloud/x86_64/images/AlmaLinux-9-GenericCloud-latest.x86_64.qcow2",
		ChecksumURL: "https://repo.almalinux.org/almalinux/9/cloud/x86_64/images/CHECKSUM",
		LoginUser:   "alma",
		MinDiskGB:   10,
	},
	"centosstream9": {
		Key:         "centosstream9",
		Name:        "CentOS Stream 9",
		ImageName:   "CentOS-Stream-GenericCloud-9-latest.x86_64.qcow2",
		OSVariant:   "centos-stream9",
		URL:         "https://cloud.centos.org/centos/9-stream/x86_64/images/CentOS-Stream-GenericCloud-9-latest.x86_64.qcow2",
		ChecksumURL: "https://cloud.centos.org/centos/9-stream/x86_64/images/CentOS-Stream-GenericCloud-9-latest.x86_64.qcow2.SHA256SUM",
		LoginUser:   "cloud-user",
		MinDiskGB:   10,
	},
	"debian11": {
		Key:         "debian11",
		Name:        "Debian 11 (Bullseye)",
		ImageName:   "debian-11-generic-amd64.qcow2",
		OSVariant:   "debian11",
		URL:         "https://cloud.debian.org/images/cloud/bullseye/latest/debian-11-generic-amd64.qcow2",
		ChecksumURL: "https://cloud.debian.org/images/cloud/bullseye/latest/SHA512SUMS",
		LoginUser:   "debian",
		MinDiskGB:   3,
	},
	"debian12": {
		Key:         "debian12",
		Name:        "Debian 12 (Bookworm)",
		ImageName:   "debian-12-generic-amd64.qcow2",
		OSVariant:   "debian12",
		URL:         "https://cloud.debian.org/images/cloud/bookworm/latest/debian-12-generic-amd64.qcow2",
		ChecksumURL: "https://cloud.debian.org/images/cloud/bookworm/latest/SHA512SUMS",
		LoginUser:   "debian",
		MinDiskGB:   3,
	},
	"fedora40": {
		Key:         "fedora40",
		Name:        "Fedora 40",
		ImageName:   "Fedora-Cloud-Base-Generic.x86_64-40-1.14.qcow2",
		OSVariant:   "fedora40",
		URL:         "https://download.fedoraproject.org/pub/fedora/linux/releases/40/Cloud/x86_64/images/Fedora-Cloud-Base-Generic.x86_64-40-1.14.qcow2",
		ChecksumURL: "https://download.fedoraproject.org/pub/fedora/linux/releases/40/Cloud/x86_64/images/Fedora-Cloud-40-1.14-x86_64-CHECKSUM",
		LoginUser:   "fedora",
		MinDiskGB:   5,
	},
	"fedora41": {
		Key:         "fedora41",
		Name:        "Fedora 41",
		ImageName:   "Fedora-Cloud-Base-Generic-41-1.4.x86_64.qcow2",
		OSVariant:   "fedora41",
		URL:         "https://download.fedoraproject.org/pub/fedora/linux/releases/41/Cloud/x86_64/images/Fedora-Cloud-Base-Generic-41-1.4.x86_64.qcow2",
		ChecksumURL: "https://download.fedoraproject.org/pub/fedora/linux/releases/41/Cloud/x86_64/images/Fedora-Cloud-41-1.4-x86_64-CHECKSUM",
		LoginUser:   "fedora",
		MinDiskGB:   5,
	},
	"opensuse15.6": {
		Key:         "opensuse15.6",
		Name:        "openSUSE Leap 15.6",
		ImageName:   "openSUSE-Leap-15.6-Minimal-VM.x86_64-Cloud.qcow2",
		OSVariant:   "opensuse15.6",
		URL:         "https://download.opensuse.org/distribution/leap/15.6/appliances/openSUSE-Leap-15.6-Minimal-VM.x86_64-Cloud.qcow2",
		ChecksumURL: "https://download.opensuse.org/distribution/leap/15.6/appliances/openSUSE-Leap-15.6-Minimal-VM.x86_64-Cloud.qcow2.sha256",
		LoginUser:   "opensuse",
		MinDiskGB:   10,
	},
	"rocky9": {
		Key:         "rocky9",
		Name:        "Rocky Linux 9",
		ImageName:   "Rocky-9-GenericCloud-Base.latest.x86_64.qcow2",
		OSVariant:   "rocky9",
		URL:         "https://dl.rockylinux.org/pub/rocky/9/images/x86_64/Rocky-9-GenericCloud-Base.latest.x86_64.qcow2",
		ChecksumURL: "https://dl.rockylinux.org/pub/rocky/9/images/x86_64/Rocky-9-GenericCloud-Base.latest.x86_64.qcow2.CHECKSUM",
		LoginUser:   "rocky",
		MinDiskGB:   10,
	},
	"ubuntu20.04": {
		Key:         "ubuntu20.04",
		Name:        "Ubuntu 20.04 LTS (Focal)",
		ImageName:   "focal-server-cloudimg-amd64.img",
		OSVariant:   "ubuntu20.04",
		URL:         "https://cloud-images.ubuntu.com/focal/current/focal-server-cloudimg-amd64.img",
		ChecksumURL: "https://cloud-images.ubuntu.com/focal/current/SHA256SUMS",
		LoginUser:   "ubuntu",
		MinDiskGB:   4,
	},
	"ubuntu22.04": {
		Key:         "ubuntu22.04",
		Name:        "Ubuntu 22.04 LTS (Jammy)",
		ImageName:   "jammy-server-cloudimg-amd64.img",
		OSVariant:   "ubuntu22.04",
		URL:         "https://cloud-images.ubuntu.com/jammy/current/jammy-server-cloudimg-amd64.img",
		ChecksumURL: "https://cloud-images.ubuntu.com/jammy/current/SHA256SUMS",
		LoginUser:   "ubuntu",
		MinDiskGB:   4,
	},
	"ubuntu24.04": {
		Key:         "ubuntu24.04",
		Name:        "Ubuntu 24.04 LTS (Noble)",
		ImageName:   "noble-server-cloudimg-amd64.img",
		OSVariant:   "ubuntu24.04",
		URL:         "https://cloud-images.ubuntu.com/noble/current/noble-server-cloudimg-amd64.img",
		ChecksumURL: "https://cloud-images.ubuntu.com/noble/current/SHA256SUMS",
		LoginUser:   "ubuntu",
		MinDiskGB:   4,
	},
}

// DefaultKey is the distribution used when --distro is not given.
const DefaultKey = "ubuntu24.04"

// Lookup returns the metadata for a distro key. The key is matched
// case-insensitively. Unknown keys return an error listing the known keys.
func Lookup(key string) (Distro, error) {
	d, ok := table[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Distro{}, fmt.Errorf("unknown distro %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return d, nil
}

// Keys returns all known distro keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns all known distributions sorted by key.
func All() []Distro {
	distros := make([]Distro, 0, len(table))
	for _, k := range Keys() {
		distros = append(distros, table[k])
	}
	return distros
}
