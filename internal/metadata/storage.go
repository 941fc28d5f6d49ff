// Package metadata persists VM creation records using libvirt's custom
// XML metadata feature. The record travels with the domain itself, so no
// external state file is needed to know how a VM was created.
package metadata

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"gopkg.in/yaml.v3"
)

const (
	// Namespace is the XML namespace for virtup metadata.
	Namespace = "https://virtup.dev/v1"

	// Key is the key used to store/retrieve metadata from libvirt.
	Key = "virtup"
)

// Record captures how a VM was created. It is stored as YAML inside the
// domain XML so `virsh dumpxml` stays human readable.
type Record struct {
	Name      string    `yaml:"name"`
	Distro    string    `yaml:"distro"`
	ImageName string    `yaml:"imageName"`
	LoginUser string    `yaml:"loginUser"`
	VCPUs     int       `yaml:"vcpus"`
	MemoryMB  int       `yaml:"memoryMB"`
	DiskGB    int       `yaml:"diskGB"`
	Bridge    string    `yaml:"bridge"`
	MAC       string    `yaml:"mac"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// LibvirtClient is the subset of libvirt operations this package needs.
type LibvirtClient interface {
	DomainSetMetadata(Dom libvirt.Domain, Type int32, Metadata libvirt.OptString, Key libvirt.OptString, Uri libvirt.OptString, Flags libvirt.DomainModificationImpact) error
	DomainGetMetadata(Dom libvirt.Domain, Type int32, Uri libvirt.OptString, Flags libvirt.DomainModificationImpact) (string, error)
}

// wrapper is the XML envelope around the YAML record.
type wrapper struct {
	XMLName xml.Name `xml:"metadata"`
	Xmlns   string   `xml:"xmlns,attr"`
	YAML    string   `xml:",innerxml"`
}

// Store saves a creation record to the domain's metadata.
func Store(client LibvirtClient, domain libvirt.Domain, record *Record) error {
	yamlData, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record to YAML: %w", err)
	}

	w := wrapper{
		Xmlns: Namespace,
		YAML:  string(yamlData),
	}

	xmlData, err := xml.MarshalIndent(w, "  ", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata to XML: %w", err)
	}

	err = client.DomainSetMetadata(
		domain,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{string(xmlData)},
		libvirt.OptString{Key},
		libvirt.OptString{Namespace},
		libvirt.DomainModificationImpact(0),
	)
	if err != nil {
		return fmt.Errorf("failed to set domain metadata: %w", err)
	}

	return nil
}

// Load retrieves the creation record from a domain's metadata. Domains
// not created by virtup return an error.
func Load(client LibvirtClient, domain libvirt.Domain) (*Record, error) {
	xmlStr, err := client.DomainGetMetadata(
		domain,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{Namespace},
		libvirt.DomainModificationImpact(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get domain metadata: %w", err)
	}

	var w wrapper
	if err := xml.Unmarshal([]byte(xmlStr), &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata XML: %w", err)
	}

	var record Record
	if err := yaml.Unmarshal([]byte(w.YAML), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record from YAML: %w", err)
	}

	return &record, nil
}

// Exists reports whether a domain carries a virtup creation record.
// Used to tell virtup-managed domains apart from other domains on the
// same host.
func Exists(client LibvirtClient, domain libvirt.Domain) bool {
	_, err := client.DomainGetMetadata(
		domain,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{Namespace},
		libvirt.DomainModificationImpact(0),
	)
	return err == nil
}
