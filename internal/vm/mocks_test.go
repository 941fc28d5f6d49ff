package vm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/digitalocean/go-libvirt"

	"github.com/virtup/virtup/internal/storage"
)

// mockDomain tracks one domain's state in the mock hypervisor.
type mockDomain struct {
	name      string
	state     int32
	autostart int32
	metadata  string
	ips       []string
	ips6      []string
	xml       string
}

// mockLibvirt is an in-memory implementation of libvirtClient.
type mockLibvirt struct {
	domains map[string]*mockDomain

	// shutdownHangs makes DomainShutdown succeed without ever reaching
	// shutoff, forcing the destroy path.
	shutdownHangs bool

	defineErr error
	createErr error

	destroyCalls  int
	undefineCalls int
}

func newMockLibvirt() *mockLibvirt {
	return &mockLibvirt{domains: make(map[string]*mockDomain)}
}

func (m *mockLibvirt) addDomain(name string, state int32) *mockDomain {
	d := &mockDomain{name: name, state: state}
	m.domains[name] = d
	return d
}

func (m *mockLibvirt) DomainLookupByName(name string) (libvirt.Domain, error) {
	if _, ok := m.domains[name]; !ok {
		return libvirt.Domain{}, fmt.Errorf("domain not found: %s", name)
	}
	return libvirt.Domain{Name: name}, nil
}

func (m *mockLibvirt) DomainDefineXML(xml string) (libvirt.Domain, error) {
	if m.defineErr != nil {
		return libvirt.Domain{}, m.defineErr
	}
	name := extractTagValue(xml, "name")
	if name == "" {
		return libvirt.Domain{}, fmt.Errorf("invalid domain XML: missing name")
	}
	d := m.addDomain(name, domainStateShutoff)
	d.xml = xml
	return libvirt.Domain{Name: name}, nil
}

func (m *mockLibvirt) DomainSetAutostart(dom libvirt.Domain, autostart int32) error {
	d, ok := m.domains[dom.Name]
	if !ok {
		return fmt.Errorf("domain not found: %s", dom.Name)
	}
	d.autostart = autostart
	return nil
}

func (m *mockLibvirt) DomainCreate(dom libvirt.Domain) error {
	if m.createErr != nil {
		return m.createErr
	}
	d, ok := m.domains[dom.Name]
	if !ok {
		return fmt.Errorf("domain not found: %s", dom.Name)
	}
	d.state = domainStateRunning
	return nil
}

func (m *mockLibvirt) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	d, ok := m.domains[dom.Name]
	if !ok {
		return 0, 0, fmt.Errorf("domain not found: %s", dom.Name)
	}
	return d.state, 0, nil
}

func (m *mockLibvirt) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	d, ok := m.domains[dom.Name]
	if !ok {
		return 0, 0, 0, 0, 0, fmt.Errorf("domain not found: %s", dom.Name)
	}
	// 2 vCPUs, 2 GiB in KiB.
	return uint8(d.state), 2097152, 2097152, 2, 0, nil
}

func (m *mockLibvirt) DomainGetAutostart(dom libvirt.Domain) (int32, error) {
	d, ok := m.domains[dom.Name]
	if !ok {
		return 0, fmt.Errorf("domain not found: %s", dom.Name)
	}
	return d.autostart, nil
}

func (m *mockLibvirt) DomainShutdown(dom libvirt.Domain) error {
	d, ok := m.domains[dom.Name]
	if !ok {
		return fmt.Errorf("domain not found: %s", dom.Name)
	}
	if !m.shutdownHangs {
		d.state = domainStateShutoff
	}
	return nil
}

func (m *mockLibvirt) DomainDestroy(dom libvirt.Domain) error {
	d, ok := m.domains[dom.Name]
	if !ok {
		return fmt.Errorf("domain not found: %s", dom.Name)
	}
	m.destroyCalls++
	if d.state == domainStateShutoff {
		return fmt.Errorf("domain is not active")
	}
	d.state = domainStateShutoff
	return nil
}

func (m *mockLibvirt) DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
	if _, ok := m.domains[dom.Name]; !ok {
		return fmt.Errorf("domain not found: %s", dom.Name)
	}
	m.undefineCalls++
	delete(m.domains, dom.Name)
	return nil
}

func (m *mockLibvirt) DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
	d, ok := m.domains[dom.Name]
	if !ok {
		return nil, fmt.Errorf("domain not found: %s", dom.Name)
	}
	if len(d.ips) == 0 && len(d.ips6) == 0 {
		return nil, nil
	}

	var addrs []libvirt.DomainIPAddr
	for _, ip := range d.ips6 {
		addrs = append(addrs, libvirt.DomainIPAddr{
			Type:   int32(libvirt.IPAddrTypeIpv6),
			Addr:   ip,
			Prefix: 64,
		})
	}
	for _, ip := range d.ips {
		addrs = append(addrs, libvirt.DomainIPAddr{
			Type:   int32(libvirt.IPAddrTypeIpv4),
			Addr:   ip,
			Prefix: 24,
		})
	}
	return []libvirt.DomainInterface{{Name: "vnet0", Addrs: addrs}}, nil
}

func (m *mockLibvirt) DomainSetMetadata(dom libvirt.Domain, typ int32, md libvirt.OptString, key libvirt.OptString, uri libvirt.OptString, flags libvirt.DomainModificationImpact) error {
	d, ok := m.domains[dom.Name]
	if !ok {
		return fmt.Errorf("domain not found: %s", dom.Name)
	}
	if len(md) > 0 {
		d.metadata = md[0]
	}
	return nil
}

func (m *mockLibvirt) DomainGetMetadata(dom libvirt.Domain, typ int32, uri libvirt.OptString, flags libvirt.DomainModificationImpact) (string, error) {
	d, ok := m.domains[dom.Name]
	if !ok {
		return "", fmt.Errorf("domain not found: %s", dom.Name)
	}
	if d.metadata == "" {
		return "", fmt.Errorf("metadata not found")
	}
	return d.metadata, nil
}

func (m *mockLibvirt) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	var result []libvirt.Domain
	for name := range m.domains {
		result = append(result, libvirt.Domain{Name: name})
	}
	return result, uint32(len(result)), nil
}

// mockStorage is an in-memory implementation of storageManager.
type mockStorage struct {
	poolsEnsured bool
	volumes      map[string][]byte             // volume name -> uploaded data
	specs        map[string]storage.VolumeSpec // volume name -> spec it was created with
	images       map[string]storage.VolumeFormat

	createVolumeErr error
	importErr       error

	importCalls int
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		volumes: make(map[string][]byte),
		specs:   make(map[string]storage.VolumeSpec),
		images:  make(map[string]storage.VolumeFormat),
	}
}

func (m *mockStorage) EnsureDefaultPools(ctx context.Context) error {
	m.poolsEnsured = true
	return nil
}

func (m *mockStorage) CreateVolume(ctx context.Context, poolName string, spec storage.VolumeSpec) error {
	if m.createVolumeErr != nil {
		return m.createVolumeErr
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, ok := m.volumes[spec.Name]; ok {
		return fmt.Errorf("volume already exists: %s", spec.Name)
	}
	m.volumes[spec.Name] = nil
	m.specs[spec.Name] = spec
	return nil
}

func (m *mockStorage) DeleteVolume(ctx context.Context, poolName, volumeName string) error {
	if _, ok := m.volumes[volumeName]; !ok {
		return fmt.Errorf("volume not found: %s", volumeName)
	}
	delete(m.volumes, volumeName)
	return nil
}

func (m *mockStorage) WriteVolumeData(ctx context.Context, poolName, volumeName string, data []byte) error {
	if _, ok := m.volumes[volumeName]; !ok {
		return fmt.Errorf("volume not found: %s", volumeName)
	}
	m.volumes[volumeName] = data
	return nil
}

func (m *mockStorage) ListVolumesWithPrefix(ctx context.Context, poolName, prefix string) ([]storage.VolumeInfo, error) {
	var result []storage.VolumeInfo
	for name := range m.volumes {
		if strings.HasPrefix(name, prefix) {
			result = append(result, storage.VolumeInfo{Name: name, Pool: poolName})
		}
	}
	return result, nil
}

func (m *mockStorage) ImageExists(ctx context.Context, imageName string) (bool, error) {
	_, ok := m.images[imageName]
	return ok, nil
}

func (m *mockStorage) ImportImage(ctx context.Context, filePath, imageName string) error {
	m.importCalls++
	if m.importErr != nil {
		return m.importErr
	}
	// Detect the format of a real file; fall back to qcow2 for tests
	// that only pass a path.
	format := storage.VolumeFormatQCOW2
	if detected, err := storage.DetectImageFormat(filePath); err == nil {
		format = detected
	}
	m.images[imageName] = format
	return nil
}

func (m *mockStorage) GetImageFormat(ctx context.Context, imageName string) (storage.VolumeFormat, error) {
	format, ok := m.images[imageName]
	if !ok {
		return "", fmt.Errorf("image not found: %s", imageName)
	}
	return format, nil
}

// mockFetcher is an in-memory implementation of imageFetcher.
type mockFetcher struct {
	fetchErr error

	fetchCalls int
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{}
}

func (m *mockFetcher) Fetch(ctx context.Context, url, filename string) (string, error) {
	m.fetchCalls++
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	return filepath.Join("/tmp/virtup-test-cache", filename), nil
}

// extractTagValue pulls the text content of the first <tag> element.
func extractTagValue(xml, tag string) string {
	start := strings.Index(xml, "<"+tag+">")
	if start == -1 {
		return ""
	}
	start += len(tag) + 2
	end := strings.Index(xml[start:], "</"+tag+">")
	if end == -1 {
		return ""
	}
	return xml[start : start+end]
}
