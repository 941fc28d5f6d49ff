package vm

import (
	"context"
	"testing"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/virtup/virtup/internal/metadata"
)

func storeTestRecord(t *testing.T, lv *mockLibvirt, name, distroKey string) {
	t.Helper()
	record := &metadata.Record{
		Name:      name,
		Distro:    distroKey,
		LoginUser: "ubuntu",
		VCPUs:     2,
		MemoryMB:  2048,
		DiskGB:    10,
		CreatedAt: time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC),
	}
	if err := metadata.Store(lv, libvirt.Domain{Name: name}, record); err != nil {
		t.Fatalf("metadata.Store failed: %v", err)
	}
}

func TestList(t *testing.T) {
	lv := newMockLibvirt()

	web1 := lv.addDomain("web1", domainStateRunning)
	web1.ips = []string{"192.168.122.41"}
	storeTestRecord(t, lv, "web1", "ubuntu24.04")

	lv.addDomain("db1", domainStateShutoff)
	storeTestRecord(t, lv, "db1", "debian12")

	// A domain without a creation record is not ours to report.
	lv.addDomain("stranger", domainStateRunning)

	vms, err := listWithDeps(context.Background(), lv)
	if err != nil {
		t.Fatalf("listWithDeps failed: %v", err)
	}

	if len(vms) != 2 {
		t.Fatalf("expected 2 VMs, got %d: %+v", len(vms), vms)
	}

	byName := make(map[string]Info)
	for _, vm := range vms {
		byName[vm.Name] = vm
	}

	web := byName["web1"]
	if web.State != "running" {
		t.Errorf("expected web1 running, got %s", web.State)
	}
	if web.Distro != "ubuntu24.04" {
		t.Errorf("expected distro ubuntu24.04, got %s", web.Distro)
	}
	if len(web.IPs) != 1 || web.IPs[0] != "192.168.122.41" {
		t.Errorf("unexpected IPs: %v", web.IPs)
	}
	if web.VCPUs != 2 || web.MemoryMB != 2048 {
		t.Errorf("unexpected sizing: %+v", web)
	}

	db := byName["db1"]
	if db.State != "shutoff" {
		t.Errorf("expected db1 shutoff, got %s", db.State)
	}
	if len(db.IPs) != 0 {
		t.Errorf("shutoff VM should have no lease, got %v", db.IPs)
	}

	if _, ok := byName["stranger"]; ok {
		t.Error("unmanaged domain should not be listed")
	}
}

func TestListEmpty(t *testing.T) {
	vms, err := listWithDeps(context.Background(), newMockLibvirt())
	if err != nil {
		t.Fatalf("listWithDeps failed: %v", err)
	}
	if len(vms) != 0 {
		t.Errorf("expected no VMs, got %d", len(vms))
	}
}

func TestStateToString(t *testing.T) {
	tests := []struct {
		state int32
		want  string
	}{
		{1, "running"},
		{5, "shutoff"},
		{3, "paused"},
		{99, "unknown(99)"},
	}

	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.want {
			t.Errorf("stateToString(%d) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
