package storage

import (
	"context"
	"fmt"
	"os"
)

// ImportImage imports a base image from a local file into the
// virtup-images pool. The file must be a qcow2 image or a bootable raw
// image; anything else is rejected before any volume is created.
func (m *Manager) ImportImage(ctx context.Context, filePath, imageName string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat image file: %w", err)
	}

	format, err := DetectImageFormat(filePath)
	if err != nil {
		return fmt.Errorf("unsupported image %s: %w", filePath, err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read image file: %w", err)
	}

	spec := VolumeSpec{
		Name:          imageName,
		Format:        format,
		CapacityBytes: uint64(info.Size()),
	}

	if err := m.CreateVolume(ctx, DefaultImagesPool, spec); err != nil {
		return fmt.Errorf("failed to create image volume: %w", err)
	}

	if err := m.WriteVolumeData(ctx, DefaultImagesPool, imageName, data); err != nil {
		// Leave no half-written image volume behind.
		_ = m.DeleteVolume(ctx, DefaultImagesPool, imageName)
		return fmt.Errorf("failed to upload image data: %w", err)
	}

	return nil
}

// ListImages lists all base images in the virtup-images pool.
func (m *Manager) ListImages(ctx context.Context) ([]VolumeInfo, error) {
	return m.ListVolumes(ctx, DefaultImagesPool)
}

// DeleteImage deletes a base image from the virtup-images pool.
// VMs whose boot disks are backed by the image become unusable.
func (m *Manager) DeleteImage(ctx context.Context, imageName string) error {
	return m.DeleteVolume(ctx, DefaultImagesPool, imageName)
}

// GetImagePath gets the full filesystem path for a base image.
func (m *Manager) GetImagePath(ctx context.Context, imageName string) (string, error) {
	return m.GetVolumePath(ctx, DefaultImagesPool, imageName)
}

// GetImageFormat reports the format of a base image in the
// virtup-images pool. Boot disks backed by the image must declare this
// format in their backing store.
func (m *Manager) GetImageFormat(ctx context.Context, imageName string) (VolumeFormat, error) {
	return m.GetVolumeFormat(ctx, DefaultImagesPool, imageName)
}

// ImageExists checks if a base image exists in the virtup-images pool.
func (m *Manager) ImageExists(ctx context.Context, imageName string) (bool, error) {
	return m.VolumeExists(ctx, DefaultImagesPool, imageName)
}
