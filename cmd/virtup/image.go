package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/virtup/virtup/internal/distro"
	"github.com/virtup/virtup/internal/image"
	"github.com/virtup/virtup/internal/libvirt"
	"github.com/virtup/virtup/internal/storage"
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage base images",
	Long: `Manage base OS images in the virtup-images storage pool.

Base images back VM boot disks as copy-on-write clones, so each image
is stored once no matter how many VMs boot from it.`,
}

func init() {
	imageCmd.AddCommand(imageListCmd)
	imageCmd.AddCommand(imageFetchCmd)
	imageCmd.AddCommand(imageImportCmd)
	imageCmd.AddCommand(imageDeleteCmd)
}

// withStorageManager connects to libvirt, ensures the virtup pools, and
// hands the manager to fn.
func withStorageManager(fn func(ctx context.Context, mgr *storage.Manager) error) error {
	ctx := context.Background()

	client, err := libvirt.Connect(socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
		}
	}()

	mgr := storage.NewManager(client.Libvirt())
	if err := mgr.EnsureDefaultPools(ctx); err != nil {
		return fmt.Errorf("failed to ensure default pools: %w", err)
	}

	return fn(ctx, mgr)
}

var imageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List base images",
	Long:  `List the base OS images stored in the virtup-images pool.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStorageManager(func(ctx context.Context, mgr *storage.Manager) error {
			images, err := mgr.ListImages(ctx)
			if err != nil {
				return fmt.Errorf("failed to list images: %w", err)
			}

			if len(images) == 0 {
				fmt.Println("No images found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tSIZE\tPATH")
			for _, img := range images {
				_, _ = fmt.Fprintf(w, "%s\t%.1f GiB\t%s\n", img.Name, img.CapacityGB(), img.Path)
			}
			return w.Flush()
		})
	},
}

var imageFetchCmd = &cobra.Command{
	Use:   "fetch <distro>",
	Short: "Download a distro's base image",
	Long: `Download a distribution's cloud image and import it into the
virtup-images pool, without creating a VM.

Useful for pre-seeding the pool on a host before it goes offline, or
for warming the cache ahead of a batch of creations.

Example:
  virtup image fetch debian12`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := distro.Lookup(args[0])
		if err != nil {
			return err
		}

		return withStorageManager(func(ctx context.Context, mgr *storage.Manager) error {
			exists, err := mgr.ImageExists(ctx, d.ImageName)
			if err != nil {
				return fmt.Errorf("failed to check for image: %w", err)
			}
			if exists {
				fmt.Printf("Image %s already present\n", d.ImageName)
				return nil
			}

			fetcher, err := image.NewFetcher("")
			if err != nil {
				return fmt.Errorf("failed to create image fetcher: %w", err)
			}

			path, err := fetcher.Fetch(ctx, d.URL, d.ImageName)
			if err != nil {
				return fmt.Errorf("failed to download image: %w", err)
			}

			if err := mgr.ImportImage(ctx, path, d.ImageName); err != nil {
				return fmt.Errorf("failed to import image: %w", err)
			}

			fmt.Printf("✓ Image %s imported\n", d.ImageName)
			return nil
		})
	},
}

var imageImportCmd = &cobra.Command{
	Use:   "import <source-path> <name>",
	Short: "Import a local image into the virtup-images pool",
	Long: `Import a base OS image from a local file into the virtup-images pool.

The image may then be referenced by name with 'virtup create --image'.

Example:
  virtup image import /path/to/custom.qcow2 custom.qcow2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourcePath := args[0]
		imageName := args[1]

		return withStorageManager(func(ctx context.Context, mgr *storage.Manager) error {
			exists, err := mgr.ImageExists(ctx, imageName)
			if err != nil {
				return fmt.Errorf("failed to check if image exists: %w", err)
			}
			if exists {
				return fmt.Errorf("image %s already exists", imageName)
			}

			fmt.Printf("Importing image from %s as %s...\n", sourcePath, imageName)
			if err := mgr.ImportImage(ctx, sourcePath, imageName); err != nil {
				return fmt.Errorf("failed to import image: %w", err)
			}

			fmt.Printf("✓ Image %s imported\n", imageName)
			return nil
		})
	},
}

var imageDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a base image",
	Long: `Delete a base OS image from the virtup-images pool.

VMs whose boot disks are backed by the image stop working; destroy
them first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imageName := args[0]

		return withStorageManager(func(ctx context.Context, mgr *storage.Manager) error {
			if err := mgr.DeleteImage(ctx, imageName); err != nil {
				return fmt.Errorf("failed to delete image: %w", err)
			}

			fmt.Printf("✓ Image %s deleted\n", imageName)
			return nil
		})
	},
}
