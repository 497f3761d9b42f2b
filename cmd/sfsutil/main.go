package main

import (
	"fmt"
	"os"

	"github.com/KarpelesLab/simplefs"
)

const usage = `sfsutil - Simple File System CLI tool

Usage:
  sfsutil format <image>                 Create and format a new volume
  sfsutil ls <image>                     List files in a volume
  sfsutil cat <image> <file>             Display contents of a file
  sfsutil put <image> <file> <src>       Copy a local file into the volume
  sfsutil rm <image> <file>              Remove a file from the volume
  sfsutil info <image>                   Display volume occupancy information
  sfsutil pack <image> <snapshot>        Write an uncompressed snapshot of the volume
  sfsutil unpack <snapshot> <image>      Restore a volume from an uncompressed snapshot
  sfsutil help                           Show this help message
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "format":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing image path")
			break
		}
		err = formatVolume(os.Args[2])

	case "ls":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing image path")
			break
		}
		err = listFiles(os.Args[2])

	case "cat":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing image path or target file")
			break
		}
		err = catFile(os.Args[2], os.Args[3])

	case "put":
		if len(os.Args) < 5 {
			err = fmt.Errorf("missing image path, target name, or source file")
			break
		}
		err = putFile(os.Args[2], os.Args[3], os.Args[4])

	case "rm":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing image path or target file")
			break
		}
		err = removeFile(os.Args[2], os.Args[3])

	case "info":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing image path")
			break
		}
		err = showInfo(os.Args[2])

	case "pack":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing image path or snapshot path")
			break
		}
		err = packVolume(os.Args[2], os.Args[3])

	case "unpack":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing snapshot path or image path")
			break
		}
		err = unpackVolume(os.Args[2], os.Args[3])

	case "help":
		fmt.Println(usage)
		return

	default:
		fmt.Printf("Error: Unknown command '%s'\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func formatVolume(path string) error {
	v, err := simplefs.Format(path)
	if err != nil {
		return fmt.Errorf("failed to format %s: %w", path, err)
	}
	return v.Unmount()
}

func listFiles(path string) error {
	v, err := simplefs.Mount(path)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	defer v.Unmount()

	buf := make([]byte, simplefs.MaxNameLength)
	for {
		n := v.NextName(buf)
		if n == 0 {
			break
		}
		name := string(buf[:n])
		fmt.Printf("%8d %s\n", v.FileSize(name), name)
	}
	return nil
}

func catFile(path, name string) error {
	v, err := simplefs.Mount(path)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	defer v.Unmount()

	size := v.FileSize(name)
	if size < 0 {
		return fmt.Errorf("file '%s' not found", name)
	}

	fd, err := v.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", name, err)
	}
	defer v.Close(fd)
	if err := v.Seek(fd, 0); err != nil {
		return err
	}

	buf := make([]byte, size)
	if _, err := v.Read(fd, buf); err != nil {
		return fmt.Errorf("failed to read '%s': %w", name, err)
	}
	_, err = os.Stdout.Write(buf)
	return err
}

func putFile(path, name, src string) error {
	v, err := simplefs.Mount(path)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	defer v.Unmount()

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read source file '%s': %w", src, err)
	}

	fd, err := v.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", name, err)
	}
	defer v.Close(fd)
	if err := v.Seek(fd, 0); err != nil {
		return err
	}

	if _, err := v.Write(fd, data); err != nil {
		return fmt.Errorf("failed to write '%s': %w", name, err)
	}
	return nil
}

func removeFile(path, name string) error {
	v, err := simplefs.Mount(path)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	defer v.Unmount()

	if err := v.Remove(name); err != nil {
		return fmt.Errorf("failed to remove '%s': %w", name, err)
	}
	return nil
}

func packVolume(path, snapshotPath string) error {
	v, err := simplefs.Mount(path)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	defer v.Unmount()

	out, err := os.Create(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file %s: %w", snapshotPath, err)
	}
	defer out.Close()

	if err := v.Snapshot(out, simplefs.CodecNone); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func unpackVolume(snapshotPath, path string) error {
	v, err := simplefs.Format(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer v.Unmount()

	in, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file %s: %w", snapshotPath, err)
	}
	defer in.Close()

	if err := v.Restore(in, simplefs.CodecNone); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}

func showInfo(path string) error {
	v, err := simplefs.Mount(path)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", path, err)
	}
	defer v.Unmount()

	info, err := v.Info()
	if err != nil {
		return fmt.Errorf("failed to read volume info: %w", err)
	}

	fmt.Println("Simple File System Volume Information")
	fmt.Println("======================================")
	fmt.Printf("Block size:       %d bytes\n", info.BlockSize)
	fmt.Printf("Total blocks:     %d\n", info.TotalBlocks)
	fmt.Printf("Inode table len:  %d blocks\n", info.InodeTableLen)
	fmt.Printf("Files in use:     %d\n", info.FilesInUse)
	fmt.Printf("Free blocks:      %d\n", info.FreeBlocks)
	return nil
}
