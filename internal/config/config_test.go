package config

import (
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Archive.Architectures) != 1 || cfg.Archive.Architectures[0] != "amd64" {
		t.Errorf("expected default architectures [amd64], got %v", cfg.Archive.Architectures)
	}
	if !cfg.Archive.Installer {
		t.Error("expected installer packages enabled by default")
	}

	if cfg.Germination.FollowRecommends {
		t.Error("expected follow_recommends disabled by default")
	}

	if cfg.Output.Directory != "." {
		t.Errorf("expected output directory '.', got %s", cfg.Output.Directory)
	}

	// Store defaults
	if cfg.Store.Enabled {
		t.Error("expected store disabled by default")
	}
	if cfg.Store.Port != 3306 {
		t.Errorf("expected store port 3306, got %d", cfg.Store.Port)
	}
	if cfg.Store.TablePrefix != "germinate_" {
		t.Errorf("expected table prefix 'germinate_', got %s", cfg.Store.TablePrefix)
	}
	if cfg.Store.LockTimeout != 10 {
		t.Errorf("expected lock_timeout 10, got %d", cfg.Store.LockTimeout)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected logging format 'text', got %s", cfg.Logging.Format)
	}
}

func TestArchPaths(t *testing.T) {
	paths := []string{
		"/srv/mirror/main/binary-{arch}/Packages",
		"/srv/mirror/main/source/Sources",
	}

	got := ArchPaths(paths, "armhf")
	want := []string{
		"/srv/mirror/main/binary-armhf/Packages",
		"/srv/mirror/main/source/Sources",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ArchPaths() = %v, expected %v", got, want)
	}

	// Input must be left untouched for the next architecture.
	if paths[0] != "/srv/mirror/main/binary-{arch}/Packages" {
		t.Errorf("ArchPaths() modified its input: %s", paths[0])
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides(Overrides{
		LogLevel:         "debug",
		Architectures:    []string{"i386", "arm64"},
		Seeds:            []string{"desktop"},
		OutputDir:        "/tmp/out",
		FollowRecommends: true,
		NoInstaller:      true,
	})

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("empty override must not change format, got %s", cfg.Logging.Format)
	}
	if !reflect.DeepEqual(cfg.Archive.Architectures, []string{"i386", "arm64"}) {
		t.Errorf("unexpected architectures %v", cfg.Archive.Architectures)
	}
	if !reflect.DeepEqual(cfg.Seeds.Names, []string{"desktop"}) {
		t.Errorf("unexpected seed names %v", cfg.Seeds.Names)
	}
	if cfg.Output.Directory != "/tmp/out" {
		t.Errorf("unexpected output directory %s", cfg.Output.Directory)
	}
	if !cfg.Germination.FollowRecommends {
		t.Error("expected follow_recommends enabled")
	}
	if cfg.Archive.Installer {
		t.Error("expected installer packages disabled")
	}
}
