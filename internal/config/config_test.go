package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicit missing file should error")
	}
	// Implicit default path that doesn't exist is fine.
	t.Setenv("STEADYSTREAM_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.ListenAddr != ":8080" {
		t.Errorf("listen = %q", c.ListenAddr)
	}
	if c.FetchTimeout != 45*time.Second {
		t.Errorf("timeout = %v", c.FetchTimeout)
	}
	if c.PixelsPerMinute != 5 || c.SlotMinutes != 30 {
		t.Errorf("layout defaults = %v/%v", c.PixelsPerMinute, c.SlotMinutes)
	}
	if !c.UseRelays {
		t.Error("relays should default on")
	}
	if c.ProfileDBPath != "./data/profiles.db" {
		t.Errorf("profile db = %q", c.ProfileDBPath)
	}
}

func TestLoad_yamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steadystream.yaml")
	yml := `
listen_addr: ":9000"
m3u_url: "http://provider.example/list.m3u"
fetch_timeout: 10s
pixels_per_minute: 8
use_relays: false
relays:
  - "https://relay.example/?url="
`
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.ListenAddr != ":9000" {
		t.Errorf("listen = %q", c.ListenAddr)
	}
	if c.M3UURL != "http://provider.example/list.m3u" {
		t.Errorf("m3u = %q", c.M3UURL)
	}
	if c.FetchTimeout != 10*time.Second {
		t.Errorf("timeout = %v", c.FetchTimeout)
	}
	if c.PixelsPerMinute != 8 {
		t.Errorf("ppm = %v", c.PixelsPerMinute)
	}
	if c.UseRelays {
		t.Error("use_relays should be off")
	}
	if len(c.Relays) != 1 || c.Relays[0] != "https://relay.example/?url=" {
		t.Errorf("relays = %v", c.Relays)
	}
}

func TestLoad_envOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \":9000\"\nepg_url: \"http://file.example/epg.xml\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STEADYSTREAM_LISTEN", ":7070")
	t.Setenv("STEADYSTREAM_SLOT_MINUTES", "60")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.ListenAddr != ":7070" {
		t.Errorf("env should win: listen = %q", c.ListenAddr)
	}
	if c.SlotMinutes != 60 {
		t.Errorf("slot minutes = %d", c.SlotMinutes)
	}
	if c.EPGURL != "http://file.example/epg.xml" {
		t.Errorf("file value lost: epg = %q", c.EPGURL)
	}
}

func TestLoad_badYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_relaysEnvList(t *testing.T) {
	t.Setenv("STEADYSTREAM_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("STEADYSTREAM_RELAYS", " https://a.example/?u= , https://b.example/?u= ")
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Relays) != 2 || c.Relays[0] != "https://a.example/?u=" || c.Relays[1] != "https://b.example/?u=" {
		t.Errorf("relays = %v", c.Relays)
	}
}

func TestHasXtream(t *testing.T) {
	c := &Config{XtreamBaseURL: "http://panel.example", XtreamUser: "u"}
	if c.HasXtream() {
		t.Error("incomplete credentials should not count")
	}
	c.XtreamPass = "p"
	if !c.HasXtream() {
		t.Error("complete credentials should count")
	}
}
