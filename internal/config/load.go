// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	scalpelerrors "grimm.is/scalpel/internal/errors"
)

// LoadOptions controls LoadFile's behavior.
type LoadOptions struct {
	// SkipValidate, when true, skips Validate() after Canonicalize().
	// Used by tooling that wants to inspect a raw, possibly-invalid file.
	SkipValidate bool
}

// DefaultLoadOptions returns the options used by normal startup.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{}
}

// LoadFile loads cfg from path, sniffing the format from its extension
// (".hcl" or no extension -> HCL, ".json" -> JSON).
func LoadFile(path string) (*Config, error) {
	return LoadFileWithOptions(path, DefaultLoadOptions())
}

// LoadFileWithOptions is LoadFile with explicit LoadOptions.
func LoadFileWithOptions(path string, opts LoadOptions) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSONWithOptions(path, opts)
	}
	return LoadHCLWithOptions(path, opts)
}

// LoadHCL loads and decodes an HCL config file at path.
func LoadHCL(path string) (*Config, error) {
	return LoadHCLWithOptions(path, DefaultLoadOptions())
}

// LoadHCLWithOptions is LoadHCL with explicit LoadOptions.
func LoadHCLWithOptions(path string, opts LoadOptions) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, scalpelerrors.Wrap(diags, scalpelerrors.KindConfig, fmt.Sprintf("parse %s", path))
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, scalpelerrors.Wrap(diags, scalpelerrors.KindConfig, fmt.Sprintf("decode %s", path))
	}

	return finishLoad(&cfg, opts)
}

// LoadJSON loads and decodes a JSON config file at path.
func LoadJSON(path string) (*Config, error) {
	return LoadJSONWithOptions(path, DefaultLoadOptions())
}

// LoadJSONWithOptions is LoadJSON with explicit LoadOptions.
func LoadJSONWithOptions(path string, opts LoadOptions) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scalpelerrors.Wrap(err, scalpelerrors.KindConfig, fmt.Sprintf("read %s", path))
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, scalpelerrors.Wrap(err, scalpelerrors.KindConfig, fmt.Sprintf("unmarshal %s", path))
	}

	return finishLoad(&cfg, opts)
}

func finishLoad(cfg *Config, opts LoadOptions) (*Config, error) {
	cfg.Canonicalize()
	if !opts.SkipValidate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// SaveFile writes cfg to path, sniffing the format the same way LoadFile
// reads it.
func SaveFile(cfg *Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveHCL(cfg, path)
}

// SaveJSON writes cfg to path as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return scalpelerrors.Wrap(err, scalpelerrors.KindInternal, "marshal config")
	}
	return os.WriteFile(path, data, 0o644)
}

// SaveHCL writes cfg to path as formatted HCL, via GenerateHCL.
func SaveHCL(cfg *Config, path string) error {
	data := GenerateHCL(cfg)
	return os.WriteFile(path, data, 0o644)
}

// GenerateHCL renders cfg as canonical, formatted HCL source.
func GenerateHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("schema_version", cty.StringVal(orDefault(cfg.SchemaVersion, "1.0")))
	body.AppendNewline()

	ifaceA := body.AppendNewBlock("interface_a", nil).Body()
	ifaceA.SetAttributeValue("name", cty.StringVal(cfg.InterfaceA.Name))
	ifaceA.SetAttributeValue("core", cty.NumberIntVal(int64(cfg.InterfaceA.Core)))
	body.AppendNewline()

	ifaceB := body.AppendNewBlock("interface_b", nil).Body()
	ifaceB.SetAttributeValue("name", cty.StringVal(cfg.InterfaceB.Name))
	ifaceB.SetAttributeValue("core", cty.NumberIntVal(int64(cfg.InterfaceB.Core)))
	body.AppendNewline()

	classifier := body.AppendNewBlock("classifier", nil).Body()
	classifier.SetAttributeValue("large_threshold", cty.NumberIntVal(int64(cfg.Classifier.LargeThreshold)))
	classifier.SetAttributeValue("punish_trigger", cty.NumberIntVal(int64(cfg.Classifier.PunishTrigger)))
	classifier.SetAttributeValue("cleanup_interval", cty.NumberIntVal(int64(cfg.Classifier.CleanupInterval)))
	ports := make([]cty.Value, 0, len(cfg.Classifier.GamePorts))
	for _, p := range cfg.Classifier.GamePorts {
		ports = append(ports, cty.NumberIntVal(int64(p)))
	}
	if len(ports) > 0 {
		classifier.SetAttributeValue("game_ports", cty.ListVal(ports))
	}
	if cfg.Classifier.GamePortRange != nil {
		rng := classifier.AppendNewBlock("game_port_range", nil).Body()
		rng.SetAttributeValue("from", cty.NumberIntVal(int64(cfg.Classifier.GamePortRange.From)))
		rng.SetAttributeValue("to", cty.NumberIntVal(int64(cfg.Classifier.GamePortRange.To)))
	}
	body.AppendNewline()

	shaper := body.AppendNewBlock("shaper", nil).Body()
	shaper.SetAttributeValue("mbps_override", cty.NumberFloatVal(cfg.Shaper.MbpsOverride))
	shaper.SetAttributeValue("capacity_frames", cty.NumberIntVal(int64(cfg.Shaper.CapacityFrames)))
	body.AppendNewline()

	watchdog := body.AppendNewBlock("watchdog", nil).Body()
	watchdog.SetAttributeValue("heartbeat_timeout", cty.StringVal(cfg.Watchdog.HeartbeatTimeout))
	watchdog.SetAttributeValue("tick_interval", cty.StringVal(cfg.Watchdog.TickInterval))
	body.AppendNewline()

	body.SetAttributeValue("log_dir", cty.StringVal(cfg.LogDir))
	body.AppendNewline()

	syslog := body.AppendNewBlock("syslog", nil).Body()
	syslog.SetAttributeValue("enabled", cty.BoolVal(cfg.Syslog.Enabled))
	syslog.SetAttributeValue("host", cty.StringVal(cfg.Syslog.Host))
	syslog.SetAttributeValue("port", cty.NumberIntVal(int64(cfg.Syslog.Port)))
	syslog.SetAttributeValue("protocol", cty.StringVal(cfg.Syslog.Protocol))
	syslog.SetAttributeValue("tag", cty.StringVal(cfg.Syslog.Tag))
	body.AppendNewline()

	metrics := body.AppendNewBlock("metrics", nil).Body()
	metrics.SetAttributeValue("enabled", cty.BoolVal(cfg.Metrics.Enabled))
	metrics.SetAttributeValue("listen", cty.StringVal(cfg.Metrics.Listen))
	body.AppendNewline()

	qos := body.AppendNewBlock("qos_backstop", nil).Body()
	qos.SetAttributeValue("enabled", cty.BoolVal(cfg.QoSBackstop.Enabled))
	qos.SetAttributeValue("interface", cty.StringVal(cfg.QoSBackstop.Interface))
	qos.SetAttributeValue("download_mbps", cty.NumberIntVal(int64(cfg.QoSBackstop.DownloadMbps)))
	qos.SetAttributeValue("upload_mbps", cty.NumberIntVal(int64(cfg.QoSBackstop.UploadMbps)))

	return hclwrite.Format(f.Bytes())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
