package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// mountOptions is the configuration extracted from mount-style -o option
// strings. Options the driver does not recognize are kept verbatim in
// Passthrough and handed to the FUSE layer (allow_other, uid=, ...).
type mountOptions struct {
	Server      string
	StaticRoot  *bool
	Passthrough []string
}

// parseMountOptions applies one comma-separated -o option string. The
// historical mount syntax is accepted alongside the flag-style form:
// server=<url>, staticroot, nostaticroot and --staticroot=true|false.
func parseMountOptions(spec string, opts *mountOptions) error {
	for _, opt := range strings.Split(spec, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, value, hasValue := strings.Cut(opt, "=")
		switch key {
		case "server":
			if !hasValue || value == "" {
				return fmt.Errorf("option server needs a value")
			}
			opts.Server = value
		case "staticroot":
			opts.StaticRoot = boolPtr(true)
		case "nostaticroot":
			opts.StaticRoot = boolPtr(false)
		case "--staticroot":
			if !hasValue {
				opts.StaticRoot = boolPtr(true)
				continue
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("option --staticroot: %q is not a boolean", value)
			}
			opts.StaticRoot = boolPtr(b)
		default:
			opts.Passthrough = append(opts.Passthrough, opt)
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
