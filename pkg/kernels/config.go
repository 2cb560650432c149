// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the policies of one compilation session.
type Config struct {
	// ExternResultMemory makes the caller own the output buffers of every kernel, including
	// the "Result" kernels that would otherwise allocate them. See Emitter.EmitFunctionSignature.
	ExternResultMemory bool

	// Parallelism is the number of nodes emitted concurrently by Session.EmitKernels.
	// 0 means runtime.NumCPU(), and a negative value means unlimited.
	Parallelism int
}

// ConfigEnv is the environment variable with the default configuration.
//
// The format is a comma-separated list of options, e.g.: "extern_result_memory,parallelism=4".
// Boolean options can be given as "<name>", "<name>=true" or "<name>=false".
const ConfigEnv = "KERNELGEN_CONFIG"

// DefaultConfig is used by LoadConfig if ConfigEnv is not set.
var DefaultConfig string

// LoadConfig returns the default configuration:
//
// 1. The environment variable KERNELGEN_CONFIG is used if defined.
// 2. Next the variable DefaultConfig is used if defined.
// 3. Otherwise the zero Config.
func LoadConfig() (Config, error) {
	if config, found := os.LookupEnv(ConfigEnv); found {
		c, err := ParseConfig(config)
		return c, errors.WithMessagef(err, "parsing $%s", ConfigEnv)
	}
	return ParseConfig(DefaultConfig)
}

// ParseConfig parses a configuration string, see ConfigEnv for the format.
func ParseConfig(config string) (Config, error) {
	var c Config
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "extern_result_memory":
			if !hasValue {
				c.ExternResultMemory = true
				continue
			}
			v, err := strconv.ParseBool(value)
			if err != nil {
				return Config{}, errors.Wrapf(err, "invalid value for %q in config %q", key, config)
			}
			c.ExternResultMemory = v
		case "parallelism":
			v, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, errors.Wrapf(err, "invalid value for %q in config %q", key, config)
			}
			c.Parallelism = v
		default:
			return Config{}, errors.Errorf("unknown option %q in config %q", key, config)
		}
	}
	return c, nil
}
