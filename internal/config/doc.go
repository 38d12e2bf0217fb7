// SPDX-License-Identifier: MPL-2.0

// Package config loads monorun settings with Viper, using CUE as the file
// format.
//
// The config file is <config dir>/monorun/config.cue, falling back to
// monorun.cue in the working directory. It is validated against the embedded
// config_schema.cue. Every key can be overridden by a MONORUN_* environment
// variable (infer.mode becomes MONORUN_INFER_MODE), and those variables may
// also come from a .env file in the working directory.
package config
