// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Package config loads the process configuration consumed by cmd/romcat.
// The core library itself takes its parameters as plain function arguments;
// this package exists only for the CLI's convenience, treating the parsing
// of config files as an external collaborator concern.
package config

import "github.com/scalingdata/gcfg"

// Config is the top-level .gcfg document.
type Config struct {
	General struct {
		Workers int
		BadDir  string
	}

	Index struct {
		Db   string
		Dats string
	}
}

// Default returns a Config with sane fallbacks applied before a file is read.
func Default() *Config {
	cfg := new(Config)
	cfg.General.Workers = 0 // 0 means "available parallelism", see scanner.DefaultWorkers
	return cfg
}

// Load reads and merges path into a Default config.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := gcfg.ReadFileInto(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
