// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command hg-session opens one cmdserver session against a repository and
// runs a single hg subcommand through it, printing the captured output.
// It exists to exercise the hglib package end-to-end against a real hg
// binary; it is a demonstration, not a product in its own right.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hgclient/hglib"
	"github.com/hgclient/hglib/config"
)

var (
	repoPath   string
	hgBinary   string
	configPath string
	verbose    bool
)

func init() {
	flag.StringVar(&repoPath, "R", "", "repository path (default: current directory)")
	flag.StringVar(&hgBinary, "hg", "", "hg executable to use (default: $PATH lookup)")
	flag.StringVar(&configPath, "config", "", "YAML config file of session defaults")
	flag.BoolVar(&verbose, "v", false, "log protocol diagnostics to stderr")
}

func exitf(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	argv := flag.Args()
	if len(argv) == 0 {
		exitf("usage: hg-session [-R repo] [-hg binary] [-config file] [-v] <command> [args...]")
	}

	opts := []hglib.Option{}
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			exitf("loading config: %s", err)
		}
		opts = append(opts, hglib.WithConfig(cfg))
	}
	if hgBinary != "" {
		opts = append(opts, hglib.WithHgBinary(hgBinary))
	}
	if verbose {
		opts = append(opts, hglib.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}

	s, err := hglib.Open(repoPath, opts...)
	if err != nil {
		exitf("opening session: %s", err)
	}
	defer s.Close()

	res, err := s.GetCommandOutput(argv, nil)
	if err != nil {
		exitf("running %s: %s", strings.Join(argv, " "), err)
	}
	os.Stdout.WriteString(res.Stdout)
	os.Stderr.WriteString(res.Stderr)
	if err := hglib.ThrowOnFail(res, 0, fmt.Sprintf("%s failed", strings.Join(argv, " "))); err != nil {
		exitf("%s", err)
	}
}
