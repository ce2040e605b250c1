// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// The OneCore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The OneCore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the OneCore library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/refinio/onecore/params"
)

const usageText = `onecore [global options] command [command options]

Quick start:
  onecore --data-dir ./data init                   create a new instance and keychain
  onecore --data-dir ./data unlock                 verify the keychain passphrase
  onecore --data-dir ./data serve                  run the listener(s) and Chum sync
  onecore --data-dir ./data invite --endpoint ws://127.0.0.1:17373/chum
                                                   print a pairing invitation link
  onecore --data-dir ./data accept-invite <link>   redeem a pairing invitation link`

func main() {
	app := &cli.App{
		Name:                   "onecore",
		Usage:                  "peer-to-peer content-addressed object store",
		UsageText:              usageText,
		Version:                params.VersionWithCommit(params.GitCommit, ""),
		Flags:                  globalFlags,
		Commands:               commands,
		UseShortOptionHandling: true,
		Suggest:                true,
		EnableBashCompletion:   true,
		Copyright:              "Copyright 2022-2026 The OneCore Authors",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
