// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.

package main

import (
	"github.com/urfave/cli/v2"

	"github.com/refinio/onecore/conf"
)

var DefaultNodeConfig = conf.DefaultNodeConfig()
var DefaultLoggerConfig = conf.LoggerConfig{Level: "info", Console: true, MaxSize: 100, MaxBackups: 10, MaxAge: 30, Compress: true}

var passphrase string

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "data-dir",
		Usage:       "instance root: object store, keychain and logs",
		Category:    "INSTANCE",
		Value:       DefaultNodeConfig.DataDir,
		Destination: &DefaultNodeConfig.DataDir,
	},
	&cli.StringFlag{
		Name:        "instance",
		Usage:       "instance name sharing data-dir",
		Category:    "INSTANCE",
		Value:       DefaultNodeConfig.InstanceName,
		Destination: &DefaultNodeConfig.InstanceName,
	},
	&cli.StringFlag{
		Name:        "passphrase",
		Usage:       "keychain master passphrase (prefer ONECORE_PASSPHRASE env)",
		Category:    "INSTANCE",
		EnvVars:     []string{"ONECORE_PASSPHRASE"},
		Destination: &passphrase,
	},
	&cli.StringFlag{
		Name:        "log-level",
		Usage:       "trace, debug, info, warn, error",
		Category:    "LOGGING",
		Value:       DefaultLoggerConfig.Level,
		Destination: &DefaultLoggerConfig.Level,
	},
}

var serveFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "listen",
		Usage:       "local host:port for direct connections (empty disables)",
		Category:    "NETWORK",
		Value:       DefaultNodeConfig.ListenAddress,
		Destination: &DefaultNodeConfig.ListenAddress,
	},
	&cli.StringFlag{
		Name:        "comm-server",
		Usage:       "websocket URL of the relay/communication server (empty disables relaying)",
		Category:    "NETWORK",
		Value:       DefaultNodeConfig.CommServerURL,
		Destination: &DefaultNodeConfig.CommServerURL,
	},
	&cli.IntFlag{
		Name:        "max-connections",
		Usage:       "maximum simultaneously open Chum connections",
		Category:    "NETWORK",
		Value:       DefaultNodeConfig.MaxConnections,
		Destination: &DefaultNodeConfig.MaxConnections,
	},
}

var inviteFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "endpoint",
		Usage:    "endpoint the redeemer should connect to",
		Required: true,
	},
	&cli.DurationFlag{
		Name:  "ttl",
		Usage: "how long the invitation remains redeemable",
		Value: defaultInvitationTTL,
	},
}
