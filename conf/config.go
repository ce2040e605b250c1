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

package conf

// NodeConfig holds the top-level configuration for a running instance:
// where it stores its object store, what it listens on, and how it
// reaches the communication server used for relayed connections.
type NodeConfig struct {
	// DataDir is the root directory for the object store, keychain and
	// log files. Created on first start if it does not exist.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// InstanceName identifies this instance among the personas sharing
	// DataDir. Keychain file names under DataDir are fixed and do not
	// depend on it.
	InstanceName string `json:"instance_name" yaml:"instance_name"`

	// ListenAddress is the local host:port the direct-connection
	// listener binds to. Empty disables direct listening.
	ListenAddress string `json:"listen_address" yaml:"listen_address"`

	// CommServerURL is the websocket URL of the relay/communication
	// server used for relayed incoming connections. Empty disables
	// relay registration.
	CommServerURL string `json:"comm_server_url" yaml:"comm_server_url"`

	// MaxConnections bounds the number of simultaneously open chum
	// connections this instance will service.
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
}

// DefaultNodeConfig returns sensible defaults for a locally-run instance.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		DataDir:        "./onecore-data",
		InstanceName:   "default",
		ListenAddress:  "127.0.0.1:17373",
		CommServerURL:  "",
		MaxConnections: 64,
	}
}

// Validate clamps out-of-range fields and fills in required defaults.
func (c *NodeConfig) Validate() error {
	if c.DataDir == "" {
		c.DataDir = "./onecore-data"
	}
	if c.InstanceName == "" {
		c.InstanceName = "default"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 64
	}
	return nil
}
