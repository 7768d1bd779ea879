// Package config loads the node-setup tool settings.
//
// Settings are read with viper from a YAML file, then overridden by
// NODE_SETUP_* environment variables, then by command line flags:
//
//	v := config.NewViper()
//	_ = config.BindFlags(v, cmd.Flags())
//	settings, err := config.Load(v)
//
// # Configuration File Location
//
// $XDG_CONFIG_HOME/node-setup/config.yaml, or
// $HOME/.config/node-setup/config.yaml when XDG_CONFIG_HOME is unset. A
// missing file is not an error.
//
// # Store Location
//
// The Engine and CIM values live in a separate store. As root it defaults
// to /etc/default/ovirt.yaml; other users get a file under their XDG data
// directory so the tool can be tried without touching the system.
//
// # Security
//
// Passwords are never written to the settings file or the store. They are
// handed straight to the host when a transaction commits.
package config
