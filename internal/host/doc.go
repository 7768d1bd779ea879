// Package host applies configuration to the running system.
//
// Transaction elements never run commands themselves. They call small
// collaborators defined here:
//
//   - Prober checks that a management server is reachable.
//   - PasswordSetter changes a local account password.
//   - ServiceManager enables, disables and restarts system services.
//   - Agent hands the management server to the node agent and activates it.
//
// Exec-backed implementations shell out through a Runner (os/exec with a
// timeout). DryRun implements the same interfaces by logging and recording
// each call, which is what non-root users and tests get.
package host
