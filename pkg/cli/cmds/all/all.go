// Package all pulls in all command providers.
package all

import (
	// commands
	_ "github.com/robotalks/mcu.go/pkg/cli/cmds/skel"
)
