// Package tools connects the model to external tools: the Registry discovers
// tools from a Provider and converts their descriptors to model tool specs,
// the Dispatcher executes tool use requests and returns correlated results.
package tools

import "github.com/effective-security/xlog"

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "tools")
